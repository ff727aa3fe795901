// Package eventbus fans engine notifications out to presentation code by
// topic.
//
// Publishers never block: every subscription owns a bounded channel and an
// event is dropped for a subscriber whose channel is full. The bus also keeps
// a short ring of recent events so late subscribers can catch up with Tail.
package eventbus
