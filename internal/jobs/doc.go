// Package jobs runs engine work off the caller's goroutine.
//
// Pool bounds how many background jobs run at once and delivers each result
// on a channel. Latest and Gate make the one-diff and one-import rules
// explicit: Latest hands out generations so results of superseded jobs can be
// recognised and dropped, and Gate refuses a second job while one is running.
package jobs
