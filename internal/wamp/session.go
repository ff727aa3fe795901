package wamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"reawwise/internal/logging"
)

// ErrClosed is returned for requests that were pending or issued after the
// transport went away.
var ErrClosed = errors.New("wamp session closed")

// Error is a WAMP ERROR reply.
type Error struct {
	URI     string
	Details map[string]any
	Args    []any
	Kwargs  map[string]any
}

func (e *Error) Error() string {
	if msg, ok := e.Kwargs["message"].(string); ok && msg != "" {
		return e.URI + ": " + msg
	}
	return e.URI
}

// Result is the payload of a RESULT reply.
type Result struct {
	Details map[string]any
	Args    []any
	Kwargs  map[string]any
}

// Event is one EVENT delivered to a subscription.
type Event struct {
	Subscription int64
	Publication  int64
	Details      map[string]any
	Args         []any
	Kwargs       map[string]any
}

// EventHandler receives events on the session's dispatch goroutine.
type EventHandler func(Event)

// Options configures Dial.
type Options struct {
	URL        string
	Realm      string
	Serializer Serializer
	Logger     *slog.Logger
}

type reply struct {
	msg Message
	err error
}

// Session is a WAMP client session with the caller and subscriber roles.
type Session struct {
	conn       *websocket.Conn
	serializer Serializer
	logger     *slog.Logger
	id         int64

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   int64
	pending  map[int64]chan reply
	handlers map[int64]EventHandler
	closing  bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	err       error
	wg        sync.WaitGroup
}

// Dial opens the WebSocket, performs the HELLO/WELCOME handshake, and starts
// the reader and event dispatch goroutines.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.Serializer == nil {
		opts.Serializer = JSONSerializer{}
	}
	if opts.Realm == "" {
		opts.Realm = DefaultRealm
	}
	logger := logging.NewComponentLogger(opts.Logger, "wamp")

	wsConfig, err := websocket.NewConfig(opts.URL, "http://localhost/")
	if err != nil {
		return nil, fmt.Errorf("wamp: parse url: %w", err)
	}
	wsConfig.Protocol = []string{opts.Serializer.Subprotocol()}

	conn, err := wsConfig.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("wamp: dial %s: %w", opts.URL, err)
	}
	if opts.Serializer.Binary() {
		conn.PayloadType = websocket.BinaryFrame
	}

	s := &Session{
		conn:       conn,
		serializer: opts.Serializer,
		logger:     logger,
		nextID:     1,
		pending:    make(map[int64]chan reply),
		handlers:   make(map[int64]EventHandler),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
	}

	if err := s.handshake(ctx, opts.Realm); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.dispatchLoop()
	logger.Debug("wamp session established", logging.Int64("session_id", s.id), logging.String("subprotocol", opts.Serializer.Subprotocol()))
	return s, nil
}

func (s *Session) handshake(ctx context.Context, realm string) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
		defer s.conn.SetDeadline(time.Time{}) //nolint:errcheck
	}
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	hello := Message{MsgHello, realm, map[string]any{
		"roles": map[string]any{
			"caller":     map[string]any{},
			"subscriber": map[string]any{},
		},
	}}
	if err := s.send(hello); err != nil {
		return fmt.Errorf("wamp: send hello: %w", err)
	}
	msg, err := s.receive()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("wamp: await welcome: %w", err)
	}
	switch msg.Code() {
	case MsgWelcome:
		id, ok := msg.Int64(1)
		if !ok {
			return errors.New("wamp: welcome without session id")
		}
		s.id = id
		return nil
	case MsgAbort:
		return fmt.Errorf("wamp: router aborted session: %s", msg.String(2))
	default:
		return fmt.Errorf("wamp: unexpected message %d during handshake", msg.Code())
	}
}

// ID returns the router-assigned session id.
func (s *Session) ID() int64 { return s.id }

// Done is closed when the transport is lost or the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the reason the session ended, or nil while it is open.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Session) send(msg Message) error {
	data, err := s.serializer.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %d: %w", msg.Code(), err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.serializer.Binary() {
		return websocket.Message.Send(s.conn, data)
	}
	return websocket.Message.Send(s.conn, string(data))
}

func (s *Session) receive() (Message, error) {
	var data []byte
	if err := websocket.Message.Receive(s.conn, &data); err != nil {
		return nil, err
	}
	return s.serializer.Unmarshal(data)
}

// request registers a reply slot, sends msg built with the allocated request
// id, and waits for the matching reply.
func (s *Session) request(ctx context.Context, build func(id int64) Message) (Message, error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextID
	s.nextID++
	ch := make(chan reply, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	if err := s.send(build(id)); err != nil {
		s.drop(id)
		s.shutdown(err)
		return nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		s.drop(id)
		return nil, ctx.Err()
	}
}

func (s *Session) drop(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Call invokes procedure and returns its RESULT. A WAMP ERROR reply is
// returned as *Error.
func (s *Session) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (Result, error) {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	msg, err := s.request(ctx, func(id int64) Message {
		return Message{MsgCall, id, map[string]any{}, procedure, args, kwargs}
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Details: msg.Dict(2), Args: msg.List(3), Kwargs: msg.Dict(4)}, nil
}

// Subscribe registers handler for topic and returns the subscription id.
func (s *Session) Subscribe(ctx context.Context, topic string, options map[string]any, handler EventHandler) (int64, error) {
	if options == nil {
		options = map[string]any{}
	}
	msg, err := s.request(ctx, func(id int64) Message {
		return Message{MsgSubscribe, id, options, topic}
	})
	if err != nil {
		return 0, err
	}
	subID, ok := msg.Int64(2)
	if !ok {
		return 0, errors.New("wamp: subscribed without subscription id")
	}
	s.mu.Lock()
	s.handlers[subID] = handler
	s.mu.Unlock()
	return subID, nil
}

// Unsubscribe removes a subscription created by Subscribe.
func (s *Session) Unsubscribe(ctx context.Context, subscription int64) error {
	s.mu.Lock()
	delete(s.handlers, subscription)
	s.mu.Unlock()
	_, err := s.request(ctx, func(id int64) Message {
		return Message{MsgUnsubscribe, id, subscription}
	})
	return err
}

// Close says GOODBYE and tears down the transport. It waits for the reader
// and dispatcher to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	alreadyClosing := s.closing
	s.closing = true
	s.mu.Unlock()
	if !alreadyClosing {
		_ = s.send(Message{MsgGoodbye, map[string]any{}, closeNormal})
	}
	s.shutdown(ErrClosed)
	s.wg.Wait()
	return nil
}

func (s *Session) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.err = cause
		pending := s.pending
		s.pending = make(map[int64]chan reply)
		s.mu.Unlock()

		_ = s.conn.Close()
		for _, ch := range pending {
			ch <- reply{err: ErrClosed}
		}
		close(s.done)
	})
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	defer close(s.events)
	for {
		msg, err := s.receive()
		if err != nil {
			s.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		if !s.handle(msg) {
			return
		}
	}
}

// handle routes one inbound frame. It returns false once the session ends.
func (s *Session) handle(msg Message) bool {
	switch msg.Code() {
	case MsgResult, MsgSubscribed, MsgUnsubscribed:
		id, _ := msg.Int64(1)
		s.resolve(id, reply{msg: msg})
	case MsgError:
		id, _ := msg.Int64(2)
		s.resolve(id, reply{err: &Error{
			URI:     msg.String(4),
			Details: msg.Dict(3),
			Args:    msg.List(5),
			Kwargs:  msg.Dict(6),
		}})
	case MsgEvent:
		sub, _ := msg.Int64(1)
		pub, _ := msg.Int64(2)
		select {
		case s.events <- Event{Subscription: sub, Publication: pub, Details: msg.Dict(3), Args: msg.List(4), Kwargs: msg.Dict(5)}:
		case <-s.done:
			return false
		}
	case MsgGoodbye:
		s.mu.Lock()
		initiated := s.closing
		s.closing = true
		s.mu.Unlock()
		if !initiated {
			_ = s.send(Message{MsgGoodbye, map[string]any{}, closeGoodbyeReply})
		}
		s.shutdown(fmt.Errorf("%w: router said goodbye: %s", ErrClosed, msg.String(2)))
		return false
	case MsgAbort:
		s.shutdown(fmt.Errorf("%w: router aborted: %s", ErrClosed, msg.String(2)))
		return false
	default:
		s.logger.Debug("ignoring wamp message", logging.Int("code", msg.Code()))
	}
	return true
}

func (s *Session) resolve(id int64, r reply) {
	s.mu.Lock()
	ch, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()
	if ok {
		ch <- r
	}
}

func (s *Session) dispatchLoop() {
	defer s.wg.Done()
	for ev := range s.events {
		s.mu.Lock()
		handler := s.handlers[ev.Subscription]
		s.mu.Unlock()
		if handler != nil {
			handler(ev)
		}
	}
}
