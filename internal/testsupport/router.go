package testsupport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/net/websocket"

	"reawwise/internal/waapi"
	"reawwise/internal/wamp"
)

// Router serves a waapi.Caller as a WAMP router over an httptest server. It
// speaks both wamp.2.json and wamp.2.cbor and supports topic publication.
type Router struct {
	t       testing.TB
	backend waapi.Caller
	server  *httptest.Server

	mu        sync.Mutex
	conns     map[*routerConn]struct{}
	nextSub   int64
	sessions  int
	accepting bool
}

type routerConn struct {
	ws         *websocket.Conn
	serializer wamp.Serializer
	writeMu    sync.Mutex
	subs       map[int64]string
}

// NewRouter starts a router backed by backend. It is closed with the test.
func NewRouter(t testing.TB, backend waapi.Caller) *Router {
	t.Helper()
	r := &Router{
		t:         t,
		backend:   backend,
		conns:     make(map[*routerConn]struct{}),
		accepting: true,
	}
	server := websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error {
			for _, p := range cfg.Protocol {
				if _, ok := wamp.SerializerForSubprotocol(p); ok {
					cfg.Protocol = []string{p}
					return nil
				}
			}
			return errors.New("no supported subprotocol")
		},
		Handler: r.serve,
	}
	mux := http.NewServeMux()
	mux.Handle("/waapi", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		accepting := r.accepting
		r.mu.Unlock()
		if !accepting {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		server.ServeHTTP(w, req)
	}))
	r.server = httptest.NewServer(mux)
	t.Cleanup(r.Close)
	return r
}

// URL returns the ws:// endpoint.
func (r *Router) URL() string {
	return "ws" + r.server.URL[len("http"):] + "/waapi"
}

// Host returns the listener host.
func (r *Router) Host() string {
	u, _ := url.Parse(r.server.URL)
	host, _, _ := net.SplitHostPort(u.Host)
	return host
}

// Port returns the listener port.
func (r *Router) Port() int {
	u, _ := url.Parse(r.server.URL)
	_, port, _ := net.SplitHostPort(u.Host)
	n, _ := strconv.Atoi(port)
	return n
}

// Sessions returns how many sessions completed the handshake.
func (r *Router) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// SetAccepting toggles whether new connections are accepted.
func (r *Router) SetAccepting(accepting bool) {
	r.mu.Lock()
	r.accepting = accepting
	r.mu.Unlock()
}

// DropConnections closes every live connection, simulating the authoring
// tool going away.
func (r *Router) DropConnections() {
	r.mu.Lock()
	conns := make([]*routerConn, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
}

// Subscriptions returns the number of live subscriptions to topic.
func (r *Router) Subscriptions(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for c := range r.conns {
		for _, t := range c.subs {
			if t == topic {
				n++
			}
		}
	}
	return n
}

// Publish sends an EVENT with kwargs to every subscriber of topic.
func (r *Router) Publish(topic string, kwargs map[string]any) {
	type target struct {
		conn *routerConn
		sub  int64
	}
	r.mu.Lock()
	var targets []target
	for c := range r.conns {
		for id, t := range c.subs {
			if t == topic {
				targets = append(targets, target{c, id})
			}
		}
	}
	r.mu.Unlock()
	for i, tg := range targets {
		_ = tg.conn.send(wamp.Message{wamp.MsgEvent, tg.sub, int64(i + 1), map[string]any{}, []any{}, kwargs})
	}
}

// Close stops the server and drops connections.
func (r *Router) Close() {
	r.DropConnections()
	r.server.Close()
}

func (c *routerConn) send(msg wamp.Message) error {
	data, err := c.serializer.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.serializer.Binary() {
		return websocket.Message.Send(c.ws, data)
	}
	return websocket.Message.Send(c.ws, string(data))
}

func (r *Router) serve(ws *websocket.Conn) {
	serializer, ok := wamp.SerializerForSubprotocol(ws.Config().Protocol[0])
	if !ok {
		return
	}
	conn := &routerConn{ws: ws, serializer: serializer, subs: make(map[int64]string)}
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.conns, conn)
		r.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			return
		}
		msg, err := serializer.Unmarshal(data)
		if err != nil {
			return
		}
		if !r.handle(conn, msg) {
			return
		}
	}
}

func (r *Router) handle(conn *routerConn, msg wamp.Message) bool {
	switch msg.Code() {
	case wamp.MsgHello:
		r.mu.Lock()
		r.sessions++
		id := int64(r.sessions)
		r.mu.Unlock()
		_ = conn.send(wamp.Message{wamp.MsgWelcome, id, map[string]any{"roles": map[string]any{"broker": map[string]any{}, "dealer": map[string]any{}}}})
	case wamp.MsgCall:
		reqID, _ := msg.Int64(1)
		procedure := msg.String(3)
		kwargs := msg.Dict(5)
		args := make(map[string]any, len(kwargs))
		var options map[string]any
		for k, v := range kwargs {
			if k == "options" {
				options = wamp.ToDict(v)
				continue
			}
			args[k] = normalize(v)
		}
		go func() {
			result, err := r.backend.Call(context.Background(), procedure, args, options)
			if err != nil {
				uri, message := "ak.wwise.error", err.Error()
				var callErr *waapi.CallError
				if errors.As(err, &callErr) {
					uri, message = callErr.URI, callErr.Message
				}
				_ = conn.send(wamp.Message{wamp.MsgError, wamp.MsgCall, reqID, map[string]any{}, uri, []any{}, map[string]any{"message": message}})
				return
			}
			_ = conn.send(wamp.Message{wamp.MsgResult, reqID, map[string]any{}, []any{}, result})
		}()
	case wamp.MsgSubscribe:
		reqID, _ := msg.Int64(1)
		topic := msg.String(3)
		r.mu.Lock()
		r.nextSub++
		subID := r.nextSub
		conn.subs[subID] = topic
		r.mu.Unlock()
		_ = conn.send(wamp.Message{wamp.MsgSubscribed, reqID, subID})
	case wamp.MsgUnsubscribe:
		reqID, _ := msg.Int64(1)
		subID, _ := msg.Int64(2)
		r.mu.Lock()
		delete(conn.subs, subID)
		r.mu.Unlock()
		_ = conn.send(wamp.Message{wamp.MsgUnsubscribed, reqID})
	case wamp.MsgGoodbye:
		_ = conn.send(wamp.Message{wamp.MsgGoodbye, map[string]any{}, "wamp.close.goodbye_and_out"})
		return false
	}
	return true
}

// normalize converts nested decoded values into the shapes an in-process
// caller would pass: map[string]any dictionaries and []any lists.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any, map[any]any:
		d := wamp.ToDict(t)
		for k, val := range d {
			d[k] = normalize(val)
		}
		return d
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	default:
		return v
	}
}
