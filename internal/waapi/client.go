package waapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reawwise/internal/logging"
	"reawwise/internal/services"
	"reawwise/internal/wamp"
)

// Caller issues one WAAPI call. Preview and import code depend on this
// interface so they can run against an in-process fake.
type Caller interface {
	Call(ctx context.Context, procedure string, args, options map[string]any) (map[string]any, error)
}

// CallError describes a failed call: the procedure, the remote message and
// error URI, and the raw error payload.
type CallError struct {
	Procedure string
	Message   string
	URI       string
	Raw       map[string]any
	Err       error
}

func (e *CallError) Error() string {
	switch {
	case e.Message != "" && e.URI != "":
		return fmt.Sprintf("%s failed: %s (%s)", e.Procedure, e.Message, e.URI)
	case e.Message != "":
		return fmt.Sprintf("%s failed: %s", e.Procedure, e.Message)
	case e.URI != "":
		return fmt.Sprintf("%s failed: %s", e.Procedure, e.URI)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Procedure, e.Err)
	default:
		return e.Procedure + " failed"
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// IsUnknownObject reports whether err is Wwise rejecting a path or id that
// does not exist.
func IsUnknownObject(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr) && callErr.URI == ErrURIUnknownObject
}

// Response is delivered by Go.
type Response struct {
	Result map[string]any
	Err    error
}

// SubscriptionID identifies a topic subscription.
type SubscriptionID int64

// Options configures Connect.
type Options struct {
	URL        string
	Serializer string
	// CallTimeout bounds each call when the caller's context has no deadline.
	// Zero blocks until the transport fails.
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Client is a WAAPI connection.
type Client struct {
	session *wamp.Session
	timeout time.Duration
	logger  *slog.Logger
}

// Connect dials the WAAPI router.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	serializer, err := wamp.SerializerFor(opts.Serializer)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "waapi", "connect", "serializer", err)
	}
	session, err := wamp.Dial(ctx, wamp.Options{
		URL:        opts.URL,
		Realm:      wamp.DefaultRealm,
		Serializer: serializer,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrNotConnected, "waapi", "connect", opts.URL, err)
	}
	return &Client{
		session: session,
		timeout: opts.CallTimeout,
		logger:  logging.NewComponentLogger(opts.Logger, "waapi"),
	}, nil
}

// Call issues procedure with args as keyword arguments. WAAPI options travel
// in the "options" keyword.
func (c *Client) Call(ctx context.Context, procedure string, args, options map[string]any) (map[string]any, error) {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	kwargs := make(map[string]any, len(args)+1)
	for k, v := range args {
		kwargs[k] = v
	}
	if len(options) > 0 {
		kwargs["options"] = options
	}

	start := time.Now()
	result, err := c.session.Call(ctx, procedure, nil, kwargs)
	if err != nil {
		callErr := toCallError(procedure, err)
		logging.WithContext(ctx, c.logger).Debug("waapi call failed",
			logging.Procedure(procedure),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(callErr),
		)
		return nil, callErr
	}
	logging.WithContext(ctx, c.logger).Debug("waapi call",
		logging.Procedure(procedure),
		logging.Duration("elapsed", time.Since(start)),
	)
	if result.Kwargs == nil {
		return map[string]any{}, nil
	}
	return result.Kwargs, nil
}

func toCallError(procedure string, err error) *CallError {
	var wampErr *wamp.Error
	if errors.As(err, &wampErr) {
		msg, _ := wampErr.Kwargs["message"].(string)
		return &CallError{
			Procedure: procedure,
			Message:   msg,
			URI:       wampErr.URI,
			Raw:       wampErr.Kwargs,
			Err:       services.ErrRemoteCall,
		}
	}
	var wrapped error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		wrapped = fmt.Errorf("%w: %w", services.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		wrapped = err
	default:
		wrapped = fmt.Errorf("%w: %w", services.ErrNotConnected, err)
	}
	return &CallError{Procedure: procedure, Message: err.Error(), Err: wrapped}
}

// Go issues the call on its own goroutine and delivers the outcome on the
// returned channel.
func (c *Client) Go(ctx context.Context, procedure string, args, options map[string]any) <-chan Response {
	ch := make(chan Response, 1)
	go func() {
		result, err := c.Call(ctx, procedure, args, options)
		ch <- Response{Result: result, Err: err}
	}()
	return ch
}

// Subscribe registers handler for topic. The handler receives the event
// keyword arguments on the session's dispatch goroutine.
func (c *Client) Subscribe(ctx context.Context, topic string, options map[string]any, handler func(map[string]any)) (SubscriptionID, error) {
	id, err := c.session.Subscribe(ctx, topic, options, func(ev wamp.Event) {
		handler(ev.Kwargs)
	})
	if err != nil {
		return 0, toCallError(topic, err)
	}
	return SubscriptionID(id), nil
}

// Unsubscribe cancels a subscription.
func (c *Client) Unsubscribe(ctx context.Context, id SubscriptionID) error {
	if err := c.session.Unsubscribe(ctx, int64(id)); err != nil {
		return toCallError("unsubscribe", err)
	}
	return nil
}

// Done is closed when the connection is lost.
func (c *Client) Done() <-chan struct{} { return c.session.Done() }

// Close ends the session.
func (c *Client) Close() error { return c.session.Close() }

// NewRemoteError builds the error a router reports for a rejected call.
func NewRemoteError(procedure, uri, message string) *CallError {
	return &CallError{
		Procedure: procedure,
		Message:   message,
		URI:       uri,
		Raw:       map[string]any{"message": message},
		Err:       services.ErrRemoteCall,
	}
}
