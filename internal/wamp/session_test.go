package wamp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
	"reawwise/internal/wamp"
)

func dial(t *testing.T, router *testsupport.Router, serializer wamp.Serializer) *wamp.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session, err := wamp.Dial(ctx, wamp.Options{URL: router.URL(), Serializer: serializer})
	if err != nil {
		t.Fatalf("Dial returned error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestCallRoundTripBothSerializers(t *testing.T) {
	for _, serializer := range []wamp.Serializer{wamp.JSONSerializer{}, wamp.CBORSerializer{}} {
		t.Run(serializer.Subprotocol(), func(t *testing.T) {
			router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
			session := dial(t, router, serializer)
			if session.ID() == 0 {
				t.Fatal("expected session id from welcome")
			}

			result, err := session.Call(context.Background(), waapi.ProcGetInfo, nil, nil)
			if err != nil {
				t.Fatalf("Call returned error: %v", err)
			}
			version := wamp.ToDict(result.Kwargs["version"])
			year, ok := wamp.ToInt64(version["year"])
			if !ok || year != 2023 {
				t.Fatalf("unexpected version %v", result.Kwargs["version"])
			}
		})
	}
}

func TestCallErrorCarriesURIAndMessage(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	session := dial(t, router, wamp.JSONSerializer{})

	_, err := session.Call(context.Background(), waapi.ProcObjectGet, nil, map[string]any{
		"from": map[string]any{"path": []any{`\Missing`}},
	})
	var wampErr *wamp.Error
	if !errors.As(err, &wampErr) {
		t.Fatalf("expected *wamp.Error, got %v", err)
	}
	if wampErr.URI != waapi.ErrURIUnknownObject {
		t.Fatalf("unexpected uri %q", wampErr.URI)
	}
	if msg, _ := wampErr.Kwargs["message"].(string); msg == "" {
		t.Fatal("expected error message")
	}
}

func TestSubscribeReceivesEventsUntilUnsubscribed(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	session := dial(t, router, wamp.CBORSerializer{})

	events := make(chan wamp.Event, 4)
	id, err := session.Subscribe(context.Background(), waapi.TopicObjectCreated, nil, func(ev wamp.Event) {
		events <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	router.Publish(waapi.TopicObjectCreated, map[string]any{"object": map[string]any{"name": "kick"}})
	select {
	case ev := <-events:
		if ev.Subscription != id {
			t.Fatalf("event for subscription %d, want %d", ev.Subscription, id)
		}
		obj := wamp.ToDict(ev.Kwargs["object"])
		if obj["name"] != "kick" {
			t.Fatalf("unexpected event payload %v", ev.Kwargs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if err := session.Unsubscribe(context.Background(), id); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}
	if n := router.Subscriptions(waapi.TopicObjectCreated); n != 0 {
		t.Fatalf("expected no subscriptions, got %d", n)
	}
}

func TestDoneClosesOnTransportLoss(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	session := dial(t, router, wamp.JSONSerializer{})

	router.DropConnections()
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("expected session to end after transport loss")
	}
	if !errors.Is(session.Err(), wamp.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", session.Err())
	}
	if _, err := session.Call(context.Background(), waapi.ProcGetInfo, nil, nil); !errors.Is(err, wamp.ErrClosed) {
		t.Fatalf("expected ErrClosed for call after loss, got %v", err)
	}
}

func TestCallHonoursContext(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	fake.Handle("test.block", func(map[string]any, map[string]any) (map[string]any, error) {
		<-block
		return map[string]any{}, nil
	})
	router := testsupport.NewRouter(t, fake)
	session := dial(t, router, wamp.JSONSerializer{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := session.Call(ctx, "test.block", nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDialFailsWithoutRouter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := wamp.Dial(ctx, wamp.Options{URL: "ws://127.0.0.1:1/waapi"}); err == nil {
		t.Fatal("expected dial error")
	}
}
