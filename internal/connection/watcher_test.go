package connection_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"reawwise/internal/connection"
	"reawwise/internal/eventbus"
	"reawwise/internal/logging"
	"reawwise/internal/services"
	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startWatcher(t *testing.T, router *testsupport.Router, bus *eventbus.Bus, opts ...testsupport.ConfigOption) *connection.Watcher {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithRouter(router)}, opts...)...)
	w := connection.New(connection.OptionsFromConfig(cfg), bus, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop returned error: %v", err)
		}
	})
	return w
}

func connected(w *connection.Watcher) func() bool {
	return func() bool { return w.Snapshot().State == connection.Connected }
}

func TestWatcherConnectsAndSubscribes(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI("/originals"))
	w := startWatcher(t, router, nil)
	eventually(t, "connected", connected(w))

	snap := w.Snapshot()
	if snap.Info.Version.Year != 2023 || !snap.Info.Capabilities.WAQL {
		t.Fatalf("unexpected info %+v", snap.Info)
	}
	if snap.Project.Name != "Fake" || snap.Project.OriginalsDir != "/originals" {
		t.Fatalf("unexpected project %+v", snap.Project)
	}
	for _, topic := range []string{
		waapi.TopicProjectLoaded,
		waapi.TopicProjectPreClosed,
		waapi.TopicObjectCreated,
		waapi.TopicObjectPostDeleted,
		waapi.TopicObjectNameChanged,
	} {
		if n := router.Subscriptions(topic); n != 1 {
			t.Fatalf("expected one subscription to %s, got %d", topic, n)
		}
	}
	caller, err := w.Caller()
	if err != nil {
		t.Fatalf("Caller returned error: %v", err)
	}
	if _, err := waapi.GetInfo(context.Background(), caller); err != nil {
		t.Fatalf("GetInfo through watcher caller failed: %v", err)
	}
}

func TestWatcherSpeaksCBOR(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI("/originals"))
	w := startWatcher(t, router, nil, testsupport.WithSerializer("cbor"))
	eventually(t, "connected", connected(w))

	caller, err := w.Caller()
	if err != nil {
		t.Fatalf("Caller returned error: %v", err)
	}
	project, err := waapi.GetProjectInfo(context.Background(), caller)
	if err != nil {
		t.Fatalf("GetProjectInfo over cbor failed: %v", err)
	}
	if project.Name != "Fake" {
		t.Fatalf("unexpected project %+v", project)
	}
}

func TestWatcherMarksStateStaleOnEvents(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	router := testsupport.NewRouter(t, fake)
	bus := eventbus.New(32)
	sub := bus.Subscribe(16, eventbus.TopicProject, eventbus.TopicObjects)
	defer sub.Close()
	w := startWatcher(t, router, bus)
	eventually(t, "connected", connected(w))

	fake.ResetCalls()
	router.Publish(waapi.TopicObjectCreated, map[string]any{"object": map[string]any{"id": "{1}"}})
	evt := <-sub.C
	if evt.Topic != eventbus.TopicObjects || evt.Payload != connection.ReasonObjectCreated {
		t.Fatalf("unexpected event %+v", evt)
	}
	if !w.ConsumeObjectsChanged() {
		t.Fatal("expected objects changed flag")
	}
	if w.ConsumeObjectsChanged() {
		t.Fatal("expected flag to clear once consumed")
	}
	if n := fake.CallCount(waapi.ProcObjectGet); n != 0 {
		t.Fatalf("handler must not refetch objects, saw %d calls", n)
	}

	router.Publish(waapi.TopicProjectLoaded, map[string]any{})
	evt = <-sub.C
	if evt.Topic != eventbus.TopicProject {
		t.Fatalf("unexpected event %+v", evt)
	}
	snap := w.Snapshot()
	if !snap.ProjectStale || snap.Project.ID != "" {
		t.Fatalf("expected stale project, got %+v", snap)
	}
	before := fake.CallCount(waapi.ProcGetProjectInfo)
	project, err := w.Project(context.Background())
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	if project.ID == "" || w.Snapshot().ProjectStale {
		t.Fatalf("expected refreshed project, got %+v", project)
	}
	if fake.CallCount(waapi.ProcGetProjectInfo) != before+1 {
		t.Fatal("expected exactly one project refetch")
	}
	if _, err := w.Project(context.Background()); err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	if fake.CallCount(waapi.ProcGetProjectInfo) != before+1 {
		t.Fatal("expected fresh project to be served without a call")
	}
}

func TestWatcherReconnectsAfterDrop(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	bus := eventbus.New(64)
	sub := bus.Subscribe(64, eventbus.TopicConnection)
	defer sub.Close()
	w := startWatcher(t, router, bus)
	eventually(t, "connected", connected(w))

	router.DropConnections()
	sawDisconnect := false
	deadline := time.After(5 * time.Second)
	for router.Sessions() < 2 || w.Snapshot().State != connection.Connected {
		select {
		case evt := <-sub.C:
			if snap, ok := evt.Payload.(connection.Snapshot); ok && snap.State == connection.Disconnected {
				sawDisconnect = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for reconnect")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !sawDisconnect {
		t.Fatal("expected a disconnected notification")
	}
}

func TestWatcherBacksOffWhileUnavailable(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	router.SetAccepting(false)
	w := startWatcher(t, router, nil)

	eventually(t, "repeated failures", func() bool { return w.Snapshot().Failures >= 3 })
	snap := w.Snapshot()
	if snap.State == connection.Connected {
		t.Fatal("expected not connected")
	}
	if snap.RetryIn <= 0 || snap.LastError == "" {
		t.Fatalf("expected retry bookkeeping, got %+v", snap)
	}
	if _, err := w.Caller(); !errors.Is(err, services.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}

	router.SetAccepting(true)
	eventually(t, "connected", connected(w))
	if w.Snapshot().Failures != 0 {
		t.Fatal("expected failures reset after connect")
	}
}

func TestWatcherSetAddressMovesConnection(t *testing.T) {
	first := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	second := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	w := startWatcher(t, first, nil)
	eventually(t, "connected", connected(w))

	w.SetAddress(second.URL())
	eventually(t, "second router session", func() bool {
		return second.Sessions() == 1 && w.Snapshot().State == connection.Connected
	})
	eventually(t, "old subscriptions dropped", func() bool {
		return first.Subscriptions(waapi.TopicProjectLoaded) == 0
	})
	if got := w.Snapshot().Address; got != second.URL() {
		t.Fatalf("unexpected address %q", got)
	}
}

func TestWatcherUsesInjectedDialer(t *testing.T) {
	var attempts atomic.Int32
	w := connection.New(connection.Options{
		Address:       "ws://unused",
		MinRetryDelay: time.Millisecond,
		MaxRetryDelay: 4 * time.Millisecond,
		Dial: func(ctx context.Context, address string) (connection.Conn, error) {
			attempts.Add(1)
			return nil, errors.New("refused")
		},
	}, nil, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	eventually(t, "dial attempts", func() bool { return attempts.Load() >= 4 })
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("restart returned error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
}
