package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reawwise/internal/config"
	"reawwise/internal/importer"
	"reawwise/internal/notifications"
	"reawwise/internal/wwise"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected notifications to be disabled without a topic")
	}
	if err := svc.NotifyImportFailed(context.Background(), "drums", errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("topic is read-only"))
		}
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	clean := &importer.Summary{
		Entries: map[string]*importer.Entry{
			`\a\kick`: {Path: `\a\kick`, Type: wwise.SoundSFX, Status: wwise.StatusNew, Imported: true},
		},
		ObjectsCreated:   2,
		FilesTransferred: 1,
	}
	withErrors := &importer.Summary{
		Entries:         map[string]*importer.Entry{},
		Errors:          []importer.Error{{Procedure: "ak.wwise.core.audio.import", Message: "file locked"}},
		ObjectsReplaced: 1,
	}

	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "import finished",
			send: func(s notifications.Service) error {
				return s.NotifyImportFinished(context.Background(), "drums", clean, 2400*time.Millisecond)
			},
			expectTitle:   "reawwise - Transfer Complete",
			expectMessage: "Transferred drums to Wwise in 2s\n2 created (1 sounds), 0 replaced, 1 files",
			expectTags:    "reawwise,transfer,completed",
		},
		{
			name: "import finished with errors",
			send: func(s notifications.Service) error {
				return s.NotifyImportFinished(context.Background(), "", withErrors, 0)
			},
			expectTitle:    "reawwise - Transfer Complete (with errors)",
			expectMessage:  "Transferred session to Wwise in 0s\n0 created (0 sounds), 1 replaced, 0 files\n1 remote errors, first: file locked",
			expectTags:     "reawwise,transfer,warning",
			expectPriority: "high",
		},
		{
			name: "import failed",
			send: func(s notifications.Service) error {
				return s.NotifyImportFailed(context.Background(), "drums", errors.New("not connected to Wwise"))
			},
			expectTitle:    "reawwise - Transfer Failed",
			expectMessage:  "Transfer of drums failed: not connected to Wwise",
			expectTags:     "reawwise,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "reawwise - Test",
			expectMessage:  "Notification system test",
			expectTags:     "reawwise,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if !notifications.Enabled(svc) {
				t.Fatal("expected notifications to be enabled")
			}
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected notification")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("unexpected error %v", err)
	}
}
