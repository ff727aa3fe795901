package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reawwise/internal/config"
	"reawwise/internal/importer"
	"reawwise/internal/wwise"
)

const userAgent = "reawwise/0.1.0"

// Service defines the notification surface used by the daemon and CLI.
type Service interface {
	NotifyImportFinished(ctx context.Context, session string, summary *importer.Summary, elapsed time.Duration) error
	NotifyImportFailed(ctx context.Context, session string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.Notifications.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyImportFinished(ctx context.Context, session string, summary *importer.Summary, elapsed time.Duration) error {
	session = sessionLabel(session)
	data := payload{
		title:   "reawwise - Transfer Complete",
		message: fmt.Sprintf("Transferred %s to Wwise in %s", session, formatElapsed(elapsed)),
		tags:    []string{"reawwise", "transfer", "completed"},
	}
	if summary != nil {
		sounds := summary.Count(wwise.SoundSFX, wwise.StatusNew) + summary.Count(wwise.SoundVoice, wwise.StatusNew)
		data.message = fmt.Sprintf("%s\n%d created (%d sounds), %d replaced, %d files",
			data.message, summary.ObjectsCreated, sounds, summary.ObjectsReplaced, summary.FilesTransferred)
		if summary.HasErrors() {
			data.title = "reawwise - Transfer Complete (with errors)"
			data.message = fmt.Sprintf("%s\n%d remote errors, first: %s", data.message, len(summary.Errors), summary.Errors[0].Message)
			data.tags = []string{"reawwise", "transfer", "warning"}
			data.priority = "high"
		}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyImportFailed(ctx context.Context, session string, err error) error {
	var builder strings.Builder
	builder.WriteString("Transfer of ")
	builder.WriteString(sessionLabel(session))
	builder.WriteString(" failed: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "reawwise - Transfer Failed",
		message:  builder.String(),
		tags:     []string{"reawwise", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "reawwise - Test",
		message:  "Notification system test",
		tags:     []string{"reawwise", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func sessionLabel(session string) string {
	if session = strings.TrimSpace(session); session == "" {
		return "session"
	}
	return session
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyImportFinished(context.Context, string, *importer.Summary, time.Duration) error {
	return nil
}
func (noopService) NotifyImportFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
