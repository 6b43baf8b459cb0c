package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shipit/internal/config"
)

const userAgent = "shipit/0.1.0"

// Service defines the notification surface exposed to the workflow controller.
type Service interface {
	NotifyWorkflowCompleted(ctx context.Context, label string, elapsed time.Duration, simulate bool) error
	NotifyWorkflowFailed(ctx context.Context, label, stage, diagnostic string) error
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

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
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

func (n *ntfyService) NotifyWorkflowCompleted(ctx context.Context, label string, elapsed time.Duration, simulate bool) error {
	label = strings.TrimSpace(label)
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	message := fmt.Sprintf("%s finished in %s", label, elapsed)
	tags := []string{"shipit", "workflow", "completed"}
	if simulate {
		message += " (simulated)"
		tags = append(tags, "simulate")
	}
	data := payload{
		title:   "shipit - " + label,
		message: message,
		tags:    tags,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkflowFailed(ctx context.Context, label, stage, diagnostic string) error {
	var builder strings.Builder
	builder.WriteString(strings.TrimSpace(label))
	builder.WriteString(" failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" at ")
		builder.WriteString(stage)
	}
	if diagnostic = strings.TrimSpace(diagnostic); diagnostic != "" {
		builder.WriteString(": ")
		builder.WriteString(diagnostic)
	}

	data := payload{
		title:    "shipit - Error",
		message:  builder.String(),
		tags:     []string{"shipit", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "shipit - Test",
		message:  "Notification system test",
		tags:     []string{"shipit", "test"},
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

type noopService struct{}

func (noopService) NotifyWorkflowCompleted(context.Context, string, time.Duration, bool) error {
	return nil
}
func (noopService) NotifyWorkflowFailed(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
