package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shipit/internal/config"
	"shipit/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic says no"))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func configFor(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 2
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "  "
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyWorkflowFailed(context.Background(), "Build", "build", "exit 1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(srv.URL))
	ctx := context.Background()

	if err := svc.NotifyWorkflowCompleted(ctx, "Build", 95*time.Second+300*time.Millisecond, false); err != nil {
		t.Fatalf("NotifyWorkflowCompleted: %v", err)
	}
	if err := svc.NotifyWorkflowCompleted(ctx, "Push", 2*time.Second, true); err != nil {
		t.Fatalf("NotifyWorkflowCompleted simulate: %v", err)
	}
	if err := svc.NotifyWorkflowFailed(ctx, "Pull", "git_pull", "execution failed (1)"); err != nil {
		t.Fatalf("NotifyWorkflowFailed: %v", err)
	}

	if len(*got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(*got))
	}
	tests := []captured{
		{title: "shipit - Build", tags: "shipit,workflow,completed", body: "Build finished in 1m35s"},
		{title: "shipit - Push", tags: "shipit,workflow,completed,simulate", body: "Push finished in 2s (simulated)"},
		{title: "shipit - Error", tags: "shipit,error,alert", priority: "high", body: "Pull failed at git_pull: execution failed (1)"},
	}
	for i, want := range tests {
		if (*got)[i] != want {
			t.Fatalf("request %d: got %#v, want %#v", i, (*got)[i], want)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(srv.URL))

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic says no") {
		t.Fatalf("unexpected error text: %v", err)
	}
}
