package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"fontana/internal/config"
	"fontana/internal/notifications"
)

type captured struct {
	title, tags, priority, body string
}

func newCaptureServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "batch completed",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"kind": "holdings", "checked": 15, "updated": 12, "draft": 2, "trash": 1,
			},
			expectTitle:   "Fontana - Sweep Complete",
			expectMessage: "holdings: 15 checked, 12 updated, 2 drafted, 1 trashed, 0 failed",
			expectTags:    "fontana,batch,holdings",
		},
		{
			name:          "batch with failures",
			event:         notifications.EventBatchCompleted,
			payload:       notifications.Payload{"kind": "failed", "checked": 10, "failed": int64(3)},
			expectTitle:   "Fontana - Sweep Complete (with failures)",
			expectMessage: "failed: 10 checked, 0 updated, 0 drafted, 0 trashed, 3 failed",
			expectTags:    "fontana,batch,failed",
		},
		{
			name:           "sweep failed",
			event:          notifications.EventSweepFailed,
			payload:        notifications.Payload{"kind": "deleted", "error": "database is locked"},
			expectTitle:    "Fontana - Error",
			expectMessage:  "Sweep failed: deleted: database is locked",
			expectTags:     "fontana,error,alert",
			expectPriority: "high",
		},
		{
			name:          "alert sent",
			event:         notifications.EventAlertSent,
			payload:       notifications.Payload{"subject": "New Closing: Sylva", "recipients": 4},
			expectTitle:   "Fontana - Alert Emailed",
			expectMessage: "New Closing: Sylva (4 recipients)",
			expectTags:    "fontana,alert,email",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Fontana - Test",
			expectMessage:  "Notification system test",
			expectTags:     "fontana,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)

			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			calls := got()
			if len(calls) != 1 {
				t.Fatalf("expected one request, got %d", len(calls))
			}
			c := calls[0]
			if c.title != tc.expectTitle {
				t.Errorf("title = %q, want %q", c.title, tc.expectTitle)
			}
			if c.body != tc.expectMessage {
				t.Errorf("message = %q, want %q", c.body, tc.expectMessage)
			}
			if c.tags != tc.expectTags {
				t.Errorf("tags = %q, want %q", c.tags, tc.expectTags)
			}
			if c.priority != tc.expectPriority {
				t.Errorf("priority = %q, want %q", c.priority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server, got := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Batch = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	for _, event := range []notifications.Event{
		notifications.EventBatchCompleted,
		notifications.EventSweepFailed,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(ctx, event, notifications.Payload{"kind": "failed"}); err != nil {
			t.Fatalf("Publish(%s): %v", event, err)
		}
	}
	if n := len(got()); n != 0 {
		t.Fatalf("expected suppressed events to skip the server, got %d requests", n)
	}
}

func TestNtfyServiceDeduplicatesWithinWindow(t *testing.T) {
	server, got := newCaptureServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.DedupWindowSeconds = 60

	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := notifications.NewService(&cfg, notifications.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	fail := notifications.Payload{"kind": "failed", "error": "timeout"}

	for range 3 {
		if err := svc.Publish(ctx, notifications.EventSweepFailed, fail); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if n := len(got()); n != 1 {
		t.Fatalf("repeats inside the window: got %d requests, want 1", n)
	}

	if err := svc.Publish(ctx, notifications.EventSweepFailed, notifications.Payload{"kind": "failed", "error": "refused"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	now = now.Add(time.Minute)
	if err := svc.Publish(ctx, notifications.EventSweepFailed, fail); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n := len(got()); n != 3 {
		t.Fatalf("distinct and expired notices: got %d requests, want 3", n)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
