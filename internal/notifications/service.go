package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fontana/internal/config"
)

const userAgent = "Fontana/0.1.0"

// Event names an operator notice.
type Event string

const (
	EventBatchCompleted Event = "batch_completed"
	EventSweepFailed    Event = "sweep_failed"
	EventAlertSent      Event = "alert_sent"
	EventTest           Event = "test"
)

// Payload carries the event fields used to render a notice.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) num(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Service publishes operator notices.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Option configures the ntfy service.
type Option func(*ntfyService)

// WithClock overrides the clock used by the dedup window.
func WithClock(now func() time.Time) Option {
	return func(n *ntfyService) {
		if now != nil {
			n.now = now
		}
	}
}

// NewService builds an ntfy-backed service, or a noop one when no topic is
// configured.
func NewService(cfg *config.Config, opts ...Option) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
		window:   time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		now:      time.Now,
		sent:     map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
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
	batch    bool
	errors   bool
	window   time.Duration
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, p Payload) error {
	if n == nil {
		return nil
	}
	data, ok := n.render(event, p)
	if !ok {
		return nil
	}
	if n.duplicate(string(event) + "\x00" + data.message) {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) render(event Event, p Payload) (payload, bool) {
	switch event {
	case EventBatchCompleted:
		if !n.batch {
			return payload{}, false
		}
		kind := p.str("kind")
		if kind == "" {
			kind = "batch"
		}
		failed := p.num("failed")
		title := "Fontana - Sweep Complete"
		if failed > 0 {
			title = "Fontana - Sweep Complete (with failures)"
		}
		return payload{
			title: title,
			message: fmt.Sprintf("%s: %d checked, %d updated, %d drafted, %d trashed, %d failed",
				kind, p.num("checked"), p.num("updated"), p.num("draft"), p.num("trash"), failed),
			tags: []string{"fontana", "batch", kind},
		}, true
	case EventSweepFailed:
		if !n.errors {
			return payload{}, false
		}
		var b strings.Builder
		b.WriteString("Sweep failed")
		if label := p.str("kind"); label != "" {
			b.WriteString(": ")
			b.WriteString(label)
		}
		if msg := p.str("error"); msg != "" {
			b.WriteString(": ")
			b.WriteString(msg)
		}
		return payload{
			title:    "Fontana - Error",
			message:  b.String(),
			tags:     []string{"fontana", "error", "alert"},
			priority: "high",
		}, true
	case EventAlertSent:
		return payload{
			title:   "Fontana - Alert Emailed",
			message: fmt.Sprintf("%s (%d recipients)", p.str("subject"), p.num("recipients")),
			tags:    []string{"fontana", "alert", "email"},
		}, true
	case EventTest:
		return payload{
			title:    "Fontana - Test",
			message:  "Notification system test",
			tags:     []string{"fontana", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

// duplicate reports whether key was sent inside the dedup window, recording
// it otherwise.
func (n *ntfyService) duplicate(key string) bool {
	if n.window <= 0 {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	for k, at := range n.sent {
		if now.Sub(at) >= n.window {
			delete(n.sent, k)
		}
	}
	if _, ok := n.sent[key]; ok {
		return true
	}
	n.sent[key] = now
	return false
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.client == nil {
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
