package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"silkstaff/internal/config"
)

const userAgent = "Silkstaff-Go/0.1.0"

// Event names a notification-worthy job milestone.
type Event string

const (
	EventJobStarted   Event = "job_started"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Recognised keys depend on the event:
// job, total, start, processed, failed, duration, index, error.
type Payload map[string]any

// Service publishes job events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	job := payloadString(payload, "job")
	if job == "" {
		job = "job"
	}
	switch event {
	case EventJobStarted:
		body := fmt.Sprintf("▶️ Started %s: %d steps", job, payloadInt(payload, "total"))
		if start := payloadInt(payload, "start"); start > 0 {
			body = fmt.Sprintf("▶️ Resumed %s at step %d of %d", job, start+1, payloadInt(payload, "total"))
		}
		return message{
			title: "Silkstaff - Job Started",
			body:  body,
			tags:  []string{"silkstaff", job, "started"},
		}, true
	case EventJobCompleted:
		processed := payloadInt(payload, "processed")
		failed := payloadInt(payload, "failed")
		duration := payloadDuration(payload, "duration")
		title := "Silkstaff - Job Complete"
		body := fmt.Sprintf("✅ %s complete: %d processed in %s", job, processed, duration)
		if failed > 0 {
			title = "Silkstaff - Job Complete (with errors)"
			body = fmt.Sprintf("⚠️ %s complete: %d succeeded, %d failed in %s", job, processed, failed, duration)
		}
		return message{title: title, body: body, tags: []string{"silkstaff", job, "completed"}}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ ")
		builder.WriteString(job)
		builder.WriteString(" stopped")
		if _, ok := payload["index"]; ok {
			fmt.Fprintf(&builder, " at step %d", payloadInt(payload, "index")+1)
		}
		builder.WriteString(": ")
		if errText := payloadString(payload, "error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Silkstaff - Job Failed",
			body:     builder.String(),
			tags:     []string{"silkstaff", job, "error"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Silkstaff - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"silkstaff", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(p Payload, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func payloadInt(p Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(p Payload, key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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
