package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postline/internal/config"
)

const userAgent = "Postline/0.1.0"

const defaultServer = "https://ntfy.sh/"

// Event identifies a notification-worthy lifecycle milestone.
type Event string

const (
	EventItemQueued         Event = "item_queued"
	EventItemPosted         Event = "item_posted"
	EventRetryScheduled     Event = "retry_scheduled"
	EventItemFailed         Event = "item_failed"
	EventItemRecovered      Event = "item_recovered"
	EventSessionUnavailable Event = "session_unavailable"
	EventError              Event = "error"
	EventTest               Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes events to the configured transport.
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
		endpoint: resolveEndpoint(topic),
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventItemQueued:         cfg.Notifications.Queued,
			EventItemPosted:         cfg.Notifications.Posted,
			EventRetryScheduled:     cfg.Notifications.Retry,
			EventItemRecovered:      cfg.Notifications.Retry,
			EventItemFailed:         cfg.Notifications.Failed,
			EventSessionUnavailable: cfg.Notifications.Session,
			EventError:              true,
			EventTest:               true,
		},
	}
}

// resolveEndpoint accepts either a full URL or a bare topic on ntfy.sh.
func resolveEndpoint(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultServer + strings.TrimPrefix(topic, "/")
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	item := itemLabel(payload)
	switch event {
	case EventItemQueued:
		return message{
			title: "Postline - Queued",
			body:  fmt.Sprintf("📥 Queued: %s", item),
			tags:  []string{"postline", "queue", "added"},
		}, true
	case EventItemPosted:
		body := fmt.Sprintf("✅ Posted: %s", item)
		if attempts := payloadInt(payload, "attempts"); attempts > 1 {
			body = fmt.Sprintf("%s (attempt %d)", body, attempts)
		}
		return message{
			title: "Postline - Posted",
			body:  body,
			tags:  []string{"postline", "upload", "posted"},
		}, true
	case EventRetryScheduled:
		return message{
			title: "Postline - Retry Scheduled",
			body: fmt.Sprintf("🔁 Upload of %s will be retried (attempt %d of %d): %s",
				item, payloadInt(payload, "attempts"), payloadInt(payload, "maxAttempts"), payloadString(payload, "reason")),
			tags: []string{"postline", "upload", "retry"},
		}, true
	case EventItemRecovered:
		return message{
			title: "Postline - Upload Interrupted",
			body:  fmt.Sprintf("⚠️ Recovered interrupted upload of %s: %s", item, payloadString(payload, "reason")),
			tags:  []string{"postline", "upload", "recovered"},
		}, true
	case EventItemFailed:
		return message{
			title:    "Postline - Upload Failed",
			body:     fmt.Sprintf("❌ Upload failed: %s\n%s", item, payloadString(payload, "reason")),
			tags:     []string{"postline", "upload", "failed"},
			priority: "high",
		}, true
	case EventSessionUnavailable:
		return message{
			title:    "Postline - Session Unavailable",
			body:     fmt.Sprintf("🔑 Publishing session unavailable: %s", payloadString(payload, "reason")),
			tags:     []string{"postline", "session", "alert"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := payloadString(payload, "error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Postline - Error",
			body:     builder.String(),
			tags:     []string{"postline", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Postline - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"postline", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func itemLabel(payload Payload) string {
	name := payloadString(payload, "payload")
	if id := payloadInt(payload, "itemID"); id > 0 {
		if name == "" {
			return fmt.Sprintf("item #%d", id)
		}
		return fmt.Sprintf("%s (item #%d)", name, id)
	}
	if name == "" {
		return "unknown item"
	}
	return name
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(payload Payload, key string) int64 {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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
