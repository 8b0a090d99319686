package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"postline/internal/config"
	"postline/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventItemPosted, notifications.Payload{"itemID": int64(1)}); err != nil {
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
			name:          "posted",
			event:         notifications.EventItemPosted,
			payload:       notifications.Payload{"itemID": int64(4), "payload": "clip.mp4", "attempts": 1},
			expectTitle:   "Postline - Posted",
			expectMessage: "✅ Posted: clip.mp4 (item #4)",
			expectTags:    "postline,upload,posted",
		},
		{
			name:          "posted after retry",
			event:         notifications.EventItemPosted,
			payload:       notifications.Payload{"itemID": int64(4), "payload": "clip.mp4", "attempts": 2},
			expectTitle:   "Postline - Posted",
			expectMessage: "✅ Posted: clip.mp4 (item #4) (attempt 2)",
			expectTags:    "postline,upload,posted",
		},
		{
			name:  "retry scheduled",
			event: notifications.EventRetryScheduled,
			payload: notifications.Payload{
				"itemID":      int64(9),
				"attempts":    1,
				"maxAttempts": 2,
				"reason":      "timeout",
			},
			expectTitle:   "Postline - Retry Scheduled",
			expectMessage: "🔁 Upload of item #9 will be retried (attempt 1 of 2): timeout",
			expectTags:    "postline,upload,retry",
		},
		{
			name:           "failed",
			event:          notifications.EventItemFailed,
			payload:        notifications.Payload{"payload": "bad.mp4", "reason": "content rejected"},
			expectTitle:    "Postline - Upload Failed",
			expectMessage:  "❌ Upload failed: bad.mp4\ncontent rejected",
			expectTags:     "postline,upload,failed",
			expectPriority: "high",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "queue store", "error": errors.New("disk full")},
			expectTitle:    "Postline - Error",
			expectMessage:  "❌ Error with queue store: disk full",
			expectTags:     "postline,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Postline - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "postline,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Queued = false
	cfg.Notifications.Posted = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{notifications.EventItemQueued, notifications.EventItemPosted, "unknown"} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
