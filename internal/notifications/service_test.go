package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"silkstaff/internal/config"
	"silkstaff/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobStarted, notifications.Payload{"job": "upload"}); err != nil {
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
			name:          "job started",
			event:         notifications.EventJobStarted,
			payload:       notifications.Payload{"job": "upload", "total": 12},
			expectTitle:   "Silkstaff - Job Started",
			expectMessage: "▶️ Started upload: 12 steps",
			expectTags:    "silkstaff,upload,started",
		},
		{
			name:          "job resumed",
			event:         notifications.EventJobStarted,
			payload:       notifications.Payload{"job": "upload", "total": 12, "start": 4},
			expectTitle:   "Silkstaff - Job Started",
			expectMessage: "▶️ Resumed upload at step 5 of 12",
			expectTags:    "silkstaff,upload,started",
		},
		{
			name:  "job completed",
			event: notifications.EventJobCompleted,
			payload: notifications.Payload{
				"job":       "shipment",
				"processed": 7,
				"duration":  93 * time.Second,
			},
			expectTitle:   "Silkstaff - Job Complete",
			expectMessage: "✅ shipment complete: 7 processed in 1m33s",
			expectTags:    "silkstaff,shipment,completed",
		},
		{
			name:  "job completed with failures",
			event: notifications.EventJobCompleted,
			payload: notifications.Payload{
				"job":       "upload",
				"processed": 5,
				"failed":    2,
			},
			expectTitle:   "Silkstaff - Job Complete (with errors)",
			expectMessage: "⚠️ upload complete: 5 succeeded, 2 failed in 0s",
			expectTags:    "silkstaff,upload,completed",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"job":   "upload",
				"index": 4,
				"error": errors.New("table api returned 502"),
			},
			expectTitle:    "Silkstaff - Job Failed",
			expectMessage:  "❌ upload stopped at step 5: table api returned 502",
			expectTags:     "silkstaff,upload,error",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Silkstaff - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "silkstaff,test",
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
				_ = r.Body.Close()
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

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("disc_detected"), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
