// Package notify dispatches run-lifecycle events from the optional serve
// control surface to a single configured webhook URL. It is adapted from
// the teacher's notify.Service, trimmed from a multi-channel/multi-tenant
// dispatch service (MCP tools, Slack/Teams/Discord/Email/Zapier channel
// drivers, per-kitchen channel registries) down to the one channel this
// domain needs: an optional webhook told about a recipe run's lifecycle.
// The HMAC-SHA256 request-signing and retry-with-backoff logic of the
// teacher's WebhookChannelDriver.Send is kept as-is — that part of the
// teacher's design is domain-independent and applies unchanged here.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType describes what happened to a run.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
	EventRunCanceled  EventType = "run_canceled"
)

// Event is the JSON payload posted to the configured webhook.
type Event struct {
	Type       EventType              `json:"type"`
	RunID      string                 `json:"run_id"`
	RecipePath string                 `json:"recipe_path,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Service dispatches run-lifecycle Events to a single webhook endpoint.
// A Service with an empty URL is a no-op — Dispatch returns
// immediately without making a request, so the serve surface can
// construct one unconditionally and only pay for it when configured.
type Service struct {
	url    string
	secret string
	client *http.Client
}

// New builds a Service posting to url, signing requests with secret via
// HMAC-SHA256 when secret is non-empty. url == "" disables dispatch.
func New(url, secret string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Dispatch posts event to the configured webhook with up to 3 attempts
// (linear backoff between retries: 2s, then 4s), signing the body when a
// secret is configured. A disabled Service (no URL) returns without doing
// anything; dispatch failures are logged, not propagated — a notification
// outage must never fail the run it's reporting on.
func (s *Service) Dispatch(ctx context.Context, event Event) {
	if s == nil || s.url == "" {
		return
	}
	if err := s.send(ctx, event); err != nil {
		log.Warn().Err(err).Str("run_id", event.RunID).Str("event", string(event.Type)).Msg("webhook dispatch failed")
	}
}

func (s *Service) send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt*2) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "recipeforge-webhook/1.0")
		req.Header.Set("X-Recipeforge-Event", string(event.Type))
		if s.secret != "" {
			mac := hmac.New(sha256.New, []byte(s.secret))
			mac.Write(body)
			req.Header.Set("X-Recipeforge-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, s.url)
	}
	return fmt.Errorf("webhook failed after 3 attempts: %w", lastErr)
}
