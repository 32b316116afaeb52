// Package handoff implements the external escalation boundary: an HTTP
// webhook that asks the session supervisor to rotate to a fresh context.
// Escalation is attempted only when a credential is configured, and failure
// to escalate is never fatal.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/engine"
)

// Notifier posts rotation requests to the configured webhook.
type Notifier struct {
	url    string
	token  string
	client *http.Client
}

// New creates a notifier, or nil when no URL or token is configured so the
// engine degrades to a human-actionable stop.
func New(url, token string) *Notifier {
	if url == "" || token == "" {
		return nil
	}
	return &Notifier{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// rotationRequest is the webhook payload.
type rotationRequest struct {
	Iteration int    `json:"iteration"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// Trigger implements engine.Handoff.
func (n *Notifier) Trigger(ctx context.Context, iteration int, reason string) error {
	if n == nil {
		return engine.ErrHandoffUnavailable
	}

	payload, err := json.Marshal(rotationRequest{
		Iteration: iteration,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal handoff request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build handoff request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post handoff request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("handoff rejected: status %d", resp.StatusCode)
	}
	return nil
}
