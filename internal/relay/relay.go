// Package relay forwards contact form submissions to a Discord webhook.
//
// Delivery is a single synchronous POST bounded by DefaultTimeout. There is
// no retry: a failed delivery is reported to the caller and the submission
// is dropped.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultTimeout bounds the whole webhook request
const DefaultTimeout = 5 * time.Second

// Relay posts submissions to a configured webhook URL
type Relay struct {
	webhookURL string
	mentionID  string
	client     *http.Client
	now        func() time.Time
}

// Option configures a Relay
type Option func(*Relay)

// WithHTTPClient replaces the default 5-second client
func WithHTTPClient(c *http.Client) Option {
	return func(r *Relay) {
		if c != nil {
			r.client = c
		}
	}
}

// WithClock replaces time.Now for the footer timestamp
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a relay for webhookURL. mentionID may be empty.
func New(webhookURL, mentionID string, opts ...Option) *Relay {
	r := &Relay{
		webhookURL: webhookURL,
		mentionID:  mentionID,
		client:     &http.Client{Timeout: DefaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send builds the notification for sub and delivers it.
//
// Returned errors wrap ErrDeliveryFailed when the webhook was unreachable
// or rejected the payload, and ErrInternal for anything else.
func (r *Relay) Send(ctx context.Context, sub *Submission) error {
	payload := BuildPayload(sub, r.mentionID, r.now())

	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %w", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: webhook returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return nil
}
