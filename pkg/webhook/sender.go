package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers a signed payload to a tenant endpoint. Implementations must
// honor the context deadline.
type Sender interface {
	Send(ctx context.Context, url, secret, eventType string, body []byte) error
}

// HTTPSender posts webhook payloads over HTTP with a bounded per-delivery timeout.
type HTTPSender struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSender builds a sender with the supplied delivery timeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Send posts the body to url with the event header, signing only when the
// tenant configured a secret. Any non-2xx response is an error so the caller
// can schedule a retry.
func (s *HTTPSender) Send(ctx context.Context, url, secret, eventType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}
	req.Header.Set(EventHeader, eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
