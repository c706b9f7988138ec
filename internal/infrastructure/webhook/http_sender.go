// Package webhook delivers staff notifications to HTTP webhooks and AMQP
// exchanges, and pushes short texts to guests.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/tab"
)

const (
	defaultSendTimeout    = 1500 * time.Millisecond
	defaultConnectTimeout = time.Second
	maxResponseDrain      = 64 << 10
)

// HTTPSender POSTs notifications with a short timeout. The body shape
// depends on the destination kind.
type HTTPSender struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPSender creates a sender with the given send and connect timeouts
func NewHTTPSender(sendTimeout, connectTimeout time.Duration, logger *zap.Logger) *HTTPSender {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &HTTPSender{
		client: &http.Client{
			Timeout:   sendTimeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger: logger,
	}
}

// contentBody is the flat shape accepted by chat-style webhooks
type contentBody struct {
	Content string `json:"content"`
}

// Body returns the JSON payload for dest
func Body(dest tab.Destination, msg tab.Message) ([]byte, error) {
	if dest.Kind == tab.DestinationContent {
		return json.Marshal(contentBody{Content: msg.Text})
	}
	if msg.Envelope == nil {
		return json.Marshal(map[string]any{"event_type": msg.EventType, "text": msg.Text})
	}
	return json.Marshal(msg.Envelope)
}

// Send implements tab.WebhookSender
func (s *HTTPSender) Send(ctx context.Context, dest tab.Destination, msg tab.Message) tab.SendResult {
	body, err := Body(dest, msg)
	if err != nil {
		return tab.SendResult{Err: fmt.Errorf("webhook: failed to marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, bytes.NewReader(body))
	if err != nil {
		return tab.SendResult{Err: fmt.Errorf("webhook: failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Roomtab-Event", string(msg.EventType))

	resp, err := s.client.Do(req)
	if err != nil {
		return tab.SendResult{Err: fmt.Errorf("webhook: post %s: %w", dest.Name, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tab.SendResult{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("webhook: %s returned HTTP %d", dest.Name, resp.StatusCode),
		}
	}
	return tab.SendResult{StatusCode: resp.StatusCode}
}

var _ tab.WebhookSender = (*HTTPSender)(nil)
