package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/tab"
)

const pushPath = "/v2/bot/message/push"

// MessagingPushNotifier pushes text messages to guests through a
// LINE-style messaging API.
type MessagingPushNotifier struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []pushMessage `json:"messages"`
}

type pushMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewMessagingPushNotifier returns a notifier, or a no-op one when token is empty
func NewMessagingPushNotifier(baseURL, token string, timeout time.Duration, logger *zap.Logger) tab.GuestNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		logger.Info("Guest push disabled, no channel token configured")
		return NoopGuestNotifier{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &MessagingPushNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Push implements tab.GuestNotifier
func (n *MessagingPushNotifier) Push(ctx context.Context, guestIdentity, text string) error {
	if guestIdentity == "" {
		return nil
	}
	body, err := json.Marshal(pushRequest{
		To:       guestIdentity,
		Messages: []pushMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("guest push: failed to marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+pushPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("guest push: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("guest push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("guest push: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// NoopGuestNotifier discards pushes
type NoopGuestNotifier struct{}

// Push implements tab.GuestNotifier
func (NoopGuestNotifier) Push(context.Context, string, string) error { return nil }

var (
	_ tab.GuestNotifier = (*MessagingPushNotifier)(nil)
	_ tab.GuestNotifier = NoopGuestNotifier{}
)
