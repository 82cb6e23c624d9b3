package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrProviderUnavailable covers missing credentials and any provider-side
// failure during order creation. Callers surface it to the user as retryable.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// Order mirrors the provider's order entity: amount in minor currency units.
type Order struct {
	ID       string `json:"id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

type createOrderRequest struct {
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder creates a provider order for the given amount in minor units.
func (c *Client) CreateOrder(ctx context.Context, amount int, currency, receipt string, notes map[string]string) (*Order, error) {
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return nil, fmt.Errorf("%w: credentials are not configured", ErrProviderUnavailable)
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("provider order creation failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		}
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrProviderUnavailable, resp.StatusCode, truncateBody(rawBody))
	}

	var order Order
	if err := json.Unmarshal(rawBody, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: empty order id in response", ErrProviderUnavailable)
	}
	return &order, nil
}

// VerifyWebhookSignature recomputes the hex HMAC-SHA256 of the raw body
// under the shared webhook secret and compares it against the header value.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	expected := SignPayload(body, c.cfg.WebhookSecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload produces the hex HMAC-SHA256 signature for a payload. Exported
// for tests and for replaying stored events against the verifier.
func SignPayload(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
