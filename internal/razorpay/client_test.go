package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"}, nil)
	body := []byte(`{"event":"payment.captured"}`)

	good := SignPayload(body, "whsec_test")
	assert.True(t, client.VerifyWebhookSignature(body, good))

	bad := SignPayload(body, "whsec_other")
	assert.False(t, client.VerifyWebhookSignature(body, bad))

	assert.False(t, client.VerifyWebhookSignature(body, ""))
	assert.False(t, client.VerifyWebhookSignature([]byte(`tampered`), good))

	unconfigured := NewClient(Config{}, nil)
	assert.False(t, unconfigured.VerifyWebhookSignature(body, good))
}

func TestCreateOrder(t *testing.T) {
	var gotReceipt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key_id", user)
		require.Equal(t, "key_secret", pass)

		var req struct {
			Amount   int    `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotReceipt = req.Receipt

		_ = json.NewEncoder(w).Encode(Order{
			ID:       "order_test1",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{KeyID: "key_id", KeySecret: "key_secret", BaseURL: srv.URL}, nil)
	order, err := client.CreateOrder(context.Background(), 49900, "INR", "rcpt_42_1704067200", nil)
	require.NoError(t, err)
	assert.Equal(t, "order_test1", order.ID)
	assert.Equal(t, 49900, order.Amount)
	assert.Equal(t, "rcpt_42_1704067200", gotReceipt)
}

func TestCreateOrderMissingCredentials(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.CreateOrder(context.Background(), 100, "INR", "rcpt", nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCreateOrderProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"SERVER_ERROR"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, nil)
	_, err := client.CreateOrder(context.Background(), 100, "INR", "rcpt", nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCreateOrderEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, nil)
	_, err := client.CreateOrder(context.Background(), 100, "INR", "rcpt", nil)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
