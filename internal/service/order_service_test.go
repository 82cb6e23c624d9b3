package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/razorpay"
)

func newOrderService(provider *razorpay.Client) *OrderService {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewOrderService(config.Config{Currency: "INR"}, provider, log)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestReceiptIsDeterministicAndBounded(t *testing.T) {
	svc := newOrderService(nil)

	// 2024-01-01T00:00:00Z is unix 1704067200.
	assert.Equal(t, "rcpt_42_1704067200", svc.receipt(42))
	assert.Equal(t, svc.receipt(42), svc.receipt(42))

	long := svc.receipt(9223372036854775807)
	assert.LessOrEqual(t, len(long), 40)
	assert.Equal(t, "rcpt_9223372036854775_1704067200", long)
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	svc := newOrderService(nil)

	_, err := svc.CreateOrder(context.Background(), 1, 0, nil)
	require.Error(t, err)
	_, err = svc.CreateOrder(context.Background(), 1, -100, nil)
	require.Error(t, err)
}

func TestCreateOrderPropagatesProviderUnavailable(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := newOrderService(razorpay.NewClient(razorpay.Config{}, log))

	_, err := svc.CreateOrder(context.Background(), 1, 49900, nil)
	assert.ErrorIs(t, err, razorpay.ErrProviderUnavailable)
}
