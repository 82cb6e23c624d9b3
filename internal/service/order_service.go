package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/razorpay"
)

// OrderService creates provider orders for purchase intents. It owns receipt
// derivation; everything else about the order lives with the provider.
type OrderService struct {
	cfg      config.Config
	provider *razorpay.Client
	log      *slog.Logger
	now      func() time.Time
}

func NewOrderService(cfg config.Config, provider *razorpay.Client, log *slog.Logger) *OrderService {
	return &OrderService{
		cfg:      cfg,
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// receipt derives a deterministic identifier from the user id and the current
// unix time. Both parts are truncated so the result always fits the
// provider's 40-character receipt cap.
func (s *OrderService) receipt(userID int64) string {
	uid := strconv.FormatInt(userID, 10)
	if len(uid) > 16 {
		uid = uid[:16]
	}
	ts := strconv.FormatInt(s.now().Unix(), 10)
	if len(ts) > 10 {
		ts = ts[:10]
	}
	return fmt.Sprintf("rcpt_%s_%s", uid, ts)
}

// CreateOrder creates a provider order for the amount in minor currency
// units. Provider failures surface as razorpay.ErrProviderUnavailable; the
// caller treats them as user-retryable.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, amount int, notes map[string]string) (*razorpay.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}
	order, err := s.provider.CreateOrder(ctx, amount, s.cfg.Currency, s.receipt(userID), notes)
	if err != nil {
		return nil, fmt.Errorf("create provider order: %w", err)
	}
	s.log.Info("provider order created", "order_id", order.ID, "user_id", userID, "amount", amount)
	return order, nil
}
