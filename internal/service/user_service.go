package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/models"
	"github.com/evermirror/twinhub/internal/repository"
)

// ErrCreditsRequired signals an interaction attempted without enough balance.
var ErrCreditsRequired = errors.New("insufficient credits, purchase required")

type UserService struct {
	cfg     config.Config
	log     *slog.Logger
	users   *repository.UserRepository
	billing *repository.BillingRepository
	orders  *OrderService
}

func NewUserService(cfg config.Config, log *slog.Logger, users *repository.UserRepository, billing *repository.BillingRepository, orders *OrderService) *UserService {
	return &UserService{
		cfg:     cfg,
		log:     log,
		users:   users,
		billing: billing,
		orders:  orders,
	}
}

func (s *UserService) Register(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required")
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered")
	}
	return s.users.Create(ctx, &models.User{Email: email, Name: name})
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

type PurchaseResult struct {
	OrderID  string `json:"order_id"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Credits  int    `json:"credits"`
}

// PurchaseCredits creates a provider order for a configured credit pack and
// records the PENDING purchase. Credits land only when the capture webhook
// completes the record.
func (s *UserService) PurchaseCredits(ctx context.Context, userID int64, packName string) (*PurchaseResult, error) {
	pack, ok := s.cfg.CreditPacks[strings.ToLower(strings.TrimSpace(packName))]
	if !ok {
		return nil, fmt.Errorf("unknown credit pack: %q", packName)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", userID)
	}

	order, err := s.orders.CreateOrder(ctx, userID, pack.AmountMinorUnits, map[string]string{
		"kind": string(models.KindPurchase),
		"pack": packName,
	})
	if err != nil {
		return nil, err
	}

	credits := pack.Credits
	record := &models.BillingRecord{
		UserID:  userID,
		Amount:  pack.AmountMinorUnits,
		Credits: &credits,
		Kind:    models.KindPurchase,
		Status:  models.BillingPending,
		OrderID: order.ID,
	}
	if err := s.billing.Create(ctx, record); err != nil {
		return nil, err
	}

	return &PurchaseResult{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Credits:  credits,
	}, nil
}

// GrantCredits is the admin activation grant path; it bypasses the payment
// pipeline entirely.
func (s *UserService) GrantCredits(ctx context.Context, userID int64, credits int) error {
	if credits <= 0 {
		return fmt.Errorf("credits must be positive")
	}
	if err := s.users.AddCredits(ctx, userID, credits); err != nil {
		return err
	}
	s.log.Info("credits granted", "user_id", userID, "credits", credits)
	return nil
}

// ConsumeForInteraction charges one interaction's worth of credits and logs
// the usage in the ledger. The balance guard is atomic; a failed ledger write
// after a successful decrement is logged, not rolled back.
func (s *UserService) ConsumeForInteraction(ctx context.Context, userID int64) error {
	cost := s.cfg.InteractionCreditCost
	if cost <= 0 {
		cost = 1
	}
	ok, err := s.users.ConsumeCredits(ctx, userID, cost)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCreditsRequired
	}

	costCopy := cost
	record := &models.BillingRecord{
		UserID:  userID,
		Amount:  0,
		Credits: &costCopy,
		Kind:    models.KindUsage,
		Status:  models.BillingCompleted,
		OrderID: "usage_" + uuid.NewString(),
	}
	if err := s.billing.Create(ctx, record); err != nil {
		s.log.Error("usage ledger write failed", "user_id", userID, "err", err)
	}
	return nil
}

// RecordRefund writes a compensating REFUND entry and claws back credits.
// Refunds are operator-initiated, never automated.
func (s *UserService) RecordRefund(ctx context.Context, userID int64, amount, credits int) (*models.BillingRecord, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}
	record := &models.BillingRecord{
		UserID:  userID,
		Amount:  amount,
		Kind:    models.KindRefund,
		Status:  models.BillingCompleted,
		OrderID: "refund_" + uuid.NewString(),
	}
	if credits > 0 {
		record.Credits = &credits
	}
	if err := s.billing.Create(ctx, record); err != nil {
		return nil, err
	}
	if credits > 0 {
		if err := s.users.AddCredits(ctx, userID, -credits); err != nil {
			return nil, err
		}
	}
	s.log.Info("refund recorded", "user_id", userID, "amount", amount, "credits", credits)
	return record, nil
}

func (s *UserService) BillingHistory(ctx context.Context, userID int64) ([]models.BillingRecord, error) {
	return s.billing.ListByUser(ctx, userID)
}

// BillingSummary backs the admin ledger report.
func (s *UserService) BillingSummary(ctx context.Context) ([]repository.KindSummary, error) {
	return s.billing.SummarizeByKind(ctx)
}
