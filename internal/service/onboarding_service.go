package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/metrics"
	"github.com/evermirror/twinhub/internal/models"
	"github.com/evermirror/twinhub/internal/repository"
)

// OnboardingService stages questionnaire answers and assets until payment
// clears, and garbage-collects sessions that never do.
type OnboardingService struct {
	cfg      config.Config
	log      *slog.Logger
	orders   *OrderService
	sessions *repository.SessionRepository
	billing  *repository.BillingRepository
	users    *repository.UserRepository
	now      func() time.Time
}

func NewOnboardingService(cfg config.Config, log *slog.Logger, orders *OrderService, sessions *repository.SessionRepository, billing *repository.BillingRepository, users *repository.UserRepository) *OnboardingService {
	return &OnboardingService{
		cfg:      cfg,
		log:      log,
		orders:   orders,
		sessions: sessions,
		billing:  billing,
		users:    users,
		now:      time.Now,
	}
}

type StartOnboardingInput struct {
	UserID         int64
	PlanType       string
	Answers        models.Answers
	VoiceSampleURL string
	PortraitURL    string
}

type StartOnboardingResult struct {
	SessionID int64  `json:"session_id"`
	OrderID   string `json:"order_id"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
}

// Start validates the plan, creates the provider order, and stages the
// session plus a PENDING plan-upgrade ledger entry. Nothing durable changes
// for the user until the capture webhook arrives.
func (s *OnboardingService) Start(ctx context.Context, input StartOnboardingInput) (*StartOnboardingResult, error) {
	plan, err := models.ParsePlanType(input.PlanType)
	if err != nil {
		return nil, err
	}
	price, ok := s.cfg.PlanPrice(string(plan))
	if !ok {
		return nil, fmt.Errorf("no price configured for plan %s", plan)
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found", input.UserID)
	}

	order, err := s.orders.CreateOrder(ctx, input.UserID, price, map[string]string{
		"kind": string(models.KindPlanUpgrade),
		"plan": string(plan),
	})
	if err != nil {
		return nil, err
	}

	session := &models.OnboardingSession{
		UserID:         input.UserID,
		OrderID:        order.ID,
		PlanType:       plan,
		Answers:        input.Answers,
		VoiceSampleURL: input.VoiceSampleURL,
		PortraitURL:    input.PortraitURL,
		Status:         models.SessionPending,
		ExpiresAt:      s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	planCopy := plan
	record := &models.BillingRecord{
		UserID:   input.UserID,
		Amount:   price,
		PlanType: &planCopy,
		Kind:     models.KindPlanUpgrade,
		Status:   models.BillingPending,
		OrderID:  order.ID,
	}
	if err := s.billing.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := s.users.SetOnboardingStatus(ctx, input.UserID, models.OnboardingInProgress); err != nil {
		return nil, err
	}

	s.log.Info("onboarding session staged",
		"session_id", session.ID, "user_id", input.UserID, "order_id", order.ID, "plan", plan)

	return &StartOnboardingResult{
		SessionID: session.ID,
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
	}, nil
}

func (s *OnboardingService) Get(ctx context.Context, id int64) (*models.OnboardingSession, error) {
	return s.sessions.FindByID(ctx, id)
}

// SweepExpired deletes sessions past their TTL. Runs on the cron schedule;
// errors are logged so one bad sweep never stops the schedule.
func (s *OnboardingService) SweepExpired(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Error("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		metrics.SessionsSwept.Add(float64(n))
		s.log.Info("expired onboarding sessions removed", "count", n)
	}
}
