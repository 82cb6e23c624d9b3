package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evermirror/twinhub/internal/metrics"
	"github.com/evermirror/twinhub/internal/models"
	"github.com/evermirror/twinhub/internal/notify"
	"github.com/evermirror/twinhub/internal/razorpay"
	"github.com/evermirror/twinhub/internal/repository"
)

// ErrSignatureMismatch marks a webhook whose signature did not verify. No
// state is touched when it is returned.
var ErrSignatureMismatch = errors.New("webhook signature mismatch")

type WebhookResult string

const (
	// ResultProcessed: a meaningful event drove a state transition.
	ResultProcessed WebhookResult = "processed"
	// ResultIgnored: an event kind this system does not care about.
	ResultIgnored WebhookResult = "ignored"
	// ResultUnmatched: no PENDING billing record matched the order id, e.g.
	// a provider retry of an already-processed delivery.
	ResultUnmatched WebhookResult = "unmatched"
)

const (
	eventCaptureSucceeded = "payment.captured"
	eventCaptureFailed    = "payment.failed"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookService drives the payment state machine: verify, classify,
// correlate, transition. Idempotency against provider retries rests on the
// ledger's PENDING-guarded transitions, not on any cross-request lock.
type WebhookService struct {
	log      *slog.Logger
	verifier *razorpay.Client
	billing  *repository.BillingRepository
	sessions *repository.SessionRepository
	users    *repository.UserRepository
	twins    *repository.TwinRepository
	alerts   *notify.Notifier
	now      func() time.Time
}

func NewWebhookService(log *slog.Logger, verifier *razorpay.Client, billing *repository.BillingRepository, sessions *repository.SessionRepository, users *repository.UserRepository, twins *repository.TwinRepository, alerts *notify.Notifier) *WebhookService {
	return &WebhookService{
		log:      log,
		verifier: verifier,
		billing:  billing,
		sessions: sessions,
		users:    users,
		twins:    twins,
		alerts:   alerts,
		now:      time.Now,
	}
}

// HandleEvent processes one webhook delivery. The signature check comes
// before anything else; an unauthenticated caller can never cause a
// transition.
func (s *WebhookService) HandleEvent(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	if !s.verifier.VerifyWebhookSignature(body, signature) {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return "", ErrSignatureMismatch
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("parse webhook envelope: %w", err)
	}

	switch envelope.Event {
	case eventCaptureSucceeded:
		return s.handleCaptureSucceeded(ctx, envelope)
	case eventCaptureFailed:
		return s.handleCaptureFailed(ctx, envelope)
	default:
		metrics.WebhookEvents.WithLabelValues(envelope.Event, string(ResultIgnored)).Inc()
		return ResultIgnored, nil
	}
}

func (s *WebhookService) handleCaptureSucceeded(ctx context.Context, envelope webhookEnvelope) (WebhookResult, error) {
	orderID := envelope.Payload.Payment.Entity.OrderID
	paymentID := envelope.Payload.Payment.Entity.ID
	if orderID == "" {
		return "", fmt.Errorf("capture event missing order id")
	}

	matched, err := s.billing.CompleteByOrderID(ctx, orderID, paymentID)
	if err != nil {
		return "", err
	}
	if !matched {
		// Already processed or unknown order. Acknowledge; the provider
		// retries at-least-once and must not be pushed into more retries.
		s.log.Warn("capture without pending billing record", "order_id", orderID, "payment_id", paymentID)
		metrics.WebhookEvents.WithLabelValues(eventCaptureSucceeded, string(ResultUnmatched)).Inc()
		return ResultUnmatched, nil
	}

	// The charge is COMPLETED from here on. Whatever goes wrong below is an
	// anomaly for manual reconciliation, never a rollback: money-received
	// state is authoritative.
	record, err := s.billing.FindByOrderID(ctx, orderID)
	if err != nil || record == nil {
		s.anomaly(fmt.Sprintf("order %s completed but ledger record unreadable (err=%v)", orderID, err))
		return ResultProcessed, nil
	}

	switch record.Kind {
	case models.KindPurchase:
		s.completePurchase(ctx, record)
	case models.KindPlanUpgrade:
		s.completePlanUpgrade(ctx, record)
	default:
		s.log.Warn("completed billing record with unexpected kind", "order_id", orderID, "kind", record.Kind)
	}

	metrics.WebhookEvents.WithLabelValues(eventCaptureSucceeded, string(ResultProcessed)).Inc()
	return ResultProcessed, nil
}

func (s *WebhookService) completePurchase(ctx context.Context, record *models.BillingRecord) {
	credits := 0
	if record.Credits != nil {
		credits = *record.Credits
	}
	if credits <= 0 {
		s.anomaly(fmt.Sprintf("purchase order %s completed without a credit count", record.OrderID))
		return
	}
	if err := s.users.AddCredits(ctx, record.UserID, credits); err != nil {
		s.anomaly(fmt.Sprintf("purchase order %s completed but crediting user %d failed: %v", record.OrderID, record.UserID, err))
		return
	}
	s.log.Info("credit purchase completed", "order_id", record.OrderID, "user_id", record.UserID, "credits", credits)
}

func (s *WebhookService) completePlanUpgrade(ctx context.Context, record *models.BillingRecord) {
	session, err := s.sessions.FindPendingByOrderID(ctx, record.OrderID)
	if err != nil {
		s.anomaly(fmt.Sprintf("order %s completed but session lookup failed: %v", record.OrderID, err))
		return
	}
	if session == nil {
		// Session consumed, or expired and swept before the capture arrived.
		// The charge stays completed; the missing twin needs an operator.
		s.anomaly(fmt.Sprintf("order %s captured but its onboarding session is missing or expired; no twin was created for user %d", record.OrderID, record.UserID))
		return
	}

	twin := models.NewTwin(session, s.now())
	if err := s.twins.Create(ctx, twin); err != nil {
		s.anomaly(fmt.Sprintf("order %s captured but twin creation failed for user %d: %v", record.OrderID, session.UserID, err))
		return
	}
	if err := s.users.SetPlan(ctx, session.UserID, session.PlanType); err != nil {
		s.anomaly(fmt.Sprintf("order %s: twin %d created but plan update failed for user %d: %v", record.OrderID, twin.ID, session.UserID, err))
	}
	if err := s.users.SetOnboardingStatus(ctx, session.UserID, models.OnboardingCompleted); err != nil {
		s.anomaly(fmt.Sprintf("order %s: onboarding status update failed for user %d: %v", record.OrderID, session.UserID, err))
	}
	if _, err := s.sessions.MarkPaidByOrderID(ctx, record.OrderID); err != nil {
		s.anomaly(fmt.Sprintf("order %s: session could not be marked paid: %v", record.OrderID, err))
	}

	s.log.Info("plan upgrade completed",
		"order_id", record.OrderID, "user_id", session.UserID, "twin_id", twin.ID,
		"plan", session.PlanType, "plan_expires_at", twin.PlanExpiresAt)
}

func (s *WebhookService) handleCaptureFailed(ctx context.Context, envelope webhookEnvelope) (WebhookResult, error) {
	orderID := envelope.Payload.Payment.Entity.OrderID
	if orderID == "" {
		return "", fmt.Errorf("failure event missing order id")
	}

	// Both transitions are no-op safe: the targets may already be terminal
	// or swept by the TTL collector.
	if _, err := s.billing.FailByOrderID(ctx, orderID); err != nil {
		return "", err
	}
	if _, err := s.sessions.MarkFailedByOrderID(ctx, orderID); err != nil {
		s.log.Error("session failure transition errored", "order_id", orderID, "err", err)
	}

	s.log.Info("capture failure recorded", "order_id", orderID)
	metrics.WebhookEvents.WithLabelValues(eventCaptureFailed, string(ResultProcessed)).Inc()
	return ResultProcessed, nil
}

// anomaly surfaces a money-collected-but-incomplete state to operators:
// error log, counter, and the ops alert channel.
func (s *WebhookService) anomaly(msg string) {
	s.log.Error("reconciliation anomaly", "detail", msg)
	metrics.ReconciliationAnomalies.Inc()
	s.alerts.Alert("twinhub reconciliation anomaly: " + msg)
}
