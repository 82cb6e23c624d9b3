package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evermirror/twinhub/internal/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, order_id, plan_type, COALESCE(answers, ''), COALESCE(voice_sample_url, ''), COALESCE(portrait_url, ''), status, expires_at, created_at, updated_at`

func (r *SessionRepository) Create(ctx context.Context, session *models.OnboardingSession) error {
	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	const query = `
INSERT INTO onboarding_sessions (user_id, order_id, plan_type, answers, voice_sample_url, portrait_url, status, expires_at)
VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`
	if session.Status == "" {
		session.Status = models.SessionPending
	}
	res, err := r.db.ExecContext(ctx, query,
		session.UserID, session.OrderID, session.PlanType, string(answers),
		session.VoiceSampleURL, session.PortraitURL, session.Status, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert onboarding session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("session last insert id: %w", err)
	}
	session.ID = id
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id int64) (*models.OnboardingSession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM onboarding_sessions WHERE id = ?`
	return scanSession(r.db.QueryRowContext(ctx, query, id))
}

// FindPendingByOrderID is the webhook-path lookup: exact match on the unique
// order id, restricted to sessions that are still PENDING and unexpired. A
// session past its TTL is unreachable here even if the sweep has not deleted
// it yet.
func (r *SessionRepository) FindPendingByOrderID(ctx context.Context, orderID string) (*models.OnboardingSession, error) {
	const query = `
SELECT ` + sessionColumns + ` FROM onboarding_sessions
WHERE order_id = ? AND status = ? AND expires_at > NOW()
LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, orderID, models.SessionPending))
}

func (r *SessionRepository) MarkPaidByOrderID(ctx context.Context, orderID string) (bool, error) {
	return r.transition(ctx, orderID, models.SessionPaid)
}

func (r *SessionRepository) MarkFailedByOrderID(ctx context.Context, orderID string) (bool, error) {
	return r.transition(ctx, orderID, models.SessionFailed)
}

func (r *SessionRepository) transition(ctx context.Context, orderID string, to models.SessionStatus) (bool, error) {
	const query = `
UPDATE onboarding_sessions SET status = ?, updated_at = NOW()
WHERE order_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, to, orderID, models.SessionPending)
	if err != nil {
		return false, fmt.Errorf("transition session to %s: %w", to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("session rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteExpired removes sessions whose TTL elapsed, whatever their status.
// This bounds storage for abandoned onboarding attempts.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM onboarding_sessions WHERE expires_at <= NOW()`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired rows affected: %w", err)
	}
	return affected, nil
}

func scanSession(row *sql.Row) (*models.OnboardingSession, error) {
	var s models.OnboardingSession
	var answersRaw string
	if err := row.Scan(&s.ID, &s.UserID, &s.OrderID, &s.PlanType, &answersRaw,
		&s.VoiceSampleURL, &s.PortraitURL, &s.Status, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan onboarding session: %w", err)
	}
	if answersRaw != "" {
		if err := json.Unmarshal([]byte(answersRaw), &s.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if s.Answers == nil {
		s.Answers = models.Answers{}
	}
	return &s, nil
}
