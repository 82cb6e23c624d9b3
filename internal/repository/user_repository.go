package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evermirror/twinhub/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, COALESCE(name, ''), credits, onboarding_status, plan_type, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var plan sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Credits, &u.OnboardingStatus, &plan, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if plan.Valid {
		p := models.PlanType(plan.String)
		u.PlanType = &p
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (email, name, onboarding_status)
VALUES (?, NULLIF(?, ''), ?)`
	status := user.OnboardingStatus
	if status == "" {
		status = models.OnboardingNone
	}
	res, err := r.db.ExecContext(ctx, query, user.Email, user.Name, status)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	user.ID = id
	user.OnboardingStatus = status
	return user, nil
}

// AddCredits adjusts the balance by delta, clamping at zero so a compensating
// refund can never drive the balance negative.
func (r *UserRepository) AddCredits(ctx context.Context, userID int64, delta int) error {
	const query = `UPDATE users SET credits = GREATEST(credits + ?, 0), updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, delta, userID); err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	return nil
}

// ConsumeCredits decrements the balance only when it covers the amount. The
// balance check lives in the UPDATE predicate so concurrent consumers cannot
// overdraw.
func (r *UserRepository) ConsumeCredits(ctx context.Context, userID int64, amount int) (bool, error) {
	const query = `
UPDATE users SET credits = credits - ?, updated_at = NOW()
WHERE id = ? AND credits >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, userID, amount)
	if err != nil {
		return false, fmt.Errorf("consume credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume credits rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *UserRepository) SetOnboardingStatus(ctx context.Context, userID int64, status models.OnboardingStatus) error {
	const query = `UPDATE users SET onboarding_status = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, userID); err != nil {
		return fmt.Errorf("set onboarding status: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPlan(ctx context.Context, userID int64, plan models.PlanType) error {
	const query = `UPDATE users SET plan_type = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, plan, userID); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}
