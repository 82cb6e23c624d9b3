package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evermirror/twinhub/internal/models"
)

type TwinRepository struct {
	db *sql.DB
}

func NewTwinRepository(db *sql.DB) *TwinRepository {
	return &TwinRepository{db: db}
}

const twinColumns = `id, creator_user_id, name, COALESCE(greeting, ''), COALESCE(backstory, ''), COALESCE(voice_style, ''), COALESCE(interests, ''), avatar_status, plan_type, plan_expires_at, created_at, updated_at`

func (r *TwinRepository) Create(ctx context.Context, twin *models.Twin) error {
	const query = `
INSERT INTO twins (creator_user_id, name, greeting, backstory, voice_style, interests, avatar_status, plan_type, plan_expires_at)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		twin.CreatorUserID, twin.Name, twin.Greeting, twin.Backstory,
		twin.VoiceStyle, twin.Interests, twin.AvatarStatus, twin.PlanType, twin.PlanExpiresAt)
	if err != nil {
		return fmt.Errorf("insert twin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("twin last insert id: %w", err)
	}
	twin.ID = id
	return nil
}

func (r *TwinRepository) FindByID(ctx context.Context, id int64) (*models.Twin, error) {
	const query = `SELECT ` + twinColumns + ` FROM twins WHERE id = ?`
	return scanTwin(r.db.QueryRowContext(ctx, query, id))
}

func (r *TwinRepository) FindByCreator(ctx context.Context, userID int64) (*models.Twin, error) {
	const query = `SELECT ` + twinColumns + ` FROM twins WHERE creator_user_id = ? ORDER BY id DESC LIMIT 1`
	return scanTwin(r.db.QueryRowContext(ctx, query, userID))
}

func (r *TwinRepository) SetAvatarStatus(ctx context.Context, id int64, status models.AvatarStatus) error {
	const query = `UPDATE twins SET avatar_status = ?, updated_at = NOW() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("set avatar status: %w", err)
	}
	return nil
}

func scanTwin(row *sql.Row) (*models.Twin, error) {
	var t models.Twin
	if err := row.Scan(&t.ID, &t.CreatorUserID, &t.Name, &t.Greeting, &t.Backstory,
		&t.VoiceStyle, &t.Interests, &t.AvatarStatus, &t.PlanType, &t.PlanExpiresAt,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan twin: %w", err)
	}
	return &t, nil
}
