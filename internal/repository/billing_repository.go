package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evermirror/twinhub/internal/models"
)

type BillingRepository struct {
	db *sql.DB
}

func NewBillingRepository(db *sql.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

const billingColumns = `id, user_id, amount, credits, plan_type, kind, status, order_id, COALESCE(payment_id, ''), created_at, COALESCE(updated_at, created_at)`

func (r *BillingRepository) Create(ctx context.Context, record *models.BillingRecord) error {
	const query = `
INSERT INTO billing_records (user_id, amount, credits, plan_type, kind, status, order_id, payment_id)
VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`
	if record.Status == "" {
		record.Status = models.BillingPending
	}
	res, err := r.db.ExecContext(ctx, query,
		record.UserID, record.Amount, record.Credits, record.PlanType,
		record.Kind, record.Status, record.OrderID, record.PaymentID)
	if err != nil {
		return fmt.Errorf("insert billing record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("billing last insert id: %w", err)
	}
	record.ID = id
	return nil
}

func (r *BillingRepository) FindByOrderID(ctx context.Context, orderID string) (*models.BillingRecord, error) {
	const query = `SELECT ` + billingColumns + ` FROM billing_records WHERE order_id = ? LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, orderID))
}

// CompleteByOrderID transitions a still-PENDING record to COMPLETED. The
// status guard sits inside the UPDATE predicate, so a retried delivery for
// the same order matches zero rows instead of transitioning twice. A miss is
// not an error; the caller decides how to treat it.
func (r *BillingRepository) CompleteByOrderID(ctx context.Context, orderID, paymentID string) (bool, error) {
	const query = `
UPDATE billing_records SET status = ?, payment_id = ?, updated_at = NOW()
WHERE order_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, models.BillingCompleted, paymentID, orderID, models.BillingPending)
	if err != nil {
		return false, fmt.Errorf("complete billing record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete billing rows affected: %w", err)
	}
	return affected > 0, nil
}

// FailByOrderID is the symmetric terminal transition for a failed capture.
func (r *BillingRepository) FailByOrderID(ctx context.Context, orderID string) (bool, error) {
	const query = `
UPDATE billing_records SET status = ?, updated_at = NOW()
WHERE order_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, models.BillingFailed, orderID, models.BillingPending)
	if err != nil {
		return false, fmt.Errorf("fail billing record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail billing rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *BillingRepository) ListByUser(ctx context.Context, userID int64) ([]models.BillingRecord, error) {
	const query = `SELECT ` + billingColumns + ` FROM billing_records WHERE user_id = ? ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	var records []models.BillingRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// KindSummary aggregates ledger totals for the admin reports.
type KindSummary struct {
	Kind        models.BillingKind
	Status      models.BillingStatus
	Count       int
	TotalAmount int
}

func (r *BillingRepository) SummarizeByKind(ctx context.Context) ([]KindSummary, error) {
	const query = `
SELECT kind, status, COUNT(*), COALESCE(SUM(amount), 0)
FROM billing_records
GROUP BY kind, status
ORDER BY kind, status`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("summarize billing: %w", err)
	}
	defer rows.Close()

	var summaries []KindSummary
	for rows.Next() {
		var s KindSummary
		if err := rows.Scan(&s.Kind, &s.Status, &s.Count, &s.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan billing summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *BillingRepository) scanOne(row *sql.Row) (*models.BillingRecord, error) {
	record, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *BillingRepository) scanRow(row rowScanner) (*models.BillingRecord, error) {
	var record models.BillingRecord
	var credits sql.NullInt64
	var plan sql.NullString
	if err := row.Scan(&record.ID, &record.UserID, &record.Amount, &credits, &plan,
		&record.Kind, &record.Status, &record.OrderID, &record.PaymentID,
		&record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan billing record: %w", err)
	}
	if credits.Valid {
		c := int(credits.Int64)
		record.Credits = &c
	}
	if plan.Valid {
		p := models.PlanType(plan.String)
		record.PlanType = &p
	}
	return &record, nil
}
