package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermirror/twinhub/internal/config"
	"github.com/evermirror/twinhub/internal/razorpay"
	"github.com/evermirror/twinhub/internal/repository"
)

func fakeProvider(t *testing.T, orderID string) *razorpay.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + orderID + `","amount":49900,"currency":"INR","status":"created"}`))
	}))
	t.Cleanup(srv.Close)
	return razorpay.NewClient(razorpay.Config{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, nil)
}

func newOnboardingFixture(t *testing.T, provider *razorpay.Client) (*OnboardingService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		Currency:         "INR",
		PlanPriceMonthly: 49900,
		SessionTTL:       30 * time.Minute,
	}
	orders := newOrderService(provider)
	orders.cfg = cfg
	svc := NewOnboardingService(cfg, orders.log, orders,
		repository.NewSessionRepository(db),
		repository.NewBillingRepository(db),
		repository.NewUserRepository(db))
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func TestStartOnboardingStagesSessionAndLedger(t *testing.T) {
	svc, mock := newOnboardingFixture(t, fakeProvider(t, "order_new"))

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "credits", "onboarding_status", "plan_type",
			"created_at", "updated_at",
		}).AddRow(7, "ada@example.com", "Ada", 0, "NONE", nil, fixedNow, fixedNow))
	mock.ExpectExec("INSERT INTO onboarding_sessions").
		WithArgs(int64(7), "order_new", "MONTHLY", `{"twin_name":"Ada"}`, "", "", "PENDING",
			fixedNow.Add(30*time.Minute)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO billing_records").
		WithArgs(int64(7), 49900, nil, "MONTHLY", "PLAN_UPGRADE", "PENDING", "order_new", "").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("UPDATE users SET onboarding_status").
		WithArgs("IN_PROGRESS", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := svc.Start(context.Background(), StartOnboardingInput{
		UserID:   7,
		PlanType: "monthly",
		Answers:  map[string]string{"twin_name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.SessionID)
	assert.Equal(t, "order_new", result.OrderID)
	assert.Equal(t, 49900, result.Amount)
	assert.Equal(t, "INR", result.Currency)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartOnboardingRejectsUnknownPlan(t *testing.T) {
	svc, mock := newOnboardingFixture(t, nil)

	_, err := svc.Start(context.Background(), StartOnboardingInput{UserID: 7, PlanType: "weekly"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartOnboardingUnknownUser(t *testing.T) {
	svc, mock := newOnboardingFixture(t, nil)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "credits", "onboarding_status", "plan_type",
			"created_at", "updated_at",
		}))

	_, err := svc.Start(context.Background(), StartOnboardingInput{UserID: 99, PlanType: "MONTHLY"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStartOnboardingProviderDown(t *testing.T) {
	svc, mock := newOnboardingFixture(t, razorpay.NewClient(razorpay.Config{}, nil))

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "credits", "onboarding_status", "plan_type",
			"created_at", "updated_at",
		}).AddRow(7, "ada@example.com", "Ada", 0, "NONE", nil, fixedNow, fixedNow))

	_, err := svc.Start(context.Background(), StartOnboardingInput{UserID: 7, PlanType: "MONTHLY"})
	assert.ErrorIs(t, err, razorpay.ErrProviderUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
