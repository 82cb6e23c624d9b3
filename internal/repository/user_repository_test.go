package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evermirror/twinhub/internal/models"
)

func TestUserConsumeCredits(t *testing.T) {
	mock, _, _, users := newMockDB(t)

	mock.ExpectExec("UPDATE users SET credits = credits -").
		WithArgs(1, int64(7), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET credits = credits -").
		WithArgs(1, int64(7), 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := users.ConsumeCredits(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// Balance below the amount: predicate misses, nothing is deducted.
	ok, err = users.ConsumeCredits(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserAddCreditsClampsAtZero(t *testing.T) {
	mock, _, _, users := newMockDB(t)

	mock.ExpectExec("UPDATE users SET credits = GREATEST").
		WithArgs(-500, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, users.AddCredits(context.Background(), 7, -500))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByIDMissing(t *testing.T) {
	mock, _, _, users := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "credits", "onboarding_status", "plan_type",
			"created_at", "updated_at",
		}))

	user, err := users.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserFindByIDScansPlan(t *testing.T) {
	mock, _, _, users := newMockDB(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "credits", "onboarding_status", "plan_type",
			"created_at", "updated_at",
		}).AddRow(7, "ada@example.com", "Ada", 5, "COMPLETED", "YEARLY", now, now))

	user, err := users.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, 5, user.Credits)
	require.NotNil(t, user.PlanType)
	assert.Equal(t, models.PlanYearly, *user.PlanType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDefaultsOnboardingStatus(t *testing.T) {
	mock, _, _, users := newMockDB(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("ada@example.com", "Ada", "NONE").
		WillReturnResult(sqlmock.NewResult(7, 1))

	user, err := users.Create(context.Background(), &models.User{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, models.OnboardingNone, user.OnboardingStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}
