package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), PlanMonthly.ExpiryFrom(now))
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), PlanYearly.ExpiryFrom(now))
	assert.Equal(t, time.Date(2124, 1, 1, 0, 0, 0, 0, time.UTC), PlanAfterlife.ExpiryFrom(now))
}

func TestParsePlanType(t *testing.T) {
	plan, err := ParsePlanType("monthly")
	require.NoError(t, err)
	assert.Equal(t, PlanMonthly, plan)

	plan, err = ParsePlanType("  YEARLY ")
	require.NoError(t, err)
	assert.Equal(t, PlanYearly, plan)

	_, err = ParsePlanType("weekly")
	assert.Error(t, err)

	_, err = ParsePlanType("")
	assert.Error(t, err)
}

func TestAnswersProfileDefaults(t *testing.T) {
	profile := Answers{}.Profile()
	assert.Equal(t, "My Twin", profile.Name)
	assert.Equal(t, "warm", profile.VoiceStyle)
	assert.NotEmpty(t, profile.Greeting)

	// Blank values fall back too, supplied values win.
	profile = Answers{
		"twin_name":  "Ada",
		"greeting":   "  ",
		"interests":  "chess, gardening",
		"unexpected": "ignored",
	}.Profile()
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "Hi, it's good to see you again.", profile.Greeting)
	assert.Equal(t, "chess, gardening", profile.Interests)
}

func TestNewTwin(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	session := &OnboardingSession{
		UserID:   7,
		OrderID:  "order_abc",
		PlanType: PlanAfterlife,
		Answers:  Answers{"twin_name": "Ada", "backstory": "born in 1815"},
	}

	twin := NewTwin(session, now)
	assert.Equal(t, int64(7), twin.CreatorUserID)
	assert.Equal(t, "Ada", twin.Name)
	assert.Equal(t, "born in 1815", twin.Backstory)
	assert.Equal(t, AvatarPending, twin.AvatarStatus)
	assert.Equal(t, PlanAfterlife, twin.PlanType)
	assert.Equal(t, time.Date(2124, 1, 1, 0, 0, 0, 0, time.UTC), twin.PlanExpiresAt)
}
