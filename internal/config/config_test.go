package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreditPacks(t *testing.T) {
	packs, err := parseCreditPacks("starter=100:49900, plus=600:199900")
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, CreditPack{Credits: 100, AmountMinorUnits: 49900}, packs["starter"])
	assert.Equal(t, CreditPack{Credits: 600, AmountMinorUnits: 199900}, packs["plus"])
}

func TestParseCreditPacksRejectsMalformedEntries(t *testing.T) {
	cases := []string{
		"starter",
		"starter=100",
		"starter=abc:49900",
		"starter=0:49900",
		"starter=100:-5",
		"",
	}
	for _, raw := range cases {
		_, err := parseCreditPacks(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestPlanPrice(t *testing.T) {
	cfg := Config{PlanPriceMonthly: 1, PlanPriceYearly: 2, PlanPriceAfterlife: 3}

	price, ok := cfg.PlanPrice("MONTHLY")
	require.True(t, ok)
	assert.Equal(t, 1, price)

	price, ok = cfg.PlanPrice("AFTERLIFE")
	require.True(t, ok)
	assert.Equal(t, 3, price)

	_, ok = cfg.PlanPrice("WEEKLY")
	assert.False(t, ok)
}

func TestLoadRequiresCoreVariables(t *testing.T) {
	t.Setenv("MYSQL_DSN", "")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MYSQL_DSN")
	assert.Contains(t, err.Error(), "RAZORPAY_WEBHOOK_SECRET")
}

func TestLoadS3BlockIsConditionallyRequired(t *testing.T) {
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/twinhub?parseTime=true")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec")
	t.Setenv("S3_BUCKET", "assets")
	t.Setenv("S3_REGION", "")
	t.Setenv("S3_ACCESS_KEY", "")
	t.Setenv("S3_SECRET_KEY", "")
	t.Setenv("S3_PUBLIC_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_REGION")

	t.Setenv("S3_BUCKET", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, "@every 1m", cfg.SessionGCSchedule)
	require.Contains(t, cfg.CreditPacks, "starter")
}
