package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CreditPack is a purchasable credit bundle, priced in minor currency units.
type CreditPack struct {
	Credits          int
	AmountMinorUnits int
}

// Config aggregates runtime configuration for the backend and its clients.
type Config struct {
	ListenAddr    string
	AdminUsername string
	AdminPassword string

	MySQLDSN string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string

	Currency              string
	PlanPriceMonthly      int
	PlanPriceYearly       int
	PlanPriceAfterlife    int
	CreditPacks           map[string]CreditPack
	InteractionCreditCost int

	SessionTTL        time.Duration
	SessionGCSchedule string

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string

	TelegramBotToken  string
	TelegramOpsChatID int64

	LogDebug bool
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	packs, err := parseCreditPacks(getEnv("CREDIT_PACKS", "starter=100:49900,plus=600:199900"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8080"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "change-me"),

		RazorpayBaseURL: strings.TrimRight(getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"), "/"),

		Currency:              getEnv("PAYMENT_CURRENCY", "INR"),
		PlanPriceMonthly:      getInt("PLAN_PRICE_MONTHLY", 49900),
		PlanPriceYearly:       getInt("PLAN_PRICE_YEARLY", 499900),
		PlanPriceAfterlife:    getInt("PLAN_PRICE_AFTERLIFE", 2499900),
		CreditPacks:           packs,
		InteractionCreditCost: getInt("INTERACTION_CREDIT_COST", 1),

		SessionTTL:        time.Minute * time.Duration(getInt("SESSION_TTL_MINUTES", 30)),
		SessionGCSchedule: getEnv("SESSION_GC_SCHEDULE", "@every 1m"),

		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        os.Getenv("S3_REGION"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:  getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:        getEnv("S3_PREFIX", "onboarding"),

		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramOpsChatID: getInt64("TELEGRAM_OPS_CHAT_ID", 0),

		LogDebug: getBool("LOG_DEBUG", false),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.RazorpayKeyID = os.Getenv("RAZORPAY_KEY_ID")
	cfg.RazorpayKeySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	cfg.RazorpayWebhookSecret = os.Getenv("RAZORPAY_WEBHOOK_SECRET")

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.RazorpayWebhookSecret == "" {
		missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
	}
	// Order creation reports the provider unavailable at call time when the
	// API keys are absent, so they are deliberately not required here.
	if cfg.S3Bucket != "" {
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3PublicBaseURL == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// PlanPrice returns the configured price for a plan type name.
func (c Config) PlanPrice(plan string) (int, bool) {
	switch plan {
	case "MONTHLY":
		return c.PlanPriceMonthly, true
	case "YEARLY":
		return c.PlanPriceYearly, true
	case "AFTERLIFE":
		return c.PlanPriceAfterlife, true
	default:
		return 0, false
	}
}

// parseCreditPacks parses "name=credits:amount" pairs separated by commas.
func parseCreditPacks(raw string) (map[string]CreditPack, error) {
	packs := make(map[string]CreditPack)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, spec, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid credit pack entry: %q", entry)
		}
		creditsRaw, amountRaw, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid credit pack entry: %q", entry)
		}
		credits, err := strconv.Atoi(strings.TrimSpace(creditsRaw))
		if err != nil || credits <= 0 {
			return nil, fmt.Errorf("invalid credits in pack %q", entry)
		}
		amount, err := strconv.Atoi(strings.TrimSpace(amountRaw))
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid amount in pack %q", entry)
		}
		packs[strings.ToLower(strings.TrimSpace(name))] = CreditPack{
			Credits:          credits,
			AmountMinorUnits: amount,
		}
	}
	if len(packs) == 0 {
		return nil, errors.New("no credit packs configured")
	}
	return packs, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// Running purely off the process environment is fine.
	return nil
}
