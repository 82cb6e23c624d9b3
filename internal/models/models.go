package models

import (
	"fmt"
	"strings"
	"time"
)

type PlanType string

const (
	PlanMonthly   PlanType = "MONTHLY"
	PlanYearly    PlanType = "YEARLY"
	PlanAfterlife PlanType = "AFTERLIFE"
)

// ParsePlanType validates a client-supplied plan identifier.
func ParsePlanType(raw string) (PlanType, error) {
	switch PlanType(strings.ToUpper(strings.TrimSpace(raw))) {
	case PlanMonthly:
		return PlanMonthly, nil
	case PlanYearly:
		return PlanYearly, nil
	case PlanAfterlife:
		return PlanAfterlife, nil
	default:
		return "", fmt.Errorf("unknown plan type: %q", raw)
	}
}

// ExpiryFrom computes the plan expiry date relative to the completion time.
func (p PlanType) ExpiryFrom(now time.Time) time.Time {
	switch p {
	case PlanYearly:
		return now.AddDate(1, 0, 0)
	case PlanAfterlife:
		return now.AddDate(100, 0, 0)
	default:
		return now.AddDate(0, 0, 30)
	}
}

type BillingKind string

const (
	KindPurchase    BillingKind = "PURCHASE"
	KindPlanUpgrade BillingKind = "PLAN_UPGRADE"
	KindUsage       BillingKind = "USAGE"
	KindRefund      BillingKind = "REFUND"
)

type BillingStatus string

const (
	BillingPending   BillingStatus = "PENDING"
	BillingCompleted BillingStatus = "COMPLETED"
	BillingFailed    BillingStatus = "FAILED"
)

type SessionStatus string

const (
	SessionPending SessionStatus = "PENDING"
	SessionPaid    SessionStatus = "PAID"
	SessionFailed  SessionStatus = "FAILED"
)

type AvatarStatus string

const (
	AvatarPending  AvatarStatus = "PENDING"
	AvatarActive   AvatarStatus = "ACTIVE"
	AvatarRejected AvatarStatus = "REJECTED"
)

type OnboardingStatus string

const (
	OnboardingNone       OnboardingStatus = "NONE"
	OnboardingInProgress OnboardingStatus = "IN_PROGRESS"
	OnboardingCompleted  OnboardingStatus = "COMPLETED"
)

type User struct {
	ID               int64
	Email            string
	Name             string
	Credits          int
	OnboardingStatus OnboardingStatus
	PlanType         *PlanType
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OnboardingSession struct {
	ID             int64
	UserID         int64
	OrderID        string
	PlanType       PlanType
	Answers        Answers
	VoiceSampleURL string
	PortraitURL    string
	Status         SessionStatus
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type BillingRecord struct {
	ID        int64
	UserID    int64
	Amount    int
	Credits   *int
	PlanType  *PlanType
	Kind      BillingKind
	Status    BillingStatus
	OrderID   string
	PaymentID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Twin struct {
	ID            int64
	CreatorUserID int64
	Name          string
	Greeting      string
	Backstory     string
	VoiceStyle    string
	Interests     string
	AvatarStatus  AvatarStatus
	PlanType      PlanType
	PlanExpiresAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTwin materializes a twin from a paid onboarding session. Defaults for
// missing answers are applied here, before the record ever reaches the store.
func NewTwin(session *OnboardingSession, now time.Time) *Twin {
	profile := session.Answers.Profile()
	return &Twin{
		CreatorUserID: session.UserID,
		Name:          profile.Name,
		Greeting:      profile.Greeting,
		Backstory:     profile.Backstory,
		VoiceStyle:    profile.VoiceStyle,
		Interests:     profile.Interests,
		AvatarStatus:  AvatarPending,
		PlanType:      session.PlanType,
		PlanExpiresAt: session.PlanType.ExpiryFrom(now),
	}
}
