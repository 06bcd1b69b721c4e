package models

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"

	// FeaturePremiumStrategies unlocks every premium strategy.
	FeaturePremiumStrategies = "premium_strategies"
)

type Plan struct {
	Base
	Code           string          `gorm:"size:40;uniqueIndex;not null" json:"code"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Currency       string          `gorm:"size:3;default:INR" json:"currency"`
	IntervalMonths int             `gorm:"default:1" json:"interval_months"`
	Features       datatypes.JSON  `json:"features"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
}

func (p Plan) Validate() error {
	var errs validation.Errors
	errs.Length("code", p.Code, 1, 40)
	errs.Length("name", p.Name, 1, 100)
	if p.Price.IsNegative() {
		errs.Add("price", "must not be negative")
	}
	errs.Length("currency", p.Currency, 3, 3)
	errs.Range("interval_months", p.IntervalMonths, 1, 36)
	if len(p.Features) > 0 {
		var fs []string
		if err := json.Unmarshal(p.Features, &fs); err != nil {
			errs.Add("features", "must be a list of strings")
		}
	}
	return errs.Err()
}

func (p Plan) FeatureList() []string {
	var fs []string
	if len(p.Features) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.Features, &fs); err != nil {
		return nil
	}
	return fs
}

func (p Plan) HasFeature(f string) bool {
	return slices.Contains(p.FeatureList(), f)
}

type Subscription struct {
	Base
	PublicID   string    `gorm:"size:32;uniqueIndex" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"-"`
	PlanID     uint      `gorm:"not null" json:"-"`
	Plan       Plan      `gorm:"foreignKey:PlanID" json:"plan"`
	Status     string    `gorm:"size:20;not null;index" json:"status"`
	StartedAt  time.Time `json:"started_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	PaymentRef string    `gorm:"size:100" json:"payment_ref"`
}

// Effective reports whether the subscription grants its plan at now.
func (s Subscription) Effective(now time.Time) bool {
	return s.Status == SubscriptionActive && now.Before(s.ExpiresAt)
}
