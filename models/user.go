package models

import (
	"gorm.io/gorm"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

// User represents a user in the system
type User struct {
	Base
	Auth0ID  string `gorm:"uniqueIndex;not null;size:200" json:"-"`
	Nickname string `gorm:"size:100" json:"nickname"`
	Email    string `gorm:"size:200" json:"email"`

	FullName        string `gorm:"size:100" json:"full_name"`
	Phone           string `gorm:"size:20" json:"phone"`
	AvatarURL       string `gorm:"size:500" json:"avatar_url"`
	ExperienceLevel string `gorm:"size:20;default:beginner" json:"experience_level"`
	RiskAppetite    string `gorm:"size:20;default:medium" json:"risk_appetite"`

	TwoFactorEnabled bool   `gorm:"default:false" json:"two_factor_enabled"`
	TradingPINHash   string `gorm:"size:100" json:"-"`
	HasTradingPIN    bool   `gorm:"-" json:"has_trading_pin"`
}

func (u *User) AfterFind(tx *gorm.DB) error {
	u.HasTradingPIN = u.TradingPINHash != ""
	return nil
}

var (
	ExperienceLevels = []string{"beginner", "intermediate", "expert"}
	RiskAppetites    = []string{"low", "medium", "high"}
)

// ProfileUpdate is a partial update of the profile form; nil fields are
// left unchanged.
type ProfileUpdate struct {
	FullName        *string `json:"full_name"`
	Phone           *string `json:"phone"`
	AvatarURL       *string `json:"avatar_url"`
	ExperienceLevel *string `json:"experience_level"`
	RiskAppetite    *string `json:"risk_appetite"`
}

func (p ProfileUpdate) Validate() error {
	var errs validation.Errors
	if p.FullName != nil {
		errs.Length("full_name", *p.FullName, 0, 100)
	}
	if p.Phone != nil && *p.Phone != "" {
		errs.Phone("phone", *p.Phone)
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		errs.HTTPURL("avatar_url", *p.AvatarURL)
	}
	if p.ExperienceLevel != nil {
		errs.OneOf("experience_level", *p.ExperienceLevel, ExperienceLevels...)
	}
	if p.RiskAppetite != nil {
		errs.OneOf("risk_appetite", *p.RiskAppetite, RiskAppetites...)
	}
	return errs.Err()
}

// Apply copies the provided fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.ExperienceLevel != nil {
		u.ExperienceLevel = *p.ExperienceLevel
	}
	if p.RiskAppetite != nil {
		u.RiskAppetite = *p.RiskAppetite
	}
}
