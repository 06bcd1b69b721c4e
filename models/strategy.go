package models

import (
	"encoding/json"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/andrewpaige1/stratdesk-api/validation"
	"github.com/andrewpaige1/stratdesk-api/wizard"
)

const (
	StrategyPredefined = "predefined"
	StrategyCustom     = "custom"
)

// Strategy is either a catalog strategy or one a user built in the wizard.
type Strategy struct {
	Base
	PublicID    string          `gorm:"size:32;uniqueIndex" json:"id"`
	Name        string          `gorm:"not null;size:80" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Kind        string          `gorm:"not null;size:20;index" json:"kind"`
	OwnerID     *uint           `gorm:"index" json:"-"`
	Underlying  string          `gorm:"size:20" json:"underlying"`
	EntryTime   string          `gorm:"size:5" json:"entry_time"`
	ExitTime    string          `gorm:"size:5" json:"exit_time"`
	Legs        datatypes.JSON  `json:"legs"`
	Risk        datatypes.JSON  `json:"risk"`
	IsPremium   bool            `gorm:"default:false" json:"is_premium"`
	MinCapital  decimal.Decimal `gorm:"type:numeric(14,2)" json:"min_capital"`
}

func (s Strategy) Validate() error {
	var errs validation.Errors
	errs.Length("name", s.Name, 1, 80)
	errs.Length("description", s.Description, 0, 500)
	errs.OneOf("kind", s.Kind, StrategyPredefined, StrategyCustom)
	if s.MinCapital.IsNegative() {
		errs.Add("min_capital", "must not be negative")
	}
	return errs.Err()
}

// StrategyFromDraft turns a finalized draft into a new strategy row.
func StrategyFromDraft(d wizard.Draft, kind string) (Strategy, error) {
	legs, err := json.Marshal(d.Legs)
	if err != nil {
		return Strategy{}, err
	}
	risk, err := json.Marshal(d.Risk)
	if err != nil {
		return Strategy{}, err
	}
	publicID, err := gonanoid.New()
	if err != nil {
		return Strategy{}, err
	}
	return Strategy{
		PublicID:    publicID,
		Name:        d.Basics.Name,
		Description: d.Basics.Description,
		Kind:        kind,
		Underlying:  d.Basics.Underlying,
		EntryTime:   d.Basics.EntryTime,
		ExitTime:    d.Basics.ExitTime,
		Legs:        datatypes.JSON(legs),
		Risk:        datatypes.JSON(risk),
	}, nil
}

// OwnedBy reports whether userID built this strategy.
func (s Strategy) OwnedBy(userID uint) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}

// StrategySelection is the per-user state of one strategy. There is at most
// one row per (user, strategy); every write is an upsert on that pair.
type StrategySelection struct {
	ID                 uint       `gorm:"primaryKey" json:"-"`
	UserID             uint       `gorm:"not null;uniqueIndex:idx_selection_user_strategy" json:"-"`
	StrategyID         uint       `gorm:"not null;uniqueIndex:idx_selection_user_strategy" json:"-"`
	IsWishlisted       bool       `gorm:"default:false" json:"is_wishlisted"`
	IsPaid             bool       `gorm:"default:false" json:"is_paid"`
	PaymentRef         string     `gorm:"size:100" json:"-"`
	Mode               string     `gorm:"size:10;default:off" json:"mode"`
	Quantity           int        `gorm:"default:0" json:"quantity"`
	BrokerConnectionID *uint      `json:"-"`
	ActivatedAt        *time.Time `json:"activated_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Strategy         Strategy          `gorm:"foreignKey:StrategyID" json:"-"`
	BrokerConnection *BrokerConnection `gorm:"foreignKey:BrokerConnectionID" json:"-"`
}

// StrategyDraft persists a wizard draft between requests.
type StrategyDraft struct {
	Base
	PublicID string         `gorm:"size:32;uniqueIndex" json:"id"`
	UserID   uint           `gorm:"not null;index" json:"-"`
	Name     string         `gorm:"size:80" json:"name"`
	State    datatypes.JSON `json:"state"`
}

const maxDraftName = 80

// DraftName fits a wizard name into the name column. Unsaved basics are not
// validated, so the full name only lives in State.
func DraftName(name string) string {
	r := []rune(name)
	if len(r) > maxDraftName {
		return string(r[:maxDraftName])
	}
	return name
}
