package models

import (
	"time"

	"gorm.io/gorm"
)

// Base mirrors gorm.Model but keeps the numeric key and soft-delete column
// out of API responses; clients only ever see PublicID.
type Base struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Module{}, &ContentItem{}, &QuizQuestion{}, &QuizAnswer{}, &QuizAttempt{}, &ContentProgress{},
		&Strategy{}, &StrategySelection{}, &StrategyDraft{},
		&Broker{}, &BrokerConnection{},
		&Plan{}, &Subscription{},
		&BacktestReport{}, &BacktestTrade{},
	}
}
