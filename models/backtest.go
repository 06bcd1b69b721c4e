package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BacktestReport struct {
	Base
	PublicID       string          `gorm:"size:32;uniqueIndex" json:"id"`
	StrategyID     uint            `gorm:"not null;index" json:"-"`
	Title          string          `gorm:"size:150;not null" json:"title"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	InitialCapital decimal.Decimal `gorm:"type:numeric(14,2)" json:"initial_capital"`
	Summary        datatypes.JSON  `json:"summary"`
	Trades         []BacktestTrade `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"trades,omitempty"`
}

type BacktestTrade struct {
	ID         uint            `gorm:"primaryKey" json:"-"`
	ReportID   uint            `gorm:"not null;index" json:"-"`
	Symbol     string          `gorm:"size:40" json:"symbol"`
	Side       string          `gorm:"size:4" json:"side"`
	Quantity   int             `json:"quantity"`
	EntryAt    time.Time       `gorm:"index" json:"entry_at"`
	ExitAt     time.Time       `gorm:"index" json:"exit_at"`
	EntryPrice decimal.Decimal `gorm:"type:numeric(14,2)" json:"entry_price"`
	ExitPrice  decimal.Decimal `gorm:"type:numeric(14,2)" json:"exit_price"`
	PnL        decimal.Decimal `gorm:"type:numeric(14,2)" json:"pnl"`
}
