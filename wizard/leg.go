package wizard

import (
	"github.com/shopspring/decimal"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

type Segment string

const (
	SegmentOptions Segment = "options"
	SegmentFutures Segment = "futures"
)

type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

type Position string

const (
	PositionBuy  Position = "BUY"
	PositionSell Position = "SELL"
)

type Expiry string

const (
	ExpiryWeekly     Expiry = "weekly"
	ExpiryNextWeekly Expiry = "next_weekly"
	ExpiryMonthly    Expiry = "monthly"
)

type StrikeSelection string

const (
	StrikeATM     StrikeSelection = "ATM"
	StrikeITM     StrikeSelection = "ITM"
	StrikeOTM     StrikeSelection = "OTM"
	StrikePremium StrikeSelection = "PREMIUM"
)

const (
	MaxLegs         = 10
	MaxLots         = 100
	MaxStrikeOffset = 20
)

var maxPct = decimal.NewFromInt(500)

// Leg is one configured trade unit within a multi-leg strategy.
type Leg struct {
	ID               string          `json:"id" yaml:"id"`
	Segment          Segment         `json:"segment" yaml:"segment"`
	OptionType       OptionType      `json:"option_type,omitempty" yaml:"option_type,omitempty"`
	Position         Position        `json:"position" yaml:"position"`
	Lots             int             `json:"lots" yaml:"lots"`
	Expiry           Expiry          `json:"expiry" yaml:"expiry"`
	StrikeSelection  StrikeSelection `json:"strike_selection,omitempty" yaml:"strike_selection,omitempty"`
	StrikeOffset     int             `json:"strike_offset" yaml:"strike_offset"`
	Premium          decimal.Decimal `json:"premium" yaml:"premium"`
	StopLossPct      decimal.Decimal `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TargetPct        decimal.Decimal `json:"target_pct" yaml:"target_pct"`
	TrailingStopLoss bool            `json:"trailing_stop_loss" yaml:"trailing_stop_loss"`
}

// Validate checks a single leg.
func (l Leg) Validate() error {
	var errs validation.Errors

	errs.OneOf("segment", string(l.Segment), string(SegmentOptions), string(SegmentFutures))
	errs.OneOf("position", string(l.Position), string(PositionBuy), string(PositionSell))
	errs.Range("lots", l.Lots, 1, MaxLots)
	errs.OneOf("expiry", string(l.Expiry), string(ExpiryWeekly), string(ExpiryNextWeekly), string(ExpiryMonthly))
	errs.Range("strike_offset", l.StrikeOffset, 0, MaxStrikeOffset)

	switch l.Segment {
	case SegmentOptions:
		errs.OneOf("option_type", string(l.OptionType), string(OptionCall), string(OptionPut))
		errs.OneOf("strike_selection", string(l.StrikeSelection),
			string(StrikeATM), string(StrikeITM), string(StrikeOTM), string(StrikePremium))
		l.validateStrike(&errs)
	case SegmentFutures:
		if l.OptionType != "" {
			errs.Add("option_type", "must be empty for futures")
		}
		if l.StrikeSelection != "" {
			errs.Add("strike_selection", "must be empty for futures")
		}
		if l.StrikeOffset != 0 && !errs.Has("strike_offset") {
			errs.Add("strike_offset", "must be 0 for futures")
		}
		if !l.Premium.IsZero() {
			errs.Add("premium", "must be 0 for futures")
		}
	}

	pct(&errs, "stop_loss_pct", l.StopLossPct)
	pct(&errs, "target_pct", l.TargetPct)

	return errs.Err()
}

// validateStrike applies the per-selection rules once strike_offset is
// known to be within 0..MaxStrikeOffset.
func (l Leg) validateStrike(errs *validation.Errors) {
	offsetOK := !errs.Has("strike_offset")
	switch l.StrikeSelection {
	case StrikeATM:
		if offsetOK && l.StrikeOffset != 0 {
			errs.Add("strike_offset", "must be 0 for ATM")
		}
	case StrikeITM, StrikeOTM:
		if offsetOK && l.StrikeOffset == 0 {
			errs.Add("strike_offset", "must be between 1 and %d for %s", MaxStrikeOffset, l.StrikeSelection)
		}
	case StrikePremium:
		if !l.Premium.IsPositive() {
			errs.Add("premium", "must be greater than 0")
		}
		return
	}
	if l.Premium.IsNegative() {
		errs.Add("premium", "must not be negative")
	}
}

func pct(errs *validation.Errors, field string, v decimal.Decimal) {
	if v.IsNegative() || v.GreaterThan(maxPct) {
		errs.Add(field, "must be between 0 and 500")
	}
}
