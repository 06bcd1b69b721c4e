package wizard

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func validBasics() Basics {
	return Basics{Name: "Short straddle", Underlying: "NIFTY", EntryTime: "09:20", ExitTime: "15:15"}
}

func callLeg() Leg {
	return Leg{
		Segment:         SegmentOptions,
		OptionType:      OptionCall,
		Position:        PositionSell,
		Lots:            1,
		Expiry:          ExpiryWeekly,
		StrikeSelection: StrikeATM,
		StopLossPct:     decimal.NewFromInt(25),
	}
}

func readyDraft(t *testing.T) Draft {
	t.Helper()
	d := Draft{}.SetBasics(validBasics())
	d, err := d.AddLeg(callLeg())
	require.NoError(t, err)
	return d
}

func TestNextStaysInBounds(t *testing.T) {
	d := readyDraft(t)

	var err error
	for i := 0; i < NumSteps-1; i++ {
		d, err = d.Next()
		require.NoError(t, err)
		require.True(t, d.Step.Valid())
	}
	assert.Equal(t, StepReview, d.Step)

	after, err := d.Next()
	assert.ErrorIs(t, err, ErrLastStep)
	assert.Equal(t, StepReview, after.Step)

	for i := 0; i < NumSteps-1; i++ {
		d, err = d.Prev()
		require.NoError(t, err)
	}
	assert.Equal(t, StepBasics, d.Step)

	_, err = d.Prev()
	assert.ErrorIs(t, err, ErrFirstStep)
}

func TestNextBlockedByInvalidStep(t *testing.T) {
	d := Draft{}.SetBasics(Basics{Name: "", Underlying: "DOW", EntryTime: "08:00", ExitTime: "25:00"})

	next, err := d.Next()
	require.Error(t, err)
	assert.Equal(t, StepBasics, next.Step)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepBasics, stepErr.Step)

	var fields validation.Errors
	require.True(t, errors.As(err, &fields))
	assert.True(t, fields.Has("name"))
	assert.True(t, fields.Has("underlying"))
	assert.True(t, fields.Has("entry_time"))
	assert.True(t, fields.Has("exit_time"))
}

func TestBasicsRequireTwoDigitClock(t *testing.T) {
	for _, v := range []string{"9:15", "09:5", "0915", " 09:15", "09:15:00"} {
		b := validBasics()
		b.EntryTime = v
		var fields validation.Errors
		require.ErrorAs(t, b.Validate(), &fields, v)
		assert.True(t, fields.Has("entry_time"), v)
	}
	assert.NoError(t, validBasics().Validate())
}

func TestLegsStepRequiresALeg(t *testing.T) {
	d := Draft{}.SetBasics(validBasics())
	d, err := d.Next()
	require.NoError(t, err)

	_, err = d.Next()
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLegs, stepErr.Step)
}

func TestOperationsDoNotMutateReceiver(t *testing.T) {
	d := readyDraft(t)
	before := d.clone()

	_, err := d.AddLeg(callLeg())
	require.NoError(t, err)
	_, err = d.UpdateLeg(d.Legs[0].ID, Leg{Segment: SegmentFutures, Position: PositionBuy, Lots: 2, Expiry: ExpiryMonthly})
	require.NoError(t, err)
	_, err = d.RemoveLeg(d.Legs[0].ID)
	require.NoError(t, err)
	_, _ = d.Next()

	if diff := cmp.Diff(before, d, decimalEqual); diff != "" {
		t.Fatalf("draft mutated (-before +after):\n%s", diff)
	}
}

func TestUpdateLegKeepsIDAndPosition(t *testing.T) {
	d := readyDraft(t)
	d, err := d.AddLeg(callLeg())
	require.NoError(t, err)
	id := d.Legs[0].ID

	put := callLeg()
	put.OptionType = OptionPut
	put.ID = "ignored"
	d, err = d.UpdateLeg(id, put)
	require.NoError(t, err)

	assert.Equal(t, id, d.Legs[0].ID)
	assert.Equal(t, OptionPut, d.Legs[0].OptionType)

	_, err = d.UpdateLeg("missing", put)
	assert.ErrorIs(t, err, ErrLegNotFound)
}

func TestAddLegLimit(t *testing.T) {
	d := Draft{}
	var err error
	for i := 0; i < MaxLegs; i++ {
		d, err = d.AddLeg(callLeg())
		require.NoError(t, err)
	}
	_, err = d.AddLeg(callLeg())
	assert.ErrorIs(t, err, ErrTooManyLegs)
	_, err = d.DuplicateLeg(d.Legs[0].ID)
	assert.ErrorIs(t, err, ErrTooManyLegs)
}

func TestDuplicateAndMoveLeg(t *testing.T) {
	d := readyDraft(t)
	first := d.Legs[0].ID

	d, err := d.DuplicateLeg(first)
	require.NoError(t, err)
	require.Len(t, d.Legs, 2)
	assert.NotEqual(t, first, d.Legs[1].ID)

	d, err = d.MoveLeg(first, 99)
	require.NoError(t, err)
	assert.Equal(t, first, d.Legs[1].ID)

	d, err = d.MoveLeg(first, -3)
	require.NoError(t, err)
	assert.Equal(t, first, d.Legs[0].ID)
}

func TestRemovingLastLegReturnsToLegsStep(t *testing.T) {
	d := readyDraft(t)
	d, err := d.GoTo(StepRisk)
	require.NoError(t, err)

	d, err = d.RemoveLeg(d.Legs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StepLegs, d.Step)
}

func TestGoTo(t *testing.T) {
	d := Draft{}.SetBasics(validBasics())

	_, err := d.GoTo(StepReview)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLegs, stepErr.Step)

	_, err = d.GoTo(Step(NumSteps))
	assert.ErrorIs(t, err, ErrStepOutOfRange)
	_, err = d.GoTo(Step(-1))
	assert.ErrorIs(t, err, ErrStepOutOfRange)

	d, err = d.GoTo(StepLegs)
	require.NoError(t, err)
	d, err = d.GoTo(StepBasics)
	require.NoError(t, err)
	assert.Equal(t, StepBasics, d.Step)
}

func TestFinalize(t *testing.T) {
	d := readyDraft(t)
	_, err := d.Finalize()
	assert.ErrorIs(t, err, ErrNotAtReview)

	d, err = d.GoTo(StepReview)
	require.NoError(t, err)
	done, err := d.Finalize()
	require.NoError(t, err)
	assert.Len(t, done.Legs, 1)
}

func TestLegValidation(t *testing.T) {
	tests := []struct {
		name  string
		leg   Leg
		field string
	}{
		{"zero lots", func() Leg { l := callLeg(); l.Lots = 0; return l }(), "lots"},
		{"ATM offset", func() Leg { l := callLeg(); l.StrikeOffset = 2; return l }(), "strike_offset"},
		{"OTM without offset", func() Leg { l := callLeg(); l.StrikeSelection = StrikeOTM; return l }(), "strike_offset"},
		{"premium strike", func() Leg { l := callLeg(); l.StrikeSelection = StrikePremium; return l }(), "premium"},
		{"futures option type", Leg{Segment: SegmentFutures, OptionType: OptionCall, Position: PositionBuy, Lots: 1, Expiry: ExpiryMonthly}, "option_type"},
		{"stop loss range", func() Leg { l := callLeg(); l.StopLossPct = decimal.NewFromInt(-1); return l }(), "stop_loss_pct"},
		{"bad expiry", func() Leg { l := callLeg(); l.Expiry = "daily"; return l }(), "expiry"},
		{"premium negative offset", func() Leg {
			l := callLeg()
			l.StrikeSelection, l.StrikeOffset, l.Premium = StrikePremium, -7, decimal.NewFromInt(50)
			return l
		}(), "strike_offset"},
		{"premium offset too large", func() Leg {
			l := callLeg()
			l.StrikeSelection, l.StrikeOffset, l.Premium = StrikePremium, 999, decimal.NewFromInt(50)
			return l
		}(), "strike_offset"},
		{"OTM offset too large", func() Leg { l := callLeg(); l.StrikeSelection, l.StrikeOffset = StrikeOTM, 21; return l }(), "strike_offset"},
		{"negative premium on ATM", func() Leg { l := callLeg(); l.Premium = decimal.NewFromInt(-1); return l }(), "premium"},
		{"futures offset", Leg{Segment: SegmentFutures, Position: PositionBuy, Lots: 1, Expiry: ExpiryMonthly, StrikeOffset: -3}, "strike_offset"},
		{"futures premium", Leg{Segment: SegmentFutures, Position: PositionBuy, Lots: 1, Expiry: ExpiryMonthly, Premium: decimal.NewFromInt(-10)}, "premium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.leg.Validate()
			var fields validation.Errors
			require.ErrorAs(t, err, &fields)
			assert.True(t, fields.Has(tt.field), "expected %s in %v", tt.field, fields)
		})
	}
	require.NoError(t, callLeg().Validate())

	premium := callLeg()
	premium.StrikeSelection, premium.Premium = StrikePremium, decimal.NewFromInt(50)
	assert.NoError(t, premium.Validate())
	assert.NoError(t, Leg{Segment: SegmentFutures, Position: PositionBuy, Lots: 1, Expiry: ExpiryMonthly}.Validate())
}

func TestLegValidationReportsOffsetOnce(t *testing.T) {
	l := callLeg()
	l.StrikeSelection, l.StrikeOffset = StrikeOTM, -2
	var fields validation.Errors
	require.ErrorAs(t, l.Validate(), &fields)
	n := 0
	for _, f := range fields {
		if f.Field == "strike_offset" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestRiskValidation(t *testing.T) {
	assert.NoError(t, Risk{ReEntry: true, MaxReEntries: 3}.Validate())
	assert.Error(t, Risk{ReEntry: false, MaxReEntries: 1}.Validate())
	assert.Error(t, Risk{ReEntry: true, MaxReEntries: 6}.Validate())
	assert.Error(t, Risk{MaxLossPerDay: decimal.NewFromInt(-5)}.Validate())
}

func TestStepJSON(t *testing.T) {
	b, err := json.Marshal(StepRisk)
	require.NoError(t, err)
	assert.JSONEq(t, `"risk"`, string(b))

	var s Step
	require.NoError(t, json.Unmarshal([]byte(`"review"`), &s))
	assert.Equal(t, StepReview, s)
	require.NoError(t, json.Unmarshal([]byte(`1`), &s))
	assert.Equal(t, StepLegs, s)
	assert.Error(t, json.Unmarshal([]byte(`7`), &s))
	assert.Error(t, json.Unmarshal([]byte(`"checkout"`), &s))
}
