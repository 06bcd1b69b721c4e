// Package wizard holds the custom strategy builder state. A Draft is a value:
// every operation returns a new Draft and leaves the receiver untouched, so
// a failed step never corrupts what is persisted.
package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"

	"github.com/andrewpaige1/stratdesk-api/validation"
)

type Step int

const (
	StepBasics Step = iota
	StepLegs
	StepRisk
	StepReview
)

// NumSteps is the number of wizard steps; valid steps are [0, NumSteps-1].
const NumSteps = 4

var stepNames = [NumSteps]string{"basics", "legs", "risk", "review"}

func (s Step) String() string {
	if !s.Valid() {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Valid() bool { return s >= 0 && s < NumSteps }

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Step) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		parsed, err := ParseStep(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("wizard: step must be a name or index")
	}
	if !Step(n).Valid() {
		return ErrStepOutOfRange
	}
	*s = Step(n)
	return nil
}

func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if strings.EqualFold(n, name) {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("wizard: unknown step %q", name)
}

var (
	ErrFirstStep      = errors.New("wizard: already at the first step")
	ErrLastStep       = errors.New("wizard: already at the last step")
	ErrStepOutOfRange = errors.New("wizard: step out of range")
	ErrLegNotFound    = errors.New("wizard: leg not found")
	ErrTooManyLegs    = fmt.Errorf("wizard: a strategy can have at most %d legs", MaxLegs)
	ErrNotAtReview    = errors.New("wizard: finalize is only allowed from the review step")
)

// StepError reports the step that blocked a transition and why.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("wizard: %s step is incomplete: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

var Underlyings = []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY", "SENSEX"}

const (
	marketOpen  = "09:15"
	marketClose = "15:30"
)

type Basics struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Underlying  string `json:"underlying" yaml:"underlying"`
	EntryTime   string `json:"entry_time" yaml:"entry_time"`
	ExitTime    string `json:"exit_time" yaml:"exit_time"`
}

func (b Basics) Validate() error {
	var errs validation.Errors
	errs.Length("name", b.Name, 1, 80)
	errs.Length("description", b.Description, 0, 500)
	errs.OneOf("underlying", b.Underlying, Underlyings...)

	entry, entryErr := parseClock(b.EntryTime)
	if entryErr != nil {
		errs.Add("entry_time", "%v", entryErr)
	}
	exit, exitErr := parseClock(b.ExitTime)
	if exitErr != nil {
		errs.Add("exit_time", "%v", exitErr)
	}
	if entryErr == nil && exitErr == nil && !entry.Before(exit) {
		errs.Add("exit_time", "must be after entry_time")
	}
	return errs.Err()
}

var clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

func parseClock(v string) (time.Time, error) {
	if !clockPattern.MatchString(v) {
		return time.Time{}, fmt.Errorf("must be HH:MM")
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be HH:MM")
	}
	open, _ := time.Parse("15:04", marketOpen)
	closing, _ := time.Parse("15:04", marketClose)
	if t.Before(open) || t.After(closing) {
		return time.Time{}, fmt.Errorf("must be within market hours %s-%s", marketOpen, marketClose)
	}
	return t, nil
}

type Risk struct {
	MaxLossPerDay   decimal.Decimal `json:"max_loss_per_day" yaml:"max_loss_per_day"`
	MaxProfitPerDay decimal.Decimal `json:"max_profit_per_day" yaml:"max_profit_per_day"`
	ReEntry         bool            `json:"re_entry" yaml:"re_entry"`
	MaxReEntries    int             `json:"max_re_entries" yaml:"max_re_entries"`
}

func (r Risk) Validate() error {
	var errs validation.Errors
	if r.MaxLossPerDay.IsNegative() {
		errs.Add("max_loss_per_day", "must not be negative")
	}
	if r.MaxProfitPerDay.IsNegative() {
		errs.Add("max_profit_per_day", "must not be negative")
	}
	if r.ReEntry {
		errs.Range("max_re_entries", r.MaxReEntries, 0, 5)
	} else if r.MaxReEntries != 0 {
		errs.Add("max_re_entries", "must be 0 when re_entry is disabled")
	}
	return errs.Err()
}

// Draft is the in-progress state of the custom strategy wizard.
type Draft struct {
	Step   Step   `json:"step"`
	Basics Basics `json:"basics"`
	Legs   []Leg  `json:"legs"`
	Risk   Risk   `json:"risk"`
}

func (d Draft) clone() Draft {
	d.Legs = slices.Clone(d.Legs)
	return d
}

func (d Draft) indexOf(id string) int {
	return slices.IndexFunc(d.Legs, func(l Leg) bool { return l.ID == id })
}

func newLegID() (string, error) {
	return gonanoid.New(12)
}

func (d Draft) SetBasics(b Basics) Draft {
	d = d.clone()
	b.Name = strings.TrimSpace(b.Name)
	b.Underlying = strings.ToUpper(strings.TrimSpace(b.Underlying))
	d.Basics = b
	return d
}

func (d Draft) SetRisk(r Risk) Draft {
	d = d.clone()
	d.Risk = r
	return d
}

// AddLeg validates l, assigns it a fresh id and appends it.
func (d Draft) AddLeg(l Leg) (Draft, error) {
	if len(d.Legs) >= MaxLegs {
		return d, ErrTooManyLegs
	}
	if err := l.Validate(); err != nil {
		return d, err
	}
	id, err := newLegID()
	if err != nil {
		return d, fmt.Errorf("wizard: generate leg id: %w", err)
	}
	l.ID = id
	d = d.clone()
	d.Legs = append(d.Legs, l)
	return d, nil
}

// UpdateLeg replaces the leg with the given id, keeping its id and position.
func (d Draft) UpdateLeg(id string, l Leg) (Draft, error) {
	i := d.indexOf(id)
	if i < 0 {
		return d, ErrLegNotFound
	}
	if err := l.Validate(); err != nil {
		return d, err
	}
	l.ID = id
	d = d.clone()
	d.Legs[i] = l
	return d, nil
}

func (d Draft) RemoveLeg(id string) (Draft, error) {
	i := d.indexOf(id)
	if i < 0 {
		return d, ErrLegNotFound
	}
	d = d.clone()
	d.Legs = slices.Delete(d.Legs, i, i+1)
	// Removing the last leg while past the legs step sends the user back.
	if len(d.Legs) == 0 && d.Step > StepLegs {
		d.Step = StepLegs
	}
	return d, nil
}

// DuplicateLeg inserts a copy of the leg right after it.
func (d Draft) DuplicateLeg(id string) (Draft, error) {
	i := d.indexOf(id)
	if i < 0 {
		return d, ErrLegNotFound
	}
	if len(d.Legs) >= MaxLegs {
		return d, ErrTooManyLegs
	}
	newID, err := newLegID()
	if err != nil {
		return d, fmt.Errorf("wizard: generate leg id: %w", err)
	}
	cp := d.Legs[i]
	cp.ID = newID
	d = d.clone()
	d.Legs = slices.Insert(d.Legs, i+1, cp)
	return d, nil
}

// MoveLeg moves the leg to index, clamped to the leg list bounds.
func (d Draft) MoveLeg(id string, index int) (Draft, error) {
	i := d.indexOf(id)
	if i < 0 {
		return d, ErrLegNotFound
	}
	index = max(0, min(index, len(d.Legs)-1))
	d = d.clone()
	l := d.Legs[i]
	d.Legs = slices.Delete(d.Legs, i, i+1)
	d.Legs = slices.Insert(d.Legs, index, l)
	return d, nil
}

// Validate checks the data owned by step s.
func (d Draft) Validate(s Step) error {
	switch s {
	case StepBasics:
		return d.Basics.Validate()
	case StepLegs:
		if len(d.Legs) == 0 {
			return validation.Errors{{Field: "legs", Message: "add at least one leg"}}
		}
		if len(d.Legs) > MaxLegs {
			return ErrTooManyLegs
		}
		var errs validation.Errors
		for i, l := range d.Legs {
			errs.Merge(fmt.Sprintf("legs[%d]", i), l.Validate())
		}
		return errs.Err()
	case StepRisk:
		return d.Risk.Validate()
	case StepReview:
		return nil
	}
	return ErrStepOutOfRange
}

func (d Draft) validateThrough(last Step) error {
	for s := StepBasics; s <= last; s++ {
		if err := d.Validate(s); err != nil {
			return &StepError{Step: s, Err: err}
		}
	}
	return nil
}

// Next validates the current step and advances by one.
func (d Draft) Next() (Draft, error) {
	if d.Step >= NumSteps-1 {
		return d, ErrLastStep
	}
	if err := d.Validate(d.Step); err != nil {
		return d, &StepError{Step: d.Step, Err: err}
	}
	d = d.clone()
	d.Step++
	return d, nil
}

func (d Draft) Prev() (Draft, error) {
	if d.Step <= 0 {
		return d, ErrFirstStep
	}
	d = d.clone()
	d.Step--
	return d, nil
}

// GoTo jumps to s. Moving backwards is always allowed; moving forward
// requires every step before s to be valid.
func (d Draft) GoTo(s Step) (Draft, error) {
	if !s.Valid() {
		return d, ErrStepOutOfRange
	}
	if s > d.Step {
		if err := d.validateThrough(s - 1); err != nil {
			return d, err
		}
	}
	d = d.clone()
	d.Step = s
	return d, nil
}

// Finalize returns the completed draft once every step is valid and the
// user is on the review step.
func (d Draft) Finalize() (Draft, error) {
	if d.Step != StepReview {
		return d, ErrNotAtReview
	}
	if err := d.validateThrough(StepReview); err != nil {
		return d, err
	}
	return d.clone(), nil
}

// Build runs a complete definition through the wizard and returns the
// finalized draft, so catalog strategies obey the same rules as ones built
// step by step.
func Build(basics Basics, legs []Leg, risk Risk) (Draft, error) {
	d := Draft{}.SetBasics(basics).SetRisk(risk)
	var errs validation.Errors
	for i, l := range legs {
		next, err := d.AddLeg(l)
		if err != nil {
			errs.Merge(fmt.Sprintf("legs[%d]", i), err)
			continue
		}
		d = next
	}
	if err := errs.Err(); err != nil {
		return d, err
	}
	d, err := d.GoTo(StepReview)
	if err != nil {
		return d, err
	}
	return d.Finalize()
}
