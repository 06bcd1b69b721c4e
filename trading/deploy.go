// Package trading decides whether a strategy may be switched into paper or
// live mode. Going live walks a fixed sequence of checks (confirm, quantity,
// broker, pin); the first unmet one is reported so the client can show the
// matching dialog.
package trading

import (
	"errors"
	"fmt"
)

type Mode string

const (
	ModeOff   Mode = "off"
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case ModeOff, ModePaper, ModeLive:
		return Mode(v), nil
	}
	return "", fmt.Errorf("trading: unknown mode %q", v)
}

type Step string

const (
	StepConfirm  Step = "confirm"
	StepQuantity Step = "quantity"
	StepBroker   Step = "broker"
	StepPin      Step = "pin"
	StepActive   Step = "active"
)

var (
	ErrNotPaid  = errors.New("trading: strategy is locked for this user")
	ErrModeOff  = errors.New("trading: use stop to switch a strategy off")
	ErrBadMode  = errors.New("trading: mode must be paper or live")
	ErrPinWrong = errors.New("trading: trading pin does not match")
)

// StepRequiredError reports the first step of the live sequence that has
// not been satisfied.
type StepRequiredError struct {
	Step   Step
	Reason string
}

func (e *StepRequiredError) Error() string {
	return fmt.Sprintf("trading: %s required: %s", e.Step, e.Reason)
}

// Request is what the client sends after walking the deploy dialogs.
type Request struct {
	Mode      Mode
	Confirmed bool
	Quantity  int
	BrokerID  string
	Pin       string
}

// Account is what the server knows about the caller at deploy time.
type Account struct {
	Paid             bool
	BrokerConnected  bool
	HasPin           bool
	VerifyPin        func(pin string) bool
	MaxLiveQuantity  int
	MaxPaperQuantity int
}

// Decision is the accepted deployment.
type Decision struct {
	Mode     Mode
	Quantity int
	Step     Step
}

// Evaluate walks the sequence for req and returns the accepted decision or
// the first blocking error.
func Evaluate(req Request, acct Account) (Decision, error) {
	switch req.Mode {
	case ModePaper:
		if err := checkQuantity(req.Quantity, acct.MaxPaperQuantity); err != nil {
			return Decision{}, err
		}
		return Decision{Mode: ModePaper, Quantity: req.Quantity, Step: StepActive}, nil
	case ModeLive:
	case ModeOff:
		return Decision{}, ErrModeOff
	default:
		return Decision{}, ErrBadMode
	}

	if !acct.Paid {
		return Decision{}, ErrNotPaid
	}
	if !req.Confirmed {
		return Decision{}, &StepRequiredError{Step: StepConfirm, Reason: "live trading places real orders"}
	}
	if err := checkQuantity(req.Quantity, acct.MaxLiveQuantity); err != nil {
		return Decision{}, err
	}
	if req.BrokerID == "" || !acct.BrokerConnected {
		return Decision{}, &StepRequiredError{Step: StepBroker, Reason: "select a connected broker"}
	}
	if acct.HasPin {
		if req.Pin == "" {
			return Decision{}, &StepRequiredError{Step: StepPin, Reason: "enter your trading pin"}
		}
		if acct.VerifyPin == nil || !acct.VerifyPin(req.Pin) {
			return Decision{}, ErrPinWrong
		}
	}
	return Decision{Mode: ModeLive, Quantity: req.Quantity, Step: StepActive}, nil
}

func checkQuantity(q, limit int) error {
	if limit <= 0 {
		limit = 1
	}
	if q < 1 || q > limit {
		return &StepRequiredError{Step: StepQuantity, Reason: fmt.Sprintf("quantity must be between 1 and %d", limit)}
	}
	return nil
}
