// Package enroll implements the TOTP enrollment state machine.
//
// States form a closed set and every change is driven by an [Event]; only
// the event/state pairs listed in [legal] may fire. Anything else is rejected with [ErrIllegalTransition] and leaves the
// controller untouched.
package enroll

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// ErrIllegalTransition reports a transition the state machine does not allow.
var ErrIllegalTransition = errors.New("illegal enrollment transition")

// State is the enrollment phase.
type State uint8

const (
	Idle State = iota
	Enrolling
	Verifying
	Enabled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enrolling:
		return "enrolling"
	case Verifying:
		return "verifying"
	case Enabled:
		return "enabled"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Event is something that happens to an enrollment session.
type Event uint8

const (
	EventBegin Event = iota + 1
	EventSubmit
	EventAccept
	EventReject
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventBegin:
		return "begin"
	case EventSubmit:
		return "submit"
	case EventAccept:
		return "accept"
	case EventReject:
		return "reject"
	case EventReset:
		return "reset"
	default:
		return fmt.Sprintf("event(%d)", uint8(e))
	}
}

// legal maps each event to the states it may fire from and where it leads.
var legal = map[Event]map[State]State{
	EventBegin:  {Idle: Enrolling, Enrolling: Enrolling},
	EventSubmit: {Enrolling: Verifying},
	EventAccept: {Verifying: Enabled},
	EventReject: {Verifying: Enrolling},
	EventReset:  {Idle: Idle, Enrolling: Idle, Verifying: Idle, Enabled: Idle},
}

// Next returns the state ev leads to from, and whether ev may fire there.
func Next(from State, ev Event) (State, bool) {
	to, ok := legal[ev][from]
	return to, ok
}

// Allowed reports whether ev may fire in state from.
func Allowed(from State, ev Event) bool {
	_, ok := Next(from, ev)
	return ok
}

// Session is the working state of one in-progress enrollment.
type Session struct {
	State      State
	FactorID   string
	QRCode     string
	OTPAuthURL string
	Code       string
}

// Controller owns one enrollment session.
type Controller struct {
	mu      sync.Mutex
	session Session
}

func NewController() *Controller {
	return &Controller{}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) fire(ev Event) error {
	from := c.session.State
	to, ok := Next(from, ev)
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrIllegalTransition, ev, from)
	}
	c.session.State = to
	return nil
}

// Begin records a new pending factor. Legal from Idle and Enrolling.
func (c *Controller) Begin(factorID, qrCode, otpauthURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fire(EventBegin); err != nil {
		return err
	}
	c.session = Session{
		State:      Enrolling,
		FactorID:   factorID,
		QRCode:     qrCode,
		OTPAuthURL: otpauthURL,
	}
	return nil
}

// Submit stores the cleaned code and moves to Verifying. It returns the
// factor id and code to send to the backend.
func (c *Controller) Submit(code string) (factorID, cleaned string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.FactorID == "" {
		return "", "", fmt.Errorf("%w: no pending factor", ErrIllegalTransition)
	}
	if err := c.fire(EventSubmit); err != nil {
		return "", "", err
	}
	c.session.Code = CleanCode(code)
	return c.session.FactorID, c.session.Code, nil
}

// Accept records a verification the backend accepted.
func (c *Controller) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fire(EventAccept); err != nil {
		return err
	}
	c.session.Code = ""
	return nil
}

// Reject returns a rejected verification to Enrolling so the user can enter
// another code without re-scanning. Legal only from Verifying.
func (c *Controller) Reject() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fire(EventReject)
}

// Reset drops the session. Legal from every state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = Session{State: Idle}
}

// CleanCode strips all whitespace from a user-entered code.
func CleanCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
}
