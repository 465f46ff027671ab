package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	Bathroom Room = "bathroom"
	Kitchen  Room = "kitchen"
	Lounge   Room = "lounge"
)

// Rooms lists the fixed room set in display order.
var Rooms = []Room{Bathroom, Kitchen, Lounge}

type (
	Room string

	// Pledge is one person's monetary commitment to one room.
	Pledge struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Amount    Money     `json:"amount"`
		Room      Room      `json:"room"`
		Email     string    `json:"email"`
		Timestamp time.Time `json:"timestamp"`
	}

	// PledgeSet is the full collection of pledges plus bookkeeping
	// timestamps. It is the single aggregate root; all mutation goes
	// through the pledge store.
	PledgeSet struct {
		Pledges     []Pledge  `json:"pledges"`
		StartDate   time.Time `json:"startDate"`
		LastUpdated time.Time `json:"lastUpdated"`
		// Fallback marks a set synthesized after a read-side storage
		// fault; it was never loaded from storage.
		Fallback bool `json:"fallback,omitempty"`
	}

	// Submission is a pledge request after parsing but before it is
	// applied to a PledgeSet.
	Submission struct {
		Name   string
		Amount Money
		Room   Room
		Email  string
	}
)

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRoom   = errors.New("invalid room")
	ErrInvalidEmail  = errors.New("invalid email")
)

// CapExceededError reports a submission that would push the fund past
// its target ceiling. Remaining carries how much room is left so the
// caller can surface it.
type CapExceededError struct {
	Remaining Money
}

func (e *CapExceededError) Error() string {
	return "amount exceeds remaining available: " + e.Remaining.String()
}

// emailRe accepts the simple local@domain.tld shape; it is a sanity
// check, not RFC 5322.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeName trims whitespace, uppercases the first letter and
// lowercases the rest. Person identity compares the lowercased form.
func NormalizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

// NameKey returns the identity key for a contributor name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r Room) Valid() bool {
	switch r {
	case Bathroom, Kitchen, Lounge:
		return true
	default:
		return false
	}
}

// ParseRoom maps a raw string onto the fixed room set.
func ParseRoom(s string) (Room, error) {
	r := Room(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRoom
	}
	return r, nil
}

// Validate checks the submission fields in a fixed order; the first
// failure wins: missing field, invalid amount, invalid room, invalid
// email.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Name) == "" || s.Room == "" || strings.TrimSpace(s.Email) == "" || s.Amount.Cents == 0 {
		return ErrMissingField
	}
	if s.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !s.Room.Valid() {
		return ErrInvalidRoom
	}
	if !emailRe.MatchString(strings.TrimSpace(s.Email)) {
		return ErrInvalidEmail
	}
	return nil
}

// Total returns the sum of all pledge amounts in the set.
func (ps *PledgeSet) Total() Money {
	var cents int64
	for _, p := range ps.Pledges {
		cents += p.Amount.Cents
	}
	return Money{Cents: cents}
}

// Remaining returns the headroom left under target, floored at zero.
func (ps *PledgeSet) Remaining(target Money) Money {
	rem := target.Cents - ps.Total().Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

// Find returns the index of the pledge matching the contributor name
// (case-insensitive) and room, or -1.
func (ps *PledgeSet) Find(name string, room Room) int {
	key := NameKey(name)
	for i, p := range ps.Pledges {
		if NameKey(p.Name) == key && p.Room == room {
			return i
		}
	}
	return -1
}

// Deadline returns when the pledge window closes.
func (ps *PledgeSet) Deadline(window time.Duration) time.Time {
	return ps.StartDate.Add(window)
}
