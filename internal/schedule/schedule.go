// Package schedule owns the daily draw schedule and the time rules that
// decide when a slot can still be sold and when a ticket can be voided.
package schedule

import (
	"strings"
	"time"

	"github.com/abrezinsky/zoolo/internal/errors"
)

// DateLayout is the layout of business dates
const DateLayout = "2006-01-02"

const (
	DefaultBlackout  = 5 * time.Minute
	DefaultVoidGrace = 5 * time.Minute
	DefaultLocation  = "America/Lima"
)

// Slot is one draw of the day
type Slot struct {
	Label    string `json:"label"`
	AltLabel string `json:"alt_label"` // the same draw in the sister market's clock
	Minutes  int    `json:"minutes"`
}

// DefaultSlots is the hourly schedule from 08:00 AM to 06:00 PM.
// The alternate label runs one hour ahead.
var DefaultSlots = mustSlots(
	[2]string{"08:00 AM", "09:00 AM"},
	[2]string{"09:00 AM", "10:00 AM"},
	[2]string{"10:00 AM", "11:00 AM"},
	[2]string{"11:00 AM", "12:00 PM"},
	[2]string{"12:00 PM", "01:00 PM"},
	[2]string{"01:00 PM", "02:00 PM"},
	[2]string{"02:00 PM", "03:00 PM"},
	[2]string{"03:00 PM", "04:00 PM"},
	[2]string{"04:00 PM", "05:00 PM"},
	[2]string{"05:00 PM", "06:00 PM"},
	[2]string{"06:00 PM", "07:00 PM"},
)

func mustSlots(pairs ...[2]string) []Slot {
	slots := make([]Slot, 0, len(pairs))
	for _, p := range pairs {
		m, err := SlotMinutes(p[0])
		if err != nil {
			panic(err)
		}
		slots = append(slots, Slot{Label: p[0], AltLabel: p[1], Minutes: m})
	}
	return slots
}

// SlotMinutes parses a 12-hour label such as "09:00 AM" into minutes
// since midnight. "12:xx PM" is noon and "12:xx AM" is midnight.
func SlotMinutes(label string) (int, error) {
	t, err := time.Parse("3:04 PM", strings.TrimSpace(label))
	if err != nil {
		return 0, errors.Validationf("invalid slot label %q", label)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Clock supplies the current instant
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a clock frozen at t. Used by tests.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Policy applies the sale and void windows to a schedule.
// All wall-clock reasoning happens in Location.
type Policy struct {
	Slots     []Slot
	Blackout  time.Duration
	VoidGrace time.Duration
	Location  *time.Location
	Clock     Clock

	index map[string]int
}

// Option configures a Policy
type Option func(*Policy)

// WithBlackout sets how long before a draw sales close
func WithBlackout(d time.Duration) Option {
	return func(p *Policy) { p.Blackout = d }
}

// WithVoidGrace sets how long after the sale a ticket can be voided
func WithVoidGrace(d time.Duration) Option {
	return func(p *Policy) { p.VoidGrace = d }
}

// WithClock overrides the clock
func WithClock(c Clock) Option {
	return func(p *Policy) { p.Clock = c }
}

// WithSlots overrides the schedule
func WithSlots(slots []Slot) Option {
	return func(p *Policy) { p.Slots = slots }
}

// NewPolicy creates a Policy for the given location. A nil location means UTC.
func NewPolicy(loc *time.Location, opts ...Option) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	p := &Policy{
		Slots:     DefaultSlots,
		Blackout:  DefaultBlackout,
		VoidGrace: DefaultVoidGrace,
		Location:  loc,
		Clock:     SystemClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.index = make(map[string]int, len(p.Slots))
	for i, s := range p.Slots {
		p.index[s.Label] = i
	}
	return p
}

// LoadLocation resolves a zone name, falling back to a fixed UTC-5 zone
// when the tz database is not available on the host.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("UTC-5", -5*60*60)
	}
	return loc
}

// Now returns the current instant in the policy's location
func (p *Policy) Now() time.Time {
	return p.Clock.Now().In(p.Location)
}

// Date returns the business date of t
func (p *Policy) Date(t time.Time) string {
	return t.In(p.Location).Format(DateLayout)
}

// Today returns the current business date
func (p *Policy) Today() string {
	return p.Date(p.Now())
}

// ParseDate validates a business date. An empty string means today.
func (p *Policy) ParseDate(date string) (string, error) {
	if date == "" {
		return p.Today(), nil
	}
	if _, err := time.ParseInLocation(DateLayout, date, p.Location); err != nil {
		return "", errors.Validationf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

// Known reports whether label is part of the schedule
func (p *Policy) Known(label string) bool {
	_, ok := p.index[label]
	return ok
}

// Lookup returns the slot for label
func (p *Policy) Lookup(label string) (Slot, bool) {
	i, ok := p.index[label]
	if !ok {
		return Slot{}, false
	}
	return p.Slots[i], true
}

// Order returns the position of label in the schedule, or -1 when unknown
func (p *Policy) Order(label string) int {
	i, ok := p.index[label]
	if !ok {
		return -1
	}
	return i
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsSellable reports whether slot can still take bets at now. A slot is
// sellable while more than Blackout minutes remain before it. Labels that
// do not parse are never sellable.
func (p *Policy) IsSellable(slot string, now time.Time) bool {
	m, err := SlotMinutes(slot)
	if err != nil {
		return false
	}
	diff := m - minuteOfDay(now.In(p.Location))
	return diff > int(p.Blackout/time.Minute)
}

// CanVoid checks the void window for a ticket sold at createdAt that
// references slots. It returns a WindowClosed error when the grace period
// has elapsed or any referenced slot is no longer sellable.
func (p *Policy) CanVoid(createdAt time.Time, slots []string, now time.Time) error {
	if now.Sub(createdAt) > p.VoidGrace {
		return errors.WindowClosedf("tickets can only be voided within %d minutes of sale", int(p.VoidGrace/time.Minute))
	}
	for _, s := range slots {
		if !p.IsSellable(s, now) {
			return errors.WindowClosedf("draw %s is already closed", s)
		}
	}
	return nil
}

// ClosedSlots returns the labels that can no longer be sold at now
func (p *Policy) ClosedSlots(now time.Time) []string {
	closed := []string{}
	for _, s := range p.Slots {
		if !p.IsSellable(s.Label, now) {
			closed = append(closed, s.Label)
		}
	}
	return closed
}

// TargetSlot picks the draw an operator is most exposed to at now: the
// draw whose hour is in progress, else the next sellable draw, else the
// last draw of the day.
func (p *Policy) TargetSlot(now time.Time) string {
	if len(p.Slots) == 0 {
		return ""
	}
	cur := minuteOfDay(now.In(p.Location))
	for _, s := range p.Slots {
		if cur >= s.Minutes && cur < s.Minutes+60 {
			return s.Label
		}
	}
	for _, s := range p.Slots {
		if p.IsSellable(s.Label, now) {
			return s.Label
		}
	}
	return p.Slots[len(p.Slots)-1].Label
}
