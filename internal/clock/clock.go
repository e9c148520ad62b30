// Package clock owns "now" and the mapping from instants to the user's
// calendar day.  Everything persisted is a UTC instant; the only place a
// local date is derived is Calendar.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual { return &Manual{now: t.UTC()} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Calendar converts instants into dates and hours of a fixed zone.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location { return c.loc }

// DayOf returns the local calendar date containing t.
func (c Calendar) DayOf(t time.Time) Date {
	lt := t.In(c.loc)
	return Date{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// HourOf returns the local wall-clock hour of t.
func (c Calendar) HourOf(t time.Time) int { return t.In(c.loc).Hour() }

// Bounds returns the UTC instants [start, end) covering d in this zone.
func (c Calendar) Bounds(d Date) (time.Time, time.Time) {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, c.loc)
	end := time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, c.loc)
	return start.UTC(), end.UTC()
}
