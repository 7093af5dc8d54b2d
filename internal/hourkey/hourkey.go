// Package hourkey aligns hourly timestamps from different sources and sample
// years onto one calendar-year independent key.
package hourkey

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HoursPerYear is the number of keys in a non-leap year.
const HoursPerYear = 8760

// Layout is the canonical text form of a key.
const Layout = "01-02 15:04"

// referenceYear is a non-leap year used for ordinal and calendar arithmetic.
const referenceYear = 2021

// Key identifies one hour of a non-leap year.
type Key struct {
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// FromTime strips the calendar year from t. Leap-day timestamps return ErrLeapDay.
func FromTime(t time.Time) (Key, error) {
	if t.IsZero() {
		return Key{}, ErrInvalidTimestamp
	}
	if t.Month() == time.February && t.Day() == 29 {
		return Key{}, ErrLeapDay
	}
	return Key{Month: t.Month(), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}, nil
}

// FromHourEnding converts an hour-ending convention (1..24) on date into a key
// for the hour beginning at date + (hourEnding-1)h.
func FromHourEnding(date time.Time, hourEnding int) (Key, error) {
	if hourEnding < 1 || hourEnding > 24 {
		return Key{}, fmt.Errorf("%w: %d", ErrAmbiguousHourEnding, hourEnding)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return FromTime(day.Add(time.Duration(hourEnding-1) * time.Hour))
}

// ParseHourEnding parses a textual hour-ending value such as "07". Values like
// "02X" (the repeated hour on a daylight-saving fall-back day) are ambiguous.
func ParseHourEnding(value string) (int, error) {
	value = strings.TrimSpace(value)
	he, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmbiguousHourEnding, value)
	}
	if he < 1 || he > 24 {
		return 0, fmt.Errorf("%w: %d", ErrAmbiguousHourEnding, he)
	}
	return he, nil
}

// Parse parses value with layout and converts it to a key.
func Parse(layout, value string) (Key, error) {
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
	}
	return FromTime(t)
}

// ParseKey parses the canonical "MM-DD HH:MM" form.
func ParseKey(value string) (Key, error) {
	return Parse(Layout, value)
}

// Floor truncates t to the top of its hour in t's location.
func Floor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// String returns the canonical text form.
func (k Key) String() string {
	return fmt.Sprintf("%02d-%02d %02d:%02d", int(k.Month), k.Day, k.Hour, k.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k == Key{} }

// In places the key in the given year. Callers passing a leap year get the
// same wall-clock hour; February 29 is never produced.
func (k Key) In(year int) time.Time {
	return time.Date(year, k.Month, k.Day, k.Hour, k.Minute, 0, 0, time.UTC)
}

// Ordinal returns the zero-based hour of the (non-leap) year.
func (k Key) Ordinal() int {
	return (k.In(referenceYear).YearDay()-1)*24 + k.Hour
}

// Less orders keys chronologically within the year.
func (k Key) Less(other Key) bool {
	if k.Ordinal() != other.Ordinal() {
		return k.Ordinal() < other.Ordinal()
	}
	return k.Minute < other.Minute
}

// Week returns the Sunday-based week of year (00..53) in the reference year,
// the same numbering as strftime's %U.
func (k Key) Week() int {
	t := k.In(referenceYear)
	return (t.YearDay() + 6 - int(t.Weekday())) / 7
}

// All returns every hourly key of a non-leap year in order.
func All() []Key {
	keys := make([]Key, 0, HoursPerYear)
	start := time.Date(referenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < HoursPerYear; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		keys = append(keys, Key{Month: t.Month(), Day: t.Day(), Hour: t.Hour()})
	}
	return keys
}
