package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	minutesPerDay = 24 * 60
)

var (
	// ErrInvalidTimeOfDay is returned for anything that is not a valid HH:MM wall-clock time
	ErrInvalidTimeOfDay = errors.New("time must be in HH:MM format")
	// ErrInvalidDate is returned for anything that is not a valid YYYY-MM-DD date
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
	// ErrEmptyInterval is returned when start is not strictly before end
	ErrEmptyInterval = errors.New("start time must be before end time")
)

// TimeOfDay is a wall-clock time stored as minutes since midnight
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeOfDay
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidTimeOfDay
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals known to be valid
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String formats the time as HH:MM
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Minutes returns minutes since midnight
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Valid reports whether t is within a single day
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

// MarshalJSON implements json.Marshaler
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidTimeOfDay
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (t TimeOfDay) Value() (driver.Value, error) {
	return int64(t), nil
}

// Scan implements the sql.Scanner interface
func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*t = TimeOfDay(v)
	case int32:
		*t = TimeOfDay(v)
	case []byte:
		var n int
		if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
			return fmt.Errorf("scan time of day: %w", err)
		}
		*t = TimeOfDay(n)
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", value)
	}
	return nil
}

// Date is a calendar date without time or zone
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MustDate is ParseDate for literals known to be valid
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDate takes the calendar date of t as seen in t's location and returns it at midnight UTC
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Equal compares calendar dates only
func (d Date) Equal(other Date) bool {
	return d.String() == other.String()
}

// At returns the instant on this date at the given wall-clock time in loc
func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc).Add(time.Duration(t) * time.Minute)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements the sql.Scanner interface
func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", value)
	}
	return nil
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Interval is a half-open [Start, End) range on a single date
type Interval struct {
	Date  Date
	Start TimeOfDay
	End   TimeOfDay
}

// NewInterval builds an interval and enforces Start < End within one day
func NewInterval(date Date, start, end TimeOfDay) (Interval, error) {
	iv := Interval{Date: date, Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate checks an interval built without NewInterval, including the zero value
func (i Interval) Validate() error {
	if i.Date.IsZero() {
		return ErrInvalidDate
	}
	if !i.Start.Valid() || !i.End.Valid() {
		return ErrInvalidTimeOfDay
	}
	if i.Start >= i.End {
		return ErrEmptyInterval
	}
	return nil
}

// Overlaps reports whether two intervals share any instant.
// Intervals that only touch at a boundary do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	if !i.Date.Equal(other.Date) {
		return false
	}
	return i.Start < other.End && other.Start < i.End
}

// Minutes returns the length of the interval in minutes
func (i Interval) Minutes() int {
	return int(i.End - i.Start)
}

// Duration returns the length of the interval
func (i Interval) Duration() time.Duration {
	return time.Duration(i.Minutes()) * time.Minute
}

// Hours returns the length of the interval in fractional hours
func (i Interval) Hours() float64 {
	return float64(i.Minutes()) / 60
}

// Price returns hourlyRate x hours rounded to the currency minor unit
func (i Interval) Price(hourlyRate float64) float64 {
	return RoundMoney(hourlyRate * float64(i.Minutes()) / 60)
}

// RoundMoney rounds an amount to two decimal places
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ToMinorUnits converts a base-unit amount to minor units (x100, nearest integer)
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
