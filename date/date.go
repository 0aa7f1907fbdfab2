package date

import (
	"fmt"
	"time"

	"github.com/ecbconv/ecbconv/util"
)

// Format of dates in the rates feed.
const DefaultFormat = "2006-01-02"

// Represents a pure date, with no effects from time zones, or time.
// Represented in UTC time at 00:00:00
type Date struct {
	time time.Time
}

func New(year uint32, month time.Month, day uint32) Date {
	return Date{time.Date(int(year), month, int(day), 0, 0, 0, 0, time.UTC)}
}

// NewFromTime takes the calendar date of t as observed in UTC.
func NewFromTime(t time.Time) Date {
	t = t.UTC()
	return New(uint32(t.Year()), t.Month(), uint32(t.Day()))
}

func (d Date) isPureUtcDate() bool {
	other := New(uint32(d.time.Year()), d.time.Month(), uint32(d.time.Day()))
	return d == other
}

func Parse(dFmt string, dateStr string) (Date, error) {
	tm, err := time.Parse(dFmt, dateStr)
	if err != nil {
		return Date{}, err
	}
	d := Date{tm}
	if !d.isPureUtcDate() {
		return Date{}, fmt.Errorf("Format %v and string %v did not produce a pure date", dFmt, dateStr)
	}
	return d, nil
}

// After reports whether the date instant d is after u.
func (d Date) After(u Date) bool {
	return d.time.After(u.time)
}

// Before reports whether the date instant d is before u.
func (d Date) Before(u Date) bool {
	return d.time.Before(u.time)
}

func (d Date) String() string {
	year, month, day := d.time.Date()
	return fmt.Sprintf("%d-%02d-%02d", year, month, day)
}

func (d Date) AddDays(nDays int) Date {
	newDate := Date{d.time.AddDate(0, 0, nDays)}
	util.Assertf(newDate.isPureUtcDate(), "%s plus %d days resulted in a time-of-day change", d, nDays)
	return newDate
}

func (d Date) Weekday() time.Weekday {
	return d.time.Weekday()
}

// At returns the instant on this date at hour:min:00 UTC.
func (d Date) At(hour, min int) time.Time {
	year, month, day := d.time.Date()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}
