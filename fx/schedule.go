package fx

import (
	"time"

	"github.com/ecbconv/ecbconv/date"
)

// The ECB publishes reference rates around 16:00 CET on working days. The
// cutoff leaves some margin after that. TARGET closing days are not taken
// into account.
const (
	PublicationHourUTC   = 15
	PublicationMinuteUTC = 30
)

// PublicationTimeForDate is the instant rates dated d are considered published.
func PublicationTimeForDate(d date.Date) time.Time {
	return d.At(PublicationHourUTC, PublicationMinuteUTC)
}

func afterPublicationCutoff(t time.Time) bool {
	return t.Hour() > PublicationHourUTC ||
		(t.Hour() == PublicationHourUTC && t.Minute() > PublicationMinuteUTC)
}

// ExpectedPublicationTime returns when the most recent feed update before now
// should have happened. A cached table published at or after this is fresh.
func ExpectedPublicationTime(now time.Time) time.Time {
	now = now.UTC()
	after := afterPublicationCutoff(now)

	var rewind int
	switch now.Weekday() {
	case time.Sunday:
		rewind = 2
	case time.Monday:
		if !after {
			rewind = 3
		}
	case time.Saturday:
		rewind = 1
	default:
		if !after {
			rewind = 1
		}
	}
	return PublicationTimeForDate(date.NewFromTime(now).AddDays(-rewind))
}
