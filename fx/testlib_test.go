package fx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// Use this instead of require.New when comparing records, so that times are
// compared with Equal rather than by representation.
type CustomRequire struct {
	t       *testing.T
	options cmp.Options
}

func NewCustomRequire(t *testing.T) *CustomRequire {
	return &CustomRequire{t, []cmp.Option{
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}}
}

func (rq *CustomRequire) Equal(expected, actual interface{}) {
	diff := cmp.Diff(expected, actual, rq.options)
	require.True(rq.t, diff == "", diff)
}

type MockRemoteRateLoader struct {
	Record CacheRecord
	Err    error
	Calls  int
}

func (l *MockRemoteRateLoader) FetchRates(ctx context.Context) (CacheRecord, error) {
	l.Calls++
	if l.Err != nil {
		return CacheRecord{}, l.Err
	}
	return CacheRecord{Rates: l.Record.Rates.Clone(), PublishedAt: l.Record.PublishedAt}, nil
}

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sampleRates() RateTable {
	return RateTable{"USD": 1.1, "GBP": 0.85}
}

func feedXML(days ...string) string {
	body := ""
	for _, d := range days {
		body += d
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<gesmes:Envelope xmlns:gesmes="http://www.gesmes.org/xml/2002-08-01" xmlns="http://www.ecb.int/vocabulary/2002-08-01/eurofxref">
	<gesmes:subject>Reference rates</gesmes:subject>
	<gesmes:Sender>
		<gesmes:name>European Central Bank</gesmes:name>
	</gesmes:Sender>
	<Cube>%s
	</Cube>
</gesmes:Envelope>`, body)
}

func dayCube(time string, rates ...string) string {
	s := fmt.Sprintf("\n\t\t<Cube time='%s'>", time)
	for i := 0; i+1 < len(rates); i += 2 {
		s += fmt.Sprintf("\n\t\t\t<Cube currency='%s' rate='%s'/>", rates[i], rates[i+1])
	}
	return s + "\n\t\t</Cube>"
}
