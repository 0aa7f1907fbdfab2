package fx

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ecbconv/ecbconv/log"
	"github.com/ecbconv/ecbconv/metrics"
)

// Monday 2023-03-06 16:00 UTC; rates are expected to be dated that day.
var mondayAfternoon = utc(2023, time.March, 6, 16, 0)

func NewTestRateManager(now time.Time) (*RateManager, *MemRatesCache, *MockRemoteRateLoader, *bytes.Buffer) {
	cache := NewMemRatesCache()
	remote := &MockRemoteRateLoader{
		Record: CacheRecord{Rates: sampleRates(), PublishedAt: utc(2023, time.March, 6, 15, 30)},
	}
	var errBuf bytes.Buffer
	m := NewRateManager(cache, remote, false, &log.WriterErrorPrinter{W: &errBuf})
	m.Now = fixedNow(now)
	return m, cache, remote, &errBuf
}

func TestGetTableAbsentFetchesOnce(t *testing.T) {
	rq := require.New(t)
	crq := NewCustomRequire(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	rq.True(m.LastUpdated().IsZero())

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
	rq.Equal(sampleRates(), table)
	rq.Equal(1, cache.Saves)
	crq.Equal(remote.Record, *cache.Record)
	rq.Equal(utc(2023, time.March, 6, 15, 30), m.LastUpdated())
}

func TestGetTableFreshDoesNotFetch(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	cached := CacheRecord{Rates: RateTable{"USD": 1.2}, PublishedAt: utc(2023, time.March, 6, 15, 30)}
	cache.Record = &cached

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(0, remote.Calls)
	rq.Equal(0, cache.Saves)
	rq.Equal(RateTable{"USD": 1.2}, table)
	rq.Equal(cached.PublishedAt, m.LastUpdated())

	// Monday morning, Friday's rates are still the latest.
	m, cache, remote, _ = NewTestRateManager(utc(2023, time.March, 6, 10, 0))
	friday := CacheRecord{Rates: RateTable{"USD": 1.3}, PublishedAt: utc(2023, time.March, 3, 15, 30)}
	cache.Record = &friday
	table, err = m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(0, remote.Calls)
	rq.Equal(RateTable{"USD": 1.3}, table)
}

func TestGetTableStaleFetchesOnce(t *testing.T) {
	rq := require.New(t)
	crq := NewCustomRequire(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	friday := CacheRecord{Rates: RateTable{"USD": 1.3}, PublishedAt: utc(2023, time.March, 3, 15, 30)}
	cache.Record = &friday

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
	rq.Equal(sampleRates(), table)
	rq.Equal(1, cache.Saves)
	crq.Equal(remote.Record, *cache.Record)

	// Now fresh, so a second request does not fetch again.
	_, err = m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
}

func TestGetTableFetchErrorIsNotMasked(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	friday := CacheRecord{Rates: RateTable{"USD": 1.3}, PublishedAt: utc(2023, time.March, 3, 15, 30)}
	cache.Record = &friday
	remote.Err = &FetchError{URL: "http://feed", Err: errors.New("connection refused")}

	table, err := m.GetTable(context.Background())
	rq.Nil(table)
	var fetchErr *FetchError
	rq.True(errors.As(err, &fetchErr))
	rq.Equal(1, remote.Calls)
	rq.Equal(0, cache.Saves)
	rq.True(m.LastUpdated().IsZero())

	_, err = m.Convert(context.Background(), 10, "USD", "EUR")
	rq.True(errors.As(err, &fetchErr))
	rq.Equal(2, remote.Calls)
}

func TestGetTableStorageErrorTreatedAsAbsent(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	cache.LoadErr = &StorageError{Op: "read", Path: "/x", Err: errors.New("permission denied")}

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
	rq.Equal(sampleRates(), table)
}

func TestGetTableSaveErrorStillConverts(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, errBuf := NewTestRateManager(mondayAfternoon)
	cache.SaveErr = &StorageError{Op: "write", Path: "/x", Err: errors.New("read-only file system")}

	got, err := m.Convert(context.Background(), 100, "USD", "GBP")
	rq.Nil(err)
	rq.InDelta(77.2727272727, got, 1e-9)
	rq.Equal(1, remote.Calls)
	rq.Contains(errBuf.String(), "Failed to update exchange rate cache")
}

func TestGetTableForceDownload(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	fresh := CacheRecord{Rates: RateTable{"USD": 1.2}, PublishedAt: utc(2023, time.March, 6, 15, 30)}
	cache.Record = &fresh
	m.ForceDownload = true

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
	rq.Equal(sampleRates(), table)
	rq.Equal(1, cache.Saves)
}

func TestGetTableKeepsNewerRecord(t *testing.T) {
	rq := require.New(t)

	// Tuesday afternoon: Monday's cached rates are stale, but the feed still
	// serves Friday's (e.g. a publication delay).
	m, cache, remote, _ := NewTestRateManager(utc(2023, time.March, 7, 16, 0))
	monday := CacheRecord{Rates: RateTable{"USD": 1.2}, PublishedAt: utc(2023, time.March, 6, 15, 30)}
	cache.Record = &monday
	remote.Record.PublishedAt = utc(2023, time.March, 3, 15, 30)

	table, err := m.GetTable(context.Background())
	rq.Nil(err)
	rq.Equal(1, remote.Calls)
	rq.Equal(RateTable{"USD": 1.2}, table)
	rq.Equal(0, cache.Saves)
	rq.Equal(monday.PublishedAt, m.LastUpdated())
}

func TestRateManagerConvert(t *testing.T) {
	rq := require.New(t)

	m, _, remote, _ := NewTestRateManager(mondayAfternoon)
	got, err := m.Convert(context.Background(), 100, "USD", "GBP")
	rq.Nil(err)
	rq.InDelta(77.2727272727, got, 1e-9)

	_, err = m.Convert(context.Background(), 10, "USD", "ZZZ")
	rq.ErrorIs(err, ErrUnknownCurrency)
	rq.Equal(1, remote.Calls)

	// Rejected before any lookup.
	m, _, remote, _ = NewTestRateManager(mondayAfternoon)
	_, err = m.Convert(context.Background(), -5, "USD", "EUR")
	rq.ErrorIs(err, ErrInvalidAmount)
	_, err = m.Convert(context.Background(), math.Inf(1), "USD", "EUR")
	rq.ErrorIs(err, ErrInvalidAmount)
	rq.Equal(0, remote.Calls)
}

func TestRateManagerMetrics(t *testing.T) {
	rq := require.New(t)

	m, cache, remote, _ := NewTestRateManager(mondayAfternoon)
	m.Metrics = metrics.NewMetrics()

	_, err := m.Convert(context.Background(), 1, "USD", "GBP")
	rq.Nil(err)
	_, err = m.Convert(context.Background(), 1, "USD", "ZZZ")
	rq.NotNil(err)
	cache.Record = nil
	remote.Err = errors.New("down")
	_, err = m.Convert(context.Background(), 1, "USD", "GBP")
	rq.NotNil(err)

	mt := m.Metrics
	rq.Equal(2.0, testutil.ToFloat64(mt.CacheLookupsTotal.WithLabelValues("miss")))
	rq.Equal(1.0, testutil.ToFloat64(mt.CacheLookupsTotal.WithLabelValues("fresh")))
	rq.Equal(1.0, testutil.ToFloat64(mt.FeedFetchesTotal.WithLabelValues(metrics.ResultSuccess)))
	rq.Equal(1.0, testutil.ToFloat64(mt.FeedFetchesTotal.WithLabelValues(metrics.ResultError)))
	rq.Equal(1.0, testutil.ToFloat64(mt.ConversionsTotal.WithLabelValues(metrics.ResultSuccess)))
	rq.Equal(2.0, testutil.ToFloat64(mt.ConversionsTotal.WithLabelValues(metrics.ResultError)))
	rq.Equal(float64(utc(2023, time.March, 6, 15, 30).Unix()), testutil.ToFloat64(mt.RatesPublishedAt))
	rq.Equal(2.0, testutil.ToFloat64(mt.RatesHeld))
}

// Two runs of the tool against the same data directory and a real HTTP feed.
func TestRateManagerAcrossRuns(t *testing.T) {
	rq := require.New(t)

	srv, hits := newFeedServer(t, http.StatusOK,
		feedXML(dayCube("2023-03-06", "USD", "1.1", "GBP", "0.85")))
	dir := t.TempDir()

	run := func(now time.Time) float64 {
		m := NewRateManager(NewFileRatesCache(dir), NewECBRemoteLoader(srv.URL, time.Second),
			false, &log.StderrErrorPrinter{})
		m.Now = fixedNow(now)
		got, err := m.Convert(context.Background(), 100, "USD", "GBP")
		rq.Nil(err)
		rq.Equal(utc(2023, time.March, 6, 15, 30), m.LastUpdated())
		return got
	}

	rq.InDelta(77.2727272727, run(mondayAfternoon), 1e-9)
	rq.Equal(1, *hits)
	rq.InDelta(77.2727272727, run(mondayAfternoon.Add(time.Hour)), 1e-9)
	rq.Equal(1, *hits)
	// Tuesday evening the cached Monday rates are stale; the feed is asked again.
	run(utc(2023, time.March, 7, 18, 0))
	rq.Equal(2, *hits)
}
