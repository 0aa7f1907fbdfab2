package fx

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecbconv/ecbconv/log"
	"github.com/ecbconv/ecbconv/metrics"
)

// RateManager owns the rate table for the process. It reuses the cached table
// while it is fresh, and otherwise fetches the feed once and persists it.
// Not safe for concurrent use.
type RateManager struct {
	Cache         RatesCache
	Remote        RemoteRateLoader
	ForceDownload bool
	Now           func() time.Time
	ErrPrinter    log.ErrorPrinter
	// Optional.
	Metrics *metrics.Metrics

	log     *logrus.Entry
	current CacheRecord
}

func NewRateManager(
	cache RatesCache, remote RemoteRateLoader, forceDownload bool,
	errPrinter log.ErrorPrinter) *RateManager {

	return &RateManager{
		Cache:         cache,
		Remote:        remote,
		ForceDownload: forceDownload,
		Now:           time.Now,
		ErrPrinter:    errPrinter,
		log:           log.Component("fx"),
	}
}

func (m *RateManager) logger() *logrus.Entry {
	if m.log == nil {
		m.log = log.Component("fx")
	}
	return m.log
}

func (m *RateManager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *RateManager) countLookup(outcome string) {
	if m.Metrics != nil {
		m.Metrics.CacheLookupsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *RateManager) countFetch(result string) {
	if m.Metrics != nil {
		m.Metrics.FeedFetchesTotal.WithLabelValues(result).Inc()
	}
}

func (m *RateManager) adopt(record CacheRecord) {
	m.current = record
	if m.Metrics != nil {
		m.Metrics.RatesPublishedAt.Set(float64(record.PublishedAt.Unix()))
		m.Metrics.RatesHeld.Set(float64(len(record.Rates)))
	}
}

// GetTable returns a table that is at least as recent as the expected
// publication time, fetching it if the cache can't provide one. Fetch errors
// are returned as is; a stale table is never used in their place.
func (m *RateManager) GetTable(ctx context.Context) (RateTable, error) {
	lg := m.logger()
	var stale *CacheRecord

	if m.ForceDownload {
		lg.Debug("Forced download, ignoring cached rates")
	} else {
		record, err := m.Cache.Load()
		expected := ExpectedPublicationTime(m.now())
		switch {
		case err != nil:
			m.countLookup("miss")
			if errors.Is(err, ErrCacheMiss) {
				lg.Debugf("No usable cached rates: %v", err)
			} else {
				lg.Warnf("Could not load cached rates: %v", err)
			}
		case !record.PublishedAt.Before(expected):
			m.countLookup("fresh")
			lg.Debugf("Cached rates are fresh (%s, expected %s)",
				record, expected.Format(time.RFC3339))
			m.adopt(record)
			return record.Rates, nil
		default:
			m.countLookup("stale")
			lg.Infof("Cached rates are stale (%s, expected %s)",
				record, expected.Format(time.RFC3339))
			stale = &record
		}
	}

	fetched, err := m.Remote.FetchRates(ctx)
	if err != nil {
		m.countFetch(metrics.ResultError)
		return nil, err
	}
	m.countFetch(metrics.ResultSuccess)

	newest := m.current
	if stale != nil && stale.PublishedAt.After(newest.PublishedAt) {
		newest = *stale
	}
	if fetched.PublishedAt.Before(newest.PublishedAt) {
		lg.Warnf("Feed returned older rates (%s) than already held (%s), keeping held rates",
			fetched, newest)
		m.adopt(newest)
		return newest.Rates, nil
	}

	m.adopt(fetched)
	if err := m.Cache.Save(fetched); err != nil {
		lg.Errorf("Save rates: %v", err)
		if m.ErrPrinter != nil {
			m.ErrPrinter.Ln("Failed to update exchange rate cache:", err)
		}
	}
	return fetched.Rates, nil
}

// Convert converts amount using the current table, refreshing it first if
// needed.
func (m *RateManager) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	result, err := m.convert(ctx, amount, from, to)
	if m.Metrics != nil {
		outcome := metrics.ResultSuccess
		if err != nil {
			outcome = metrics.ResultError
		}
		m.Metrics.ConversionsTotal.WithLabelValues(outcome).Inc()
	}
	return result, err
}

func (m *RateManager) convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}
	table, err := m.GetTable(ctx)
	if err != nil {
		return 0, err
	}
	return Convert(table, amount, from, to)
}

// LastUpdated is the publication time of the table in use, or the zero time
// before any table was loaded.
func (m *RateManager) LastUpdated() time.Time {
	return m.current.PublishedAt
}
