package fx

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ecbconv/ecbconv/date"
	"github.com/ecbconv/ecbconv/log"
)

const maxFeedSize = 4 << 20

// RemoteRateLoader retrieves the current reference rates.
type RemoteRateLoader interface {
	FetchRates(ctx context.Context) (CacheRecord, error)
}

// Shape of the eurofxref feeds:
//
//	<gesmes:Envelope>
//	  <Cube>
//	    <Cube time="2023-03-03">
//	      <Cube currency="USD" rate="1.0615"/>
type feedEnvelope struct {
	XMLName xml.Name  `xml:"Envelope"`
	Days    []feedDay `xml:"Cube>Cube"`
}

type feedDay struct {
	Time  string     `xml:"time,attr"`
	Rates []feedRate `xml:"Cube"`
}

type feedRate struct {
	Currency string `xml:"currency,attr"`
	Rate     string `xml:"rate,attr"`
}

type ECBRemoteLoader struct {
	URL       string
	Client    *http.Client
	UserAgent string
}

func NewECBRemoteLoader(url string, timeout time.Duration) *ECBRemoteLoader {
	return &ECBRemoteLoader{
		URL:       url,
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "ecbconv",
	}
}

// FetchRates performs a single GET of the feed. There is no retry.
func (l *ECBRemoteLoader) FetchRates(ctx context.Context) (CacheRecord, error) {
	log.Component("fx").Infof("Fetching reference rates from %s", l.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return CacheRecord{}, &FetchError{URL: l.URL, Err: err}
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return CacheRecord{}, &FetchError{URL: l.URL, Err: err}
	}
	defer resp.Body.Close()
	log.Tracef("fx", "response: %s", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CacheRecord{}, &FetchError{URL: l.URL, Err: fmt.Errorf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return CacheRecord{}, &FetchError{URL: l.URL, Err: fmt.Errorf("read body: %w", err)}
	}
	record, err := DecodeFeed(body)
	if err != nil {
		return CacheRecord{}, &FetchError{URL: l.URL, Err: err}
	}
	log.Component("fx").Infof("Feed returned %s", record)
	return record, nil
}

// DecodeFeed parses a eurofxref document. When it holds several days, the
// most recent one is used. Rate cubes missing the currency or the rate are
// skipped.
func DecodeFeed(body []byte) (CacheRecord, error) {
	var env feedEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return CacheRecord{}, fmt.Errorf("decode xml: %w", err)
	}
	if len(env.Days) == 0 {
		return CacheRecord{}, errors.New("feed holds no dated rates")
	}

	var latest *feedDay
	var latestDate date.Date
	for i := range env.Days {
		day := &env.Days[i]
		d, err := date.Parse(date.DefaultFormat, day.Time)
		if err != nil {
			return CacheRecord{}, fmt.Errorf("bad publication date %q: %w", day.Time, err)
		}
		if latest == nil || d.After(latestDate) {
			latest, latestDate = day, d
		}
	}

	rates := make(RateTable, len(latest.Rates))
	for _, r := range latest.Rates {
		if r.Currency == "" || r.Rate == "" {
			continue
		}
		rate, err := strconv.ParseFloat(r.Rate, 64)
		if err != nil {
			return CacheRecord{}, fmt.Errorf("bad rate %q for %s: %w", r.Rate, r.Currency, err)
		}
		if rate <= 0 {
			return CacheRecord{}, fmt.Errorf("non-positive rate %v for %s", rate, r.Currency)
		}
		code := NormalizeCode(r.Currency)
		if code == BaseCurrency {
			continue
		}
		log.Tracef("fx", "%s: %v", code, rate)
		rates[code] = rate
	}
	if len(rates) == 0 {
		return CacheRecord{}, fmt.Errorf("feed for %s holds no rates", latestDate)
	}

	return CacheRecord{Rates: rates, PublishedAt: PublicationTimeForDate(latestDate)}, nil
}
