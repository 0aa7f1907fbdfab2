package fx

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecbconv/ecbconv/util"
)

// All rates in the feed are quoted against the euro.
const BaseCurrency = "EUR"

// RateTable maps a currency code to the number of units of that currency one
// euro buys. The base currency is never a key.
type RateTable map[string]float64

// Rate looks up code, resolving the base currency to 1.0.
func (t RateTable) Rate(code string) util.Optional[float64] {
	if code == BaseCurrency {
		return util.NewOptional(1.0)
	}
	rate, ok := t[code]
	if !ok {
		return util.None[float64]()
	}
	return util.NewOptional(rate)
}

// Codes returns the codes held in the table, sorted.
func (t RateTable) Codes() []string {
	return util.SortedStringKeys(t)
}

func (t RateTable) Clone() RateTable {
	c := make(RateTable, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// CacheRecord is a rate table together with the time it became authoritative.
type CacheRecord struct {
	Rates       RateTable
	PublishedAt time.Time
}

func (r CacheRecord) String() string {
	return fmt.Sprintf("%d rates published %s", len(r.Rates),
		r.PublishedAt.UTC().Format(time.RFC3339))
}

// NormalizeCode trims and upper-cases a user supplied currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
