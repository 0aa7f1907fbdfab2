package fx

// RatesCache persists the last fetched rate table between runs.
type RatesCache interface {
	// Load returns an error wrapping ErrCacheMiss if nothing usable is stored.
	Load() (CacheRecord, error)
	Save(record CacheRecord) error
}

// MemRatesCache keeps the record in memory only. Used with --no-cache and in
// tests.
type MemRatesCache struct {
	Record *CacheRecord
	Saves  int
	// If set, returned from Load and Save instead of touching Record.
	LoadErr error
	SaveErr error
}

func NewMemRatesCache() *MemRatesCache {
	return &MemRatesCache{}
}

func (c *MemRatesCache) Load() (CacheRecord, error) {
	if c.LoadErr != nil {
		return CacheRecord{}, c.LoadErr
	}
	if c.Record == nil {
		return CacheRecord{}, ErrCacheMiss
	}
	return CacheRecord{Rates: c.Record.Rates.Clone(), PublishedAt: c.Record.PublishedAt}, nil
}

func (c *MemRatesCache) Save(record CacheRecord) error {
	if c.SaveErr != nil {
		return c.SaveErr
	}
	c.Record = &CacheRecord{Rates: record.Rates.Clone(), PublishedAt: record.PublishedAt}
	c.Saves++
	return nil
}
