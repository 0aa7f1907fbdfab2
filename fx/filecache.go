package fx

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	RatesFileName       = "currency_converter.gt"
	LastUpdatedFileName = "currency_converter.last_updated"
)

// FileRatesCache stores the table as CODE:VALUE lines and the publication
// time as epoch seconds, in two files under Dir. Dir must exist.
type FileRatesCache struct {
	Dir string
}

func NewFileRatesCache(dir string) *FileRatesCache {
	return &FileRatesCache{Dir: dir}
}

func (c *FileRatesCache) RatesPath() string {
	return filepath.Join(c.Dir, RatesFileName)
}

func (c *FileRatesCache) LastUpdatedPath() string {
	return filepath.Join(c.Dir, LastUpdatedFileName)
}

func (c *FileRatesCache) Load() (CacheRecord, error) {
	ratesPath := c.RatesPath()
	file, err := os.Open(ratesPath)
	if err != nil {
		return CacheRecord{}, openErr(ratesPath, err)
	}
	defer file.Close()

	rates, err := parseRates(file)
	if err != nil {
		return CacheRecord{}, fmt.Errorf("%s: %w", ratesPath, err)
	}

	tsPath := c.LastUpdatedPath()
	content, err := os.ReadFile(tsPath)
	if err != nil {
		return CacheRecord{}, openErr(tsPath, err)
	}
	publishedAt, err := parseTimestamp(content)
	if err != nil {
		return CacheRecord{}, fmt.Errorf("%s: %w", tsPath, err)
	}

	return CacheRecord{Rates: rates, PublishedAt: publishedAt}, nil
}

func openErr(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrCacheMiss)
	}
	return &StorageError{Op: "read", Path: path, Err: err}
}

func parseRates(r io.Reader) (RateTable, error) {
	rates := make(RateTable)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		code, value, found := strings.Cut(line, ":")
		if !found || !isCurrencyCode(code) || code == BaseCurrency {
			return nil, fmt.Errorf("line %d %q: %w", lineNo, line, ErrCacheMiss)
		}
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("line %d %q: %w", lineNo, line, ErrCacheMiss)
		}
		rates[code] = rate
	}
	if err := scanner.Err(); err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("empty rates file: %w", ErrCacheMiss)
	}
	return rates, nil
}

func parseTimestamp(content []byte) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(string(content)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", content, ErrCacheMiss)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func formatRates(rates RateTable) []byte {
	var buf bytes.Buffer
	for _, code := range rates.Codes() {
		fmt.Fprintf(&buf, "%s:%s\n", code, strconv.FormatFloat(rates[code], 'f', -1, 64))
	}
	return buf.Bytes()
}

// Save replaces both files. Each is written to a temporary file first and
// renamed into place; a crash between the two renames leaves a new table
// with the old timestamp, which only causes an extra fetch.
func (c *FileRatesCache) Save(record CacheRecord) error {
	if err := replaceFile(c.RatesPath(), formatRates(record.Rates)); err != nil {
		return err
	}
	ts := strconv.FormatInt(record.PublishedAt.Unix(), 10) + "\n"
	return replaceFile(c.LastUpdatedPath(), []byte(ts))
}

func replaceFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &StorageError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return &StorageError{Op: "replace", Path: path, Err: err}
	}
	return nil
}
