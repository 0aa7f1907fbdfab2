package fx

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount to convert must be a finite, non-negative number")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrAmountOverflow  = errors.New("converted amount is too large to represent")
	// Returned by RatesCache.Load when nothing usable is stored.
	ErrCacheMiss = errors.New("no cached rates")
)

type UnknownCurrencyError struct {
	Code string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("could not find currency %q", e.Code)
}

func (e *UnknownCurrencyError) Is(target error) bool {
	return target == ErrUnknownCurrency
}

// FetchError is any failure to retrieve or decode the rates feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to get exchange rates from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StorageError is a failure to read or write persisted rates.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rate storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("rate storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
