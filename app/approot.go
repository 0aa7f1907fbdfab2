package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecbconv/ecbconv/app/outfmt"
	"github.com/ecbconv/ecbconv/config"
	"github.com/ecbconv/ecbconv/fx"
)

const AppVersion = "1.0.0"

const lastUpdatedFormat = "2006-01-02 15:04 MST"

// Converter is the part of fx.RateManager the convert command needs.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
	LastUpdated() time.Time
}

// TableSource is the part of fx.RateManager the rates command needs.
type TableSource interface {
	GetTable(ctx context.Context) (fx.RateTable, error)
	LastUpdated() time.Time
}

type ConvertRequest struct {
	Amount float64
	From   string
	To     string
	// Decimal places shown for both amounts.
	Places          int32
	ShowLastUpdated bool
}

// RunConvert prints a line like "100.0000 USD = 77.2727 GBP".
func RunConvert(ctx context.Context, req ConvertRequest, conv Converter, w io.Writer) error {
	if math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		return fx.ErrInvalidAmount
	}
	converted, err := conv.Convert(ctx, req.Amount, req.From, req.To)
	if err != nil {
		return err
	}
	if math.IsInf(converted, 0) || math.IsNaN(converted) {
		return fx.ErrAmountOverflow
	}
	fmt.Fprintf(w, "%s %s = %s %s\n",
		decimal.NewFromFloat(req.Amount).StringFixed(req.Places), fx.NormalizeCode(req.From),
		decimal.NewFromFloat(converted).StringFixed(req.Places), fx.NormalizeCode(req.To))
	if req.ShowLastUpdated {
		fmt.Fprintf(w, "Rates published %s\n", conv.LastUpdated().UTC().Format(lastUpdatedFormat))
	}
	return nil
}

// RatesRenderTable lays out a table of every known currency against the base.
func RatesRenderTable(table fx.RateTable, publishedAt time.Time, places int32) *outfmt.RenderTable {
	rt := &outfmt.RenderTable{
		Header: []string{"Currency", "Per " + fx.BaseCurrency, fx.BaseCurrency + " per unit"},
	}
	one := decimal.NewFromInt(1)
	codes := append([]string{fx.BaseCurrency}, table.Codes()...)
	for _, code := range codes {
		rate := decimal.NewFromFloat(table.Rate(code).MustGet())
		rt.Rows = append(rt.Rows, []string{
			code,
			rate.String(),
			one.DivRound(rate, places).StringFixed(places),
		})
	}
	rt.Notes = append(rt.Notes,
		fmt.Sprintf("%d currencies, published %s", len(codes), publishedAt.UTC().Format(lastUpdatedFormat)))
	return rt
}

func RunListRates(ctx context.Context, src TableSource, places int32, w outfmt.RatesWriter) error {
	table, err := src.GetTable(ctx)
	if err != nil {
		return err
	}
	return w.PrintRenderTable("Reference rates", RatesRenderTable(table, src.LastUpdated(), places))
}

// DescribeError turns an error from the commands into the message shown to
// the user.
func DescribeError(err error) string {
	var unknown *fx.UnknownCurrencyError
	var fetchErr *fx.FetchError
	var storageErr *fx.StorageError
	switch {
	case errors.As(err, &unknown):
		return fmt.Sprintf("Could not find currency %s", unknown.Code)
	case errors.Is(err, fx.ErrInvalidAmount):
		return "Amount to convert must be a finite, non-negative number"
	case errors.Is(err, fx.ErrAmountOverflow):
		return "Converted amount is too large to print"
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Rates are out of date and the reference rates feed is unreachable: %v", fetchErr.Err)
	case errors.Is(err, config.ErrNoStorageLocation):
		return "Cannot store exchange rates: set XDG_DATA_HOME or HOME, or data_dir in the config file"
	case errors.As(err, &storageErr):
		return storageErr.Error()
	}
	return err.Error()
}
