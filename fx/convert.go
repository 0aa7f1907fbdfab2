package fx

import (
	"math"
)

func validAmount(amount float64) bool {
	return amount >= 0 && !math.IsInf(amount, 0)
}

// Convert turns amount of from into to using table. The result is not
// rounded. Converting a currency into itself returns amount unchanged.
func Convert(table RateTable, amount float64, from, to string) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}
	from, to = NormalizeCode(from), NormalizeCode(to)

	fromRate, ok := table.Rate(from).Get()
	if !ok {
		return 0, &UnknownCurrencyError{Code: from}
	}
	toRate, ok := table.Rate(to).Get()
	if !ok {
		return 0, &UnknownCurrencyError{Code: to}
	}
	result := amount * (toRate / fromRate)
	if math.IsInf(result, 0) {
		return 0, ErrAmountOverflow
	}
	return result, nil
}
