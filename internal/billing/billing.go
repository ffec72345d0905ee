// Package billing computes seat time and fees. Everything here is pure:
// the ledger feeds it times and rates, the web layer renders the results.
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Compute returns the elapsed seconds and the fee owed for a session.
// A nil stop means the session is still running and now is used in its
// place. Seconds never go negative, even when clock skew or a bad start
// time would make stop precede start.
//
// The fee is hourlyRate * seconds / 3600 rounded half-up to the whole
// currency unit. Half-up is the pinned rounding mode for all billed
// amounts.
func Compute(start time.Time, stop *time.Time, hourlyRate decimal.Decimal, now time.Time) (int64, decimal.Decimal) {
	effectiveStop := now
	if stop != nil {
		effectiveStop = *stop
	}

	seconds := effectiveStop.Unix() - start.Unix()
	if seconds < 0 {
		seconds = 0
	}

	fee := hourlyRate.
		Mul(decimal.NewFromInt(seconds)).
		Div(secondsPerHour).
		Round(0)
	return seconds, fee
}

// FormatDuration renders elapsed seconds as "1h 30m".
func FormatDuration(seconds int64) string {
	return fmt.Sprintf("%dh %02dm", seconds/3600, (seconds%3600)/60)
}

var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatFee renders a fee as US currency text with grouping, "$1,234".
// Negative amounts (prepaid balances in arrears) render as "-$5".
func FormatFee(fee decimal.Decimal) string {
	if fee.Sign() < 0 {
		return "-" + FormatFee(fee.Neg())
	}
	return currencyPrinter.Sprintf("$%v", number(fee))
}

// number adapts a decimal for x/text formatting with digit grouping.
func number(d decimal.Decimal) interface{} {
	if d.IsInteger() {
		return d.IntPart()
	}
	f, _ := d.Float64()
	return f
}
