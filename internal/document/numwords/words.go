// Package numwords spells out currency amounts in English using the Indian
// numbering grouping (thousand, lakh, crore).
package numwords

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
	"Sixteen", "Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// Words converts a non-negative integer to English words. No upper bound is
// enforced; callers are expected to pass realistic currency magnitudes.
func Words(n int64) string {
	if n == 0 {
		return "Zero"
	}
	return words(n)
}

func words(n int64) string {
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		return strings.TrimSpace(tens[n/10] + " " + ones[n%10])
	case n < 1000:
		return ones[n/100] + " Hundred" + remainder(n%100)
	case n < 100000:
		return words(n/1000) + " Thousand" + remainder(n%1000)
	case n < 10000000:
		return words(n/100000) + " Lakh" + remainder(n%100000)
	default:
		return words(n/10000000) + " Crore" + remainder(n%10000000)
	}
}

func remainder(n int64) string {
	if n == 0 {
		return ""
	}
	return " " + words(n)
}

// CurrencySentence renders an amount as the receipt sentence fragment
// "the sum of Rupees <words> [and <words> Paise] only.". The paise clause is
// omitted when the fractional part rounds to zero.
func CurrencySentence(amount decimal.Decimal) string {
	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if paise == 100 {
		rupees++
		paise = 0
	}
	if paise == 0 {
		return fmt.Sprintf("the sum of Rupees %s only.", Words(rupees))
	}
	return fmt.Sprintf("the sum of Rupees %s and %s Paise only.", Words(rupees), Words(paise))
}
