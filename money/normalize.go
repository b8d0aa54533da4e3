package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FractionDigits bounds the fractional digits rendered by FormatDecimal.
type FractionDigits struct {
	Min int
	Max int
}

// TwoDecimals is the display precision of guarantee units and unit values.
var TwoDecimals = FractionDigits{Min: 2, Max: 2}

// Normalizer parses and formats numbers for one locale. The zero value is not
// useful; use NewNormalizer or Default.
type Normalizer struct {
	Locale Locale
}

// Default normalizes with ChileanSpanish separators.
var Default = NewNormalizer(ChileanSpanish)

func NewNormalizer(locale Locale) Normalizer {
	return Normalizer{Locale: locale}
}

// =============================================================================
// GROUPED INTEGERS - Whole currency units
// =============================================================================

// ParseGroupedInteger strips every non-digit and reads the rest as a base-10
// integer. Empty input yields zero. It never fails.
func (n Normalizer) ParseGroupedInteger(text string) decimal.Decimal {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatGroupedInteger rounds to the nearest integer and renders it with
// thousands grouping.
func (n Normalizer) FormatGroupedInteger(value decimal.Decimal) string {
	return n.print(value.Round(0), number.MaxFractionDigits(0))
}

// =============================================================================
// DECIMALS - Guarantee units and unit values
// =============================================================================

// ParseDecimal reads a locale-formatted decimal such as "37.511,83".
// The boolean is false when the text is not a number; callers substitute zero
// before handing the value to the engine (see DecimalOrZero).
func (n Normalizer) ParseDecimal(text string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(text)
	if n.Locale.Group != "" {
		s = strings.ReplaceAll(s, n.Locale.Group, "")
	}
	if n.Locale.Decimal != "." {
		s = strings.Replace(s, n.Locale.Decimal, ".", 1)
	}

	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return decimal.Zero, false
		}
	}
	if digits == 0 || dots > 1 {
		return decimal.Zero, false
	}

	s = strings.TrimSuffix(s, ".")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DecimalOrZero parses text and substitutes zero for anything unparseable.
func (n Normalizer) DecimalOrZero(text string) decimal.Decimal {
	d, ok := n.ParseDecimal(text)
	if !ok {
		return decimal.Zero
	}
	return d
}

// FormatDecimal renders value rounded to digits.Max fractional digits, keeping
// at least digits.Min of them.
func (n Normalizer) FormatDecimal(value decimal.Decimal, digits FractionDigits) string {
	if digits.Max < digits.Min {
		digits.Max = digits.Min
	}
	return n.print(value.Round(int32(digits.Max)),
		number.MinFractionDigits(digits.Min),
		number.MaxFractionDigits(digits.Max))
}

// print formats an already rounded value with the locale's CLDR symbols.
// Rounding happens on the decimal first so the float handed to x/text carries
// no more digits than it can represent exactly.
func (n Normalizer) print(rounded decimal.Decimal, opts ...number.Option) string {
	var v any
	if rounded.IsInteger() && rounded.BigInt().IsInt64() {
		v = rounded.IntPart()
	} else {
		v = rounded.InexactFloat64()
	}
	return message.NewPrinter(n.Locale.Tag).Sprint(number.Decimal(v, opts...))
}

// =============================================================================
// PACKAGE-LEVEL HELPERS - ChileanSpanish
// =============================================================================

func ParseGroupedInteger(text string) decimal.Decimal { return Default.ParseGroupedInteger(text) }
func FormatGroupedInteger(value decimal.Decimal) string { return Default.FormatGroupedInteger(value) }
func ParseDecimal(text string) (decimal.Decimal, bool) { return Default.ParseDecimal(text) }
func DecimalOrZero(text string) decimal.Decimal        { return Default.DecimalOrZero(text) }
func FormatDecimal(value decimal.Decimal, digits FractionDigits) string {
	return Default.FormatDecimal(value, digits)
}
