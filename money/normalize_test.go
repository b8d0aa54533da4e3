package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/disbursement-engine/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// =============================================================================
// GROUPED INTEGERS
// =============================================================================

func TestParseGroupedInteger(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"grouped", "20.000.000", "20000000"},
		{"currency prefix", "CLP$ 3.000.000", "3000000"},
		{"plain", "800000", "800000"},
		{"empty", "", "0"},
		{"letters only", "abc", "0"},
		{"interleaved garbage", "1a2b3", "123"},
		{"minus sign is stripped", "-500", "500"},
		{"fraction digits are kept as digits", "1.500,50", "150050"},
		{"beyond int64", "123456789012345678901234", "123456789012345678901234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.ParseGroupedInteger(tt.text)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFormatGroupedInteger(t *testing.T) {
	assert.Equal(t, "0", money.FormatGroupedInteger(decimal.Zero))
	assert.Equal(t, "999", money.FormatGroupedInteger(dec("999")))
	assert.Equal(t, "1.500", money.FormatGroupedInteger(dec("1500")), "four digits are grouped")
	assert.Equal(t, "6.000.000", money.FormatGroupedInteger(dec("6000000")))
	assert.Equal(t, "56.267.745", money.FormatGroupedInteger(dec("56267745")))
	assert.Equal(t, "123.457", money.FormatGroupedInteger(dec("123456.5")), "rounds half up")
	assert.Equal(t, "4", money.FormatGroupedInteger(dec("4.2")))
	assert.Equal(t, "-3.000.000", money.FormatGroupedInteger(dec("-3000000")))
}

func TestFormatGroupedInteger_AmericanEnglish(t *testing.T) {
	n := money.NewNormalizer(money.AmericanEnglish)
	assert.Equal(t, "10,000,000", n.FormatGroupedInteger(dec("10000000")))
}

func TestGroupedInteger_RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "7", "1000", "2200000", "20000000"} {
		v := dec(s)
		assert.True(t, v.Equal(money.ParseGroupedInteger(money.FormatGroupedInteger(v))), s)
	}
}

// =============================================================================
// DECIMALS
// =============================================================================

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"37.511,83", "37511.83", true},
		{"1500,00", "1500", true},
		{"1.500", "1500", true},
		{",5", "0.5", true},
		{"12,", "12", true},
		{" 42 ", "42", true},
		{"", "0", false},
		{"abc", "0", false},
		{"1,2,3", "0", false},
		{"-5", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := money.ParseDecimal(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestDecimalOrZero(t *testing.T) {
	assert.True(t, money.DecimalOrZero("no es número").IsZero())
	assert.True(t, dec("1500").Equal(money.DecimalOrZero("1.500,00")))
}

func TestParseDecimal_AmericanEnglish(t *testing.T) {
	n := money.NewNormalizer(money.AmericanEnglish)
	got, ok := n.ParseDecimal("37,511.83")
	assert.True(t, ok)
	assert.True(t, dec("37511.83").Equal(got))
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "37.511,83", money.FormatDecimal(dec("37511.83"), money.TwoDecimals))
	assert.Equal(t, "1.500,00", money.FormatDecimal(dec("1500"), money.TwoDecimals))
	assert.Equal(t, "0,13", money.FormatDecimal(dec("0.125"), money.TwoDecimals))
	assert.Equal(t, "60", money.FormatDecimal(dec("60"), money.FractionDigits{Min: 0, Max: 1}))
	assert.Equal(t, "60,5", money.FormatDecimal(dec("60.49"), money.FractionDigits{Min: 0, Max: 1}))
	assert.Equal(t, "1.500,25", money.FormatDecimal(dec("1500.25"), money.TwoDecimals))
	assert.Equal(t, "56.267.745,00", money.FormatDecimal(dec("56267745"), money.TwoDecimals))
}

func TestFormatDecimal_AmericanEnglish(t *testing.T) {
	n := money.NewNormalizer(money.AmericanEnglish)
	assert.Equal(t, "37,511.83", n.FormatDecimal(dec("37511.83"), money.TwoDecimals))
	assert.Equal(t, "1,500", n.FormatGroupedInteger(dec("1500")))
}

func TestFormatDecimal_RoundTrip(t *testing.T) {
	for _, s := range []string{"0.5", "1500.25", "37511.83", "1234567.89"} {
		v := dec(s)
		got, ok := money.ParseDecimal(money.FormatDecimal(v, money.TwoDecimals))
		assert.True(t, ok, s)
		assert.True(t, v.Equal(got), "%s != %s", s, got)
	}
}

// =============================================================================
// LOCALE SELECTION
// =============================================================================

func TestLocaleFor(t *testing.T) {
	assert.Equal(t, ",", money.LocaleFor("en-US").Group)
	assert.Equal(t, ".", money.LocaleFor("es-CL").Group)
	assert.Equal(t, ".", money.LocaleFor("not a tag!").Group)
}
