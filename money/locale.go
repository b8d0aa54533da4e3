/*
Package money converts locale-formatted monetary and decimal text into exact
decimal values and back.

PURPOSE:
  The verification form is typed by people, in Chilean Spanish, one keystroke
  at a time. Amounts arrive as "20.000.000", "CLP$ 3.000.000" or half-typed
  garbage. This package is the input boundary of the eligibility engine: it
  turns that text into decimal.Decimal values and renders results back.

KEY CONCEPTS:
  Locale:      Language tag plus the separators the parser strips
  Normalizer:  Parse/format functions bound to a Locale. Formatting goes
               through golang.org/x/text/message with the tag's CLDR symbols.

PARSE/FORMAT ASYMMETRY:
  Parsing is lenient (typing must never be blocked by a partial value).
  Formatting is strict and is applied when a field value is committed.

  ParseGroupedInteger("CLP$ 1.2a3")  -> 123        (never fails)
  ParseDecimal("1.500,25")          -> 1500.25, true
  ParseDecimal("abc")               -> 0, false   (the NaN case)
  FormatGroupedInteger(6000000)     -> "6.000.000"

SEE ALSO:
  - normalize.go: Parse and format operations
  - eligibility/engine.go: Consumer of the parsed values
*/
package money

import (
	"golang.org/x/text/language"
)

// =============================================================================
// LOCALE
// =============================================================================

// Locale holds the separators used to group and split numbers when parsing.
type Locale struct {
	Tag     language.Tag
	Group   string
	Decimal string
}

var (
	// ChileanSpanish is the default locale ("20.000.000", "37.511,83").
	ChileanSpanish = Locale{Tag: language.MustParse("es-CL"), Group: ".", Decimal: ","}

	// AmericanEnglish groups with commas and splits fractions with a dot.
	AmericanEnglish = Locale{Tag: language.AmericanEnglish, Group: ",", Decimal: "."}
)

// supported is ordered; the first entry is the fallback for unmatched tags.
var supported = []Locale{ChileanSpanish, AmericanEnglish}

var matcher = language.NewMatcher([]language.Tag{ChileanSpanish.Tag, AmericanEnglish.Tag})

// LocaleFor returns the supported locale closest to the given BCP-47 tag.
// Unparseable or unmatched tags fall back to ChileanSpanish.
func LocaleFor(tag string) Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return ChileanSpanish
	}
	_, idx, confidence := matcher.Match(t)
	if confidence == language.No || idx < 0 || idx >= len(supported) {
		return ChileanSpanish
	}
	return supported[idx]
}
