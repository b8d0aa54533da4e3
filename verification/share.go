package verification

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrInvalidShareToken is returned when a share token cannot be decoded.
var ErrInvalidShareToken = errors.New("invalid share token")

// Share tokens use the browser's btoa(JSON.stringify(form)) layout: padded
// standard base64 over Latin-1 bytes. Links made in the browser open here and
// links made here open in the browser.

// EncodeShareToken serializes the shareable part of f (errors excluded).
// Runes outside Latin-1 are written as JSON \u escapes so every token stays
// btoa-compatible.
func EncodeShareToken(f Form) (string, error) {
	shared := f.Annotate(nil)
	payload, err := json.Marshal(shared)
	if err != nil {
		return "", fmt.Errorf("encode share token: %w", err)
	}
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes(escapeBeyondLatin1(payload))
	if err != nil {
		return "", fmt.Errorf("encode share token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(latin1), nil
}

// DecodeShareToken restores a form from a token. Unpadded URL-safe base64 is
// accepted too. A payload that is not valid UTF-8 is read as Latin-1.
func DecodeShareToken(token string) (Form, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Form{}, fmt.Errorf("%w: empty", ErrInvalidShareToken)
	}
	// Query decoding turns an unescaped '+' into a space.
	token = strings.ReplaceAll(token, " ", "+")

	payload, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		payload, err = base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return Form{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
		}
	}
	if !utf8.Valid(payload) {
		payload, err = charmap.ISO8859_1.NewDecoder().Bytes(payload)
		if err != nil {
			return Form{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
		}
	}

	var f Form
	if err := json.Unmarshal(payload, &f); err != nil {
		return Form{}, fmt.Errorf("%w: %v", ErrInvalidShareToken, err)
	}
	if f.ProjectTotal == "" {
		f.ProjectTotal = "0"
	}
	if f.InstallmentCount == "" {
		f.InstallmentCount = "0"
	}
	if f.FirstInstallment == "" {
		f.FirstInstallment = "0"
	}
	if f.Renditions == nil {
		f.Renditions = []FormRendition{}
	}
	return f.Annotate(nil), nil
}

// escapeBeyondLatin1 rewrites runes above U+00FF as \uXXXX. Non-ASCII only
// occurs inside JSON strings, where the escape is equivalent.
func escapeBeyondLatin1(payload []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(payload))
	for _, r := range string(payload) {
		if r <= 0xFF {
			b.WriteRune(r)
			continue
		}
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.Bytes()
}
