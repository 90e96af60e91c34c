// Package textnorm canonicalizes human-entered text before it is stored or
// compared.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Clean trims, NFC-normalizes and collapses internal whitespace.
func Clean(s string) string {
	return strings.Join(strings.FieldsFunc(norm.NFC.String(s), unicode.IsSpace), " ")
}

// Name cleans s and title-cases each word.
func Name(s string) string {
	// cases.Caser is stateful, so build one per call.
	return cases.Title(language.Filipino).String(Clean(s))
}

// Email trims and lower-cases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold returns a comparison key: cleaned, case-folded, accents preserved.
func Fold(s string) string {
	return cases.Fold().String(Clean(s))
}
