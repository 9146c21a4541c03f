// Package ocr recognises text on rendered pages through a pluggable engine.
package ocr

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Recognizer extracts text from one encoded page image
type Recognizer interface {
	// Name identifies the engine in logs and responses
	Name() string

	// Recognize returns the plain text found in image (PNG or JPEG bytes)
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}

// Language is one entry of the fixed recognition catalogue
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultLanguage is used when the caller does not choose any
const DefaultLanguage = "eng"

var catalogue = []Language{
	{Code: "eng", Name: "English"},
	{Code: "deu", Name: "German"},
	{Code: "fra", Name: "French"},
	{Code: "spa", Name: "Spanish"},
	{Code: "ita", Name: "Italian"},
	{Code: "por", Name: "Portuguese"},
	{Code: "nld", Name: "Dutch"},
	{Code: "chi_sim", Name: "Chinese (Simplified)"},
	{Code: "jpn", Name: "Japanese"},
	{Code: "kor", Name: "Korean"},
	{Code: "ara", Name: "Arabic"},
	{Code: "rus", Name: "Russian"},
	{Code: "hin", Name: "Hindi"},
}

// Languages returns a copy of the supported language catalogue
func Languages() []Language {
	return slices.Clone(catalogue)
}

// LanguageCodes returns the catalogue codes in catalogue order
func LanguageCodes() []string {
	codes := make([]string, len(catalogue))
	for i, l := range catalogue {
		codes[i] = l.Code
	}
	return codes
}

// ParseLanguages validates a set of language codes against the catalogue.
// Codes may be given as separate values or joined with '+' or ','. Duplicates
// are dropped; an empty set yields DefaultLanguage.
func ParseLanguages(values ...string) ([]string, error) {
	known := LanguageCodes()
	var out []string

	for _, v := range values {
		for code := range strings.FieldsFuncSeq(v, func(r rune) bool { return r == '+' || r == ',' || r == ' ' }) {
			code = strings.ToLower(code)
			if !slices.Contains(known, code) {
				return nil, fmt.Errorf("unsupported OCR language %q (supported: %s)", code, strings.Join(known, ", "))
			}
			if !slices.Contains(out, code) {
				out = append(out, code)
			}
		}
	}

	if len(out) == 0 {
		return []string{DefaultLanguage}, nil
	}
	return out, nil
}
