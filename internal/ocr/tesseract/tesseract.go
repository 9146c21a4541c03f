// Package tesseract provides the Tesseract OCR engine through gosseract.
// Building it requires the Tesseract and Leptonica development libraries.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognises text with a fresh gosseract client per page
type Engine struct {
	clientFactory func() *gosseract.Client

	// DPI is passed to Tesseract as user_defined_dpi when positive
	DPI int
}

// New constructs a Tesseract backed engine
func New(dpi int) *Engine {
	return &Engine{clientFactory: gosseract.NewClient, DPI: dpi}
}

// Name identifies the engine
func (e *Engine) Name() string { return "tesseract" }

// Recognize runs OCR over one encoded page image
func (e *Engine) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages %s: %w", strings.Join(languages, "+"), err)
		}
	}
	if e.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(e.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

// AvailableLanguages lists the trained data installed for Tesseract
func AvailableLanguages() ([]string, error) {
	return gosseract.GetAvailableLanguages()
}
