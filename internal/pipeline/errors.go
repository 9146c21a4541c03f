package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy. Load, serialise and write failures are fatal for a
// document; render, encode and sink failures only skip the page.
var (
	ErrLoad      = errors.New("load failed")
	ErrRender    = errors.New("render failed")
	ErrEncode    = errors.New("encode failed")
	ErrAppend    = errors.New("append failed")
	ErrSerialize = errors.New("serialize failed")
	ErrWrite     = errors.New("write failed")
	ErrUserInput = errors.New("invalid input")
)

// Stage identifies the per-page step that failed
type Stage string

const (
	StageRender Stage = "render"
	StageEncode Stage = "encode"
	StageAppend Stage = "append"
)

func (s Stage) sentinel() error {
	switch s {
	case StageRender:
		return ErrRender
	case StageEncode:
		return ErrEncode
	default:
		return ErrAppend
	}
}

// PageError records why a page was left out of the output
type PageError struct {
	Page  int
	Stage Stage
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.Page, e.Stage, e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying cause
func (e *PageError) Unwrap() []error {
	return []error{e.Stage.sentinel(), e.Err}
}

// UserInputError wraps err so it matches ErrUserInput
func UserInputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUserInput, fmt.Sprintf(format, args...))
}
