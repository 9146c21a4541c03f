package raster

import (
	"fmt"
	"slices"
	"strings"
)

// Preset names a fixed Settings value
type Preset string

// Compression tiers. Higher compression lowers scale and quality together.
const (
	PresetLow         Preset = "low"
	PresetRecommended Preset = "recommended"
	PresetExtreme     Preset = "extreme"
)

// Conversion presets used by the Word, HTML and OCR tools
const (
	PresetWord Preset = "word"
	PresetHTML Preset = "html"
	PresetOCR  Preset = "ocr"
)

// DefaultCompression is used when the caller does not pick a level
const DefaultCompression = PresetRecommended

// Settings returns the immutable settings behind the preset
func (p Preset) Settings() (Settings, error) {
	switch p {
	case PresetLow:
		return Settings{Scale: 0.9, Format: Lossy, Quality: 0.8}, nil
	case PresetRecommended:
		return Settings{Scale: 0.75, Format: Lossy, Quality: 0.6}, nil
	case PresetExtreme:
		return Settings{Scale: 0.5, Format: Lossy, Quality: 0.3}, nil
	case PresetWord:
		return Settings{Scale: 1.5, Format: Lossy, Quality: 0.85}, nil
	case PresetHTML:
		return Settings{Scale: 1.25, Format: Lossy, Quality: 0.85}, nil
	case PresetOCR:
		return Settings{Scale: 2.0, Format: Lossless}, nil
	default:
		return Settings{}, fmt.Errorf("unknown preset: %s", string(p))
	}
}

// CompressionPresets lists the compression tiers from least to most aggressive
func CompressionPresets() []Preset {
	return []Preset{PresetLow, PresetRecommended, PresetExtreme}
}

// CompressionPresetNames returns the tier names, for tool schemas
func CompressionPresetNames() []string {
	names := make([]string, 0, 3)
	for _, p := range CompressionPresets() {
		names = append(names, string(p))
	}
	return names
}

// ParseCompressionPreset resolves a user supplied compression level. An empty
// string selects DefaultCompression.
func ParseCompressionPreset(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultCompression, nil
	}
	// "high" was the original name of the most aggressive tier
	if s == "high" {
		return PresetExtreme, nil
	}
	p := Preset(s)
	if !slices.Contains(CompressionPresets(), p) {
		return "", fmt.Errorf("unknown compression level %q (expected one of %s)", s, strings.Join(CompressionPresetNames(), ", "))
	}
	return p, nil
}
