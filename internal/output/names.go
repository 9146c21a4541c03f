// Package output derives result filenames and writes results into an
// output directory.
package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sammcj/pdf-toolbox/internal/pages"
)

// MergedName is the default filename for merge results
const MergedName = "merged.pdf"

// BaseName returns a file's name without directory or .pdf extension
func BaseName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// CompressedName is the compress tool's output name
func CompressedName(path string) string {
	return "compressed-" + BaseName(path) + ".pdf"
}

// WordName is the pdf_to_word output name for the given extension (.docx or .html)
func WordName(path, ext string) string {
	return BaseName(path) + ext
}

// OCRName is the ocr tool's output name
func OCRName(path string) string {
	return BaseName(path) + "_ocr.txt"
}

// SplitName names one split part after its page range
func SplitName(path string, r pages.Range) string {
	if r.From == r.To {
		return fmt.Sprintf("%s_%d.pdf", BaseName(path), r.From)
	}
	return fmt.Sprintf("%s_%d-%d.pdf", BaseName(path), r.From, r.To)
}

// RotatedName is the rotate tool's output name
func RotatedName(path string) string {
	return BaseName(path) + "_rotated.pdf"
}

// OrganizedName is the organize tool's output name
func OrganizedName(path string) string {
	return BaseName(path) + "_organized.pdf"
}

// EnsurePDF appends .pdf to a caller supplied name when it is missing
func EnsurePDF(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return MergedName
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
