// Package pages parses page selections such as "all", "3", "1-5" or
// "1,3,5-7" against a document's page count. Page numbers are 1-based.
package pages

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidSelection is returned for malformed or out of range selections
var ErrInvalidSelection = errors.New("invalid page selection")

// All is the selection keyword for every page
const All = "all"

// Range is an inclusive run of pages. From may exceed To in organize
// sequences, where it denotes a descending run.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Len returns the number of pages covered by the range
func (r Range) Len() int {
	if r.From > r.To {
		return r.From - r.To + 1
	}
	return r.To - r.From + 1
}

// Pages expands the range in its natural direction
func (r Range) Pages() []int {
	out := make([]int, 0, r.Len())
	if r.From <= r.To {
		for i := r.From; i <= r.To; i++ {
			out = append(out, i)
		}
		return out
	}
	for i := r.From; i >= r.To; i-- {
		out = append(out, i)
	}
	return out
}

func (r Range) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// Select parses a selection into a sorted, de-duplicated list of pages.
// An empty selection or "all" selects every page.
func Select(selection string, total int) ([]int, error) {
	if isAll(selection) {
		return every(total), nil
	}

	ranges, err := parse(selection, total, false)
	if err != nil {
		return nil, err
	}

	var result []int
	for _, r := range ranges {
		result = append(result, r.Pages()...)
	}
	slices.Sort(result)
	return slices.Compact(result), nil
}

// Ranges parses a selection into its ranges in the order given, as used by
// split where each range becomes one output document. "all" yields one
// single-page range per page.
func Ranges(selection string, total int) ([]Range, error) {
	if isAll(selection) {
		out := make([]Range, total)
		for i := range total {
			out[i] = Range{From: i + 1, To: i + 1}
		}
		return out, nil
	}
	return parse(selection, total, false)
}

// Sequence parses an organize sequence. Order is preserved, pages may
// repeat, and descending ranges such as "5-1" are allowed.
func Sequence(selection string, total int) ([]int, error) {
	if isAll(selection) {
		return every(total), nil
	}

	ranges, err := parse(selection, total, true)
	if err != nil {
		return nil, err
	}

	var result []int
	for _, r := range ranges {
		result = append(result, r.Pages()...)
	}
	return result, nil
}

// Strings renders page numbers in the form pdfcpu selections expect
func Strings(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}

func parse(selection string, total int, descending bool) ([]Range, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidSelection)
	}

	var result []Range
	for part := range strings.SplitSeq(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if from, to, isRange := strings.Cut(part, "-"); isRange {
			start, err := parseNumber(from)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid start page %q", ErrInvalidSelection, from)
			}
			end, err := parseNumber(to)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid end page %q", ErrInvalidSelection, to)
			}

			if start < 1 || end < 1 || start > total || end > total || (!descending && start > end) {
				return nil, fmt.Errorf("%w: page range %d-%d (max page: %d)", ErrInvalidSelection, start, end, total)
			}

			result = append(result, Range{From: start, To: end})
			continue
		}

		page, err := parseNumber(part)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid page number %q", ErrInvalidSelection, part)
		}
		if page < 1 || page > total {
			return nil, fmt.Errorf("%w: page number out of range: %d (max page: %d)", ErrInvalidSelection, page, total)
		}
		result = append(result, Range{From: page, To: page})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %q selects no pages", ErrInvalidSelection, selection)
	}
	return result, nil
}

func parseNumber(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func isAll(selection string) bool {
	s := strings.TrimSpace(strings.ToLower(selection))
	return s == "" || s == All
}

func every(total int) []int {
	result := make([]int, max(total, 0))
	for i := range result {
		result[i] = i + 1
	}
	return result
}
