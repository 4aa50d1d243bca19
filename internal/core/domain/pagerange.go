package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageRange resolves a page range expression such as "1-5,7,9-12" against
// the document's page count into an ascending, duplicate-free list of
// 1-indexed page numbers. An empty expression selects every page in natural
// order. Tokens are comma-separated; each token is a single page or an
// inclusive start-end range.
func ParsePageRange(expr string, totalPages int) ([]int, error) {
	if totalPages <= 0 {
		return nil, WrapError(ErrNoPages, "parse page range", fmt.Errorf("document reports %d pages", totalPages))
	}
	if strings.TrimSpace(expr) == "" {
		pages := make([]int, totalPages)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	selected := make(map[int]struct{})
	for _, raw := range strings.Split(expr, ",") {
		token := strings.TrimSpace(raw)
		start, end, err := parseRangeToken(token)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, WrapError(ErrInvalidInput, "parse page range",
				fmt.Errorf("token %q: start page exceeds end page", token))
		}
		if start < 1 || end > totalPages {
			return nil, WrapError(ErrInvalidInput, "parse page range",
				fmt.Errorf("token %q: pages must be within 1-%d", token, totalPages))
		}
		for p := start; p <= end; p++ {
			selected[p] = struct{}{}
		}
	}

	pages := make([]int, 0, len(selected))
	for p := range selected {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// ValidatePageRangeSyntax checks the range grammar without a page count. It is
// used at submit time, before the document has been decoded; bound checks
// against the real page count happen in the pipeline.
func ValidatePageRangeSyntax(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	for _, raw := range strings.Split(expr, ",") {
		if _, _, err := parseRangeToken(strings.TrimSpace(raw)); err != nil {
			return err
		}
	}
	return nil
}

func parseRangeToken(token string) (start, end int, err error) {
	if token == "" {
		return 0, 0, WrapError(ErrInvalidInput, "parse page range", fmt.Errorf("empty token"))
	}

	// Split on the first dash only; both bounds must be integers.
	if lo, hi, found := strings.Cut(token, "-"); found {
		start, err = parsePageNumber(token, lo)
		if err != nil {
			return 0, 0, err
		}
		end, err = parsePageNumber(token, hi)
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}

	start, err = parsePageNumber(token, token)
	if err != nil {
		return 0, 0, err
	}
	return start, start, nil
}

func parsePageNumber(token, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, WrapError(ErrInvalidInput, "parse page range", fmt.Errorf("token %q: not a page number", token))
	}
	if n < 1 {
		return 0, WrapError(ErrInvalidInput, "parse page range", fmt.Errorf("token %q: pages are 1-indexed", token))
	}
	return n, nil
}
