package service

import "math"

const (
	// DefaultPageSize is the number of threads on one feed page.
	DefaultPageSize = 10
	// MaxPageSize caps caller supplied page sizes.
	MaxPageSize = 100
)

// ClampPage treats any page below 1 as the first page.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// PageOffset is the number of threads skipped before page (1-based). ok is
// false when the offset does not fit in an int; no store holds that many
// threads, so such a page is always empty.
func PageOffset(page, size int) (offset int, ok bool) {
	page = ClampPage(page)
	if size <= 0 {
		return 0, true
	}
	if page-1 > math.MaxInt/size {
		return 0, false
	}
	return (page - 1) * size, true
}

func clampSize(size, fallback int) int {
	if size <= 0 {
		size = fallback
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return size
}
