// Package paging normalises offset pagination parameters.
package paging

import "math"

// Normalize clamps page to at least 1 and returns it with the row offset.
// Pages past the largest addressable offset are pinned to it.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size > 0 && page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return page, (page - 1) * size
}

// TotalPages returns the number of pages needed for total rows.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
