package query

// PageState is the current page and page size. Current is clamped into
// [1, totalPages] whenever the filtered count or the size changes.
type PageState struct {
	Current int
	Size    int
}

// PageSizes are the selectable page sizes, smallest first.
var PageSizes = []int{5, 10, 25, 50, 100}

const (
	windowRadius = 4
	windowSpan   = 10
)

// TotalPages computes the page count for n records: never less than one, so
// an empty collection still renders page 1 of 1.
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Clamp pulls the current page back into range for n records.
func Clamp(p PageState, n int) PageState {
	if p.Size < 1 {
		p.Size = 1
	}
	total := TotalPages(n, p.Size)
	if p.Current < 1 {
		p.Current = 1
	}
	if p.Current > total {
		p.Current = total
	}
	return p
}

// Paginate returns the slice [(page-1)*size, page*size), bounded by the
// collection length.
func Paginate[T any](records []T, page, size int) []T {
	start := (page - 1) * size
	if start < 0 {
		start = 0
	}
	if start >= len(records) {
		return nil
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// Window returns the contiguous page numbers to display: anchored so the
// current page is included, spanning at most ten entries starting no more
// than four pages back, clamped to [1, total].
func Window(current, total int) []int {
	start := current - windowRadius
	if start < 1 {
		start = 1
	}
	end := start + windowSpan - 1
	if end > total {
		end = total
	}
	nums := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}
	return nums
}
