package httpbackend

import "sort"

// byteSpan is a contiguous, half-open [Start, End) range of bytes the
// resumable reader has delivered to the caller.
type byteSpan struct {
	Start int64
	End   int64
}

// deliveredSpans tracks which byte ranges of the logical stream have been
// handed to the caller across one or more HTTP sessions, coalescing
// adjacent/overlapping spans as sessions are opened and reopened. It
// exists so Reader can answer "did resumption actually cover the whole
// file with no gap around the truncation point" for tests and diagnostics,
// without re-requesting bytes to check.
type deliveredSpans struct {
	items []byteSpan
}

// insert records that [start, end) has now been delivered.
func (r *deliveredSpans) insert(start, end int64) {
	if start >= end {
		return
	}

	newSpan := byteSpan{Start: start, End: end}

	if len(r.items) == 0 {
		r.items = append(r.items, newSpan)
		return
	}

	i := sort.Search(len(r.items), func(j int) bool {
		return r.items[j].End >= start
	})

	j := i
	for j < len(r.items) && r.items[j].Start <= end {
		if r.items[j].Start < newSpan.Start {
			newSpan.Start = r.items[j].Start
		}
		if r.items[j].End > newSpan.End {
			newSpan.End = r.items[j].End
		}
		j++
	}

	merged := make([]byteSpan, 0, len(r.items)-(j-i)+1)
	merged = append(merged, r.items[:i]...)
	merged = append(merged, newSpan)
	merged = append(merged, r.items[j:]...)
	r.items = merged
}

// coversFrom reports whether [start, end) is entirely covered by a single
// contiguous delivered span starting at or before start.
func (r *deliveredSpans) coversFrom(start, end int64) bool {
	if start >= end {
		return true
	}
	i := sort.Search(len(r.items), func(j int) bool {
		return r.items[j].End > start
	})
	if i >= len(r.items) {
		return false
	}
	return r.items[i].Start <= start && r.items[i].End >= end
}

// totalDelivered returns the sum of all delivered span lengths.
func (r *deliveredSpans) totalDelivered() int64 {
	var total int64
	for _, it := range r.items {
		total += it.End - it.Start
	}
	return total
}
