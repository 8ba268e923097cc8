package slotengine

import (
	"sort"
	"time"
)

// interval is a half-open UTC span [Start, End). All set operations in
// this file treat overlapping/adjacent intervals as mergeable and
// assume Start < End for every member (callers filter out empty spans
// before handing them in).
type interval struct {
	Start time.Time
	End   time.Time
}

func (iv interval) empty() bool {
	return !iv.Start.Before(iv.End)
}

// unionIntervals merges overlapping/touching intervals into the
// minimal covering set, sorted by Start.
func unionIntervals(ivs []interval) []interval {
	filtered := make([]interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.empty() {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Start.Before(filtered[j].Start) })

	out := []interval{filtered[0]}
	for _, iv := range filtered[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// intersectIntervals returns the intersection of two already-merged
// interval sets (each internally non-overlapping and sorted).
func intersectIntervals(a, b []interval) []interval {
	var out []interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if b[j].Start.After(start) {
			start = b[j].Start
		}
		end := a[i].End
		if b[j].End.Before(end) {
			end = b[j].End
		}
		if start.Before(end) {
			out = append(out, interval{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// subtractIntervals removes every span in subtrahend from minuend;
// both must already be merged (non-overlapping, sorted by Start).
func subtractIntervals(minuend, subtrahend []interval) []interval {
	out := make([]interval, len(minuend))
	copy(out, minuend)

	for _, sub := range subtrahend {
		var next []interval
		for _, iv := range out {
			if !sub.Start.Before(iv.End) || !sub.End.After(iv.Start) {
				// No overlap.
				next = append(next, iv)
				continue
			}
			if sub.Start.After(iv.Start) {
				next = append(next, interval{Start: iv.Start, End: sub.Start})
			}
			if sub.End.Before(iv.End) {
				next = append(next, interval{Start: sub.End, End: iv.End})
			}
		}
		out = next
	}
	return out
}
