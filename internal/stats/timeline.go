package stats

import (
	"iter"
	"slices"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

// Timeline orders events newest first for display. The returned sequence can be ranged
// over any number of times; it works on a private copy, so later changes to events do not leak in.
// Events sharing a timestamp come out in reverse input order, i.e. the most recently inserted first.
func Timeline(events []model.StatEvent) iter.Seq[model.StatEvent] {
	sorted := slices.Clone(events)
	slices.Reverse(sorted)
	slices.SortStableFunc(sorted, func(a, b model.StatEvent) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	return func(yield func(model.StatEvent) bool) {
		for _, ev := range sorted {
			if !yield(ev) {
				return
			}
		}
	}
}
