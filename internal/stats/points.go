// Package stats derives totals, percentages and points from stat events.
// Everything here is pure: no I/O, no shared state, inputs are never mutated.
package stats

import "github.com/maxviazov/youth-hoops-tracker/internal/model"

// PointValue is the single source of truth for how many points one occurrence of kind is worth.
// Missed shots and non-scoring kinds are worth nothing.
func PointValue(kind model.StatKind) int {
	switch kind {
	case model.KindFGMade:
		return 2
	case model.KindThreePtMade:
		return 3
	case model.KindFTMade:
		return 1
	case model.KindFGMissed, model.KindThreePtMissed, model.KindFTMissed,
		model.KindRebound, model.KindAssist, model.KindSteal, model.KindBlock, model.KindFoul:
		return 0
	default:
		return 0
	}
}
