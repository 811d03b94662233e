package tracker

import (
	"slices"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

type entry struct {
	seq uint64 // local insertion order, breaks recordedAt ties
	ev  model.StatEvent
	// touched is the tracker version at which a settled write last put ev here; 0 if it came from a refresh
	touched uint64
}

// Snapshot is an immutable view of every event the tracker knows about, in insertion order.
// Writers never modify a published Snapshot; they build a new one.
type Snapshot struct {
	entries []entry
}

var emptySnapshot = &Snapshot{}

func (s *Snapshot) Len() int { return len(s.entries) }

// Events returns a copy of all events in insertion order.
func (s *Snapshot) Events() []model.StatEvent {
	return s.filter(func(model.StatEvent) bool { return true })
}

// GameEvents returns the events of one game in insertion order.
func (s *Snapshot) GameEvents(gameID int64) []model.StatEvent {
	return s.filter(func(ev model.StatEvent) bool { return ev.GameID == gameID })
}

// ScopeEvents returns one player's events in one game.
func (s *Snapshot) ScopeEvents(playerID, gameID int64) []model.StatEvent {
	return s.filter(func(ev model.StatEvent) bool { return ev.PlayerID == playerID && ev.GameID == gameID })
}

// IDs lists event ids in insertion order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ev.ID
	}
	return ids
}

func (s *Snapshot) filter(keep func(model.StatEvent) bool) []model.StatEvent {
	out := make([]model.StatEvent, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e.ev) {
			out = append(out, e.ev)
		}
	}
	return out
}

func (s *Snapshot) index(id string) int {
	return slices.IndexFunc(s.entries, func(e entry) bool { return e.ev.ID == id })
}

// latest finds the scope's event with the greatest RecordedAt; ties go to the highest seq.
func (s *Snapshot) latest(playerID, gameID int64) (entry, bool) {
	var (
		best  entry
		found bool
	)
	for _, e := range s.entries {
		if e.ev.PlayerID != playerID || e.ev.GameID != gameID {
			continue
		}
		if !found || e.ev.RecordedAt.After(best.ev.RecordedAt) ||
			(e.ev.RecordedAt.Equal(best.ev.RecordedAt) && e.seq > best.seq) {
			best, found = e, true
		}
	}
	return best, found
}

func (s *Snapshot) withAppended(e entry) *Snapshot {
	entries := make([]entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	return &Snapshot{entries: append(entries, e)}
}

func (s *Snapshot) withoutIndex(i int) *Snapshot {
	entries := make([]entry, 0, len(s.entries)-1)
	entries = append(entries, s.entries[:i]...)
	return &Snapshot{entries: append(entries, s.entries[i+1:]...)}
}

func (s *Snapshot) withReplaced(i int, ev model.StatEvent, touched uint64) *Snapshot {
	entries := slices.Clone(s.entries)
	entries[i].ev, entries[i].touched = ev, touched
	return &Snapshot{entries: entries}
}

// withRestored puts e back where its seq says it belongs.
func (s *Snapshot) withRestored(e entry) *Snapshot {
	pos, _ := slices.BinarySearchFunc(s.entries, e.seq, func(x entry, seq uint64) int {
		switch {
		case x.seq < seq:
			return -1
		case x.seq > seq:
			return 1
		default:
			return 0
		}
	})
	entries := make([]entry, 0, len(s.entries)+1)
	entries = append(entries, s.entries[:pos]...)
	entries = append(entries, e)
	return &Snapshot{entries: append(entries, s.entries[pos:]...)}
}
