package cli

import (
	"fmt"
	"io"
	"iter"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/tracker"
)

// syncWriter serializes writes from the prompt loop and from settling mutations.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printSettled(w io.Writer, m *tracker.Mutation) {
	ev := m.Event()
	switch {
	case m.State() == tracker.Confirmed && m.Op() == tracker.OpRecord:
		fmt.Fprintf(w, "  ✓ saved %s for #%d (%s)\n", ev.Kind, ev.PlayerID, ev.ID)
	case m.State() == tracker.Confirmed:
		fmt.Fprintf(w, "  ✓ removed %s for #%d\n", ev.Kind, ev.PlayerID)
	default:
		fmt.Fprintf(w, "  ✗ %s of %s for #%d undone locally: %v\n", m.Op(), ev.Kind, ev.PlayerID, m.Err())
	}
}

func shooting(made, missed int, pct float64) string {
	return fmt.Sprintf("%d/%d %.0f%%", made, made+missed, pct)
}

func writeBoxScore(w io.Writer, gt model.GameTotals) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tPTS\tFG\t3PT\tFT\tREB\tAST\tSTL\tBLK\tPF")
	row := func(label string, t model.Totals) {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n", label, t.Points,
			shooting(t.FGMade, t.FGMissed, t.FGPercentage),
			shooting(t.ThreePtMade, t.ThreePtMissed, t.ThreePtPercentage),
			shooting(t.FTMade, t.FTMissed, t.FTPercentage),
			t.Rebounds, t.Assists, t.Steals, t.Blocks, t.Fouls)
	}
	for _, p := range gt.Players {
		row("#"+strconv.FormatInt(p.PlayerID, 10), p.Totals)
	}
	row("TEAM", gt.Overall)
	return tw.Flush()
}

func writePlayerLine(w io.Writer, playerID int64, t model.Totals) error {
	return writeBoxScore(w, model.GameTotals{Overall: t, Players: []model.PlayerTotals{{PlayerID: playerID, Totals: t}}})
}

// writeTimeline prints at most limit events, newest first; limit <= 0 prints all of them.
func writeTimeline(w io.Writer, events iter.Seq[model.StatEvent], limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPLAYER\tSTAT\tBY\tID")
	n := 0
	for ev := range events {
		if limit > 0 && n == limit {
			break
		}
		stat := ev.Kind.String()
		if ev.Amount != 1 {
			stat += " x" + strconv.Itoa(ev.Amount)
		}
		fmt.Fprintf(tw, "%s\t#%d\t%s\t%s\t%s\n", ev.RecordedAt.Local().Format("15:04:05"), ev.PlayerID, stat, ev.RecordedBy, ev.ID)
		n++
	}
	return tw.Flush()
}
