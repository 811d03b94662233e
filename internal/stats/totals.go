package stats

import (
	"slices"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

// ComputeTotals folds events into a Totals value. The caller scopes the events;
// no filtering happens here. Negative amounts, which only a foreign store could hand us,
// count as zero so totals never go below what an empty set yields.
func ComputeTotals(events []model.StatEvent) model.Totals {
	var t model.Totals
	for _, ev := range events {
		n := max(ev.Amount, 0)
		t.Events++
		t.Points += n * PointValue(ev.Kind)
		switch ev.Kind {
		case model.KindFGMade:
			t.FGMade += n
		case model.KindFGMissed:
			t.FGMissed += n
		case model.KindThreePtMade:
			t.ThreePtMade += n
		case model.KindThreePtMissed:
			t.ThreePtMissed += n
		case model.KindFTMade:
			t.FTMade += n
		case model.KindFTMissed:
			t.FTMissed += n
		case model.KindRebound:
			t.Rebounds += n
		case model.KindAssist:
			t.Assists += n
		case model.KindSteal:
			t.Steals += n
		case model.KindBlock:
			t.Blocks += n
		case model.KindFoul:
			t.Fouls += n
		}
	}

	t.FGPercentage = percentage(t.FGMade, t.FGMissed)
	t.ThreePtPercentage = percentage(t.ThreePtMade, t.ThreePtMissed)
	t.FTPercentage = percentage(t.FTMade, t.FTMissed)
	return t
}

// percentage returns made/(made+missed) on a 0-100 scale, or 0 with no attempts.
func percentage(made, missed int) float64 {
	attempts := made + missed
	if attempts <= 0 {
		return 0
	}
	return float64(made) * 100 / float64(attempts)
}

// TotalsByPlayer groups events by player and computes one row per player, ordered by player id.
func TotalsByPlayer(events []model.StatEvent) []model.PlayerTotals {
	groups := make(map[int64][]model.StatEvent)
	for _, ev := range events {
		groups[ev.PlayerID] = append(groups[ev.PlayerID], ev)
	}
	out := make([]model.PlayerTotals, 0, len(groups))
	for pid, evs := range groups {
		out = append(out, model.PlayerTotals{PlayerID: pid, Totals: ComputeTotals(evs)})
	}
	slices.SortFunc(out, func(a, b model.PlayerTotals) int {
		switch {
		case a.PlayerID < b.PlayerID:
			return -1
		case a.PlayerID > b.PlayerID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Summarize computes totals plus per-game averages. Games played is the number of
// distinct games that appear in events; a game with no events for the player does not count.
func Summarize(events []model.StatEvent) model.SeasonSummary {
	games := make(map[int64]struct{})
	for _, ev := range events {
		games[ev.GameID] = struct{}{}
	}
	t := ComputeTotals(events)
	s := model.SeasonSummary{GamesPlayed: len(games), Totals: t}
	if s.GamesPlayed == 0 {
		return s
	}
	gp := float64(s.GamesPlayed)
	s.AvgPoints = float64(t.Points) / gp
	s.AvgRebounds = float64(t.Rebounds) / gp
	s.AvgAssists = float64(t.Assists) / gp
	s.AvgSteals = float64(t.Steals) / gp
	s.AvgBlocks = float64(t.Blocks) / gp
	return s
}
