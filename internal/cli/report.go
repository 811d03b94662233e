package cli

import (
	"github.com/spf13/cobra"

	"github.com/maxviazov/youth-hoops-tracker/internal/tracker"
)

// loadGame reads one game from the configured store into a fresh tracker.
func (a *app) loadGame(cmd *cobra.Command, gameID int64) (*tracker.Tracker, func(), error) {
	store, closeStore, err := a.openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	tr := tracker.New(store, tracker.Options{Timeout: a.timeout, Logger: &a.log})
	cleanup := func() {
		_ = tr.Close(cmd.Context())
		_ = closeStore()
	}
	if err := tr.Refresh(cmd.Context(), gameID); err != nil {
		cleanup()
		return nil, nil, err
	}
	return tr, cleanup, nil
}

func newTotalsCmd(a *app) *cobra.Command {
	var gameID, playerID int64
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Print a game's box score, or one player's line with --player",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, cleanup, err := a.loadGame(cmd, gameID)
			if err != nil {
				return err
			}
			defer cleanup()
			if playerID > 0 {
				return writePlayerLine(cmd.OutOrStdout(), playerID, tr.Totals(playerID, gameID))
			}
			return writeBoxScore(cmd.OutOrStdout(), tr.GameTotals(gameID))
		},
	}
	cmd.Flags().Int64VarP(&gameID, "game", "g", 0, "game id")
	cmd.Flags().Int64VarP(&playerID, "player", "p", 0, "player id")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func newTimelineCmd(a *app) *cobra.Command {
	var (
		gameID int64
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Print a game's events, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tr, cleanup, err := a.loadGame(cmd, gameID)
			if err != nil {
				return err
			}
			defer cleanup()
			return writeTimeline(cmd.OutOrStdout(), tr.Timeline(gameID), limit)
		},
	}
	cmd.Flags().Int64VarP(&gameID, "game", "g", 0, "game id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show, 0 for all")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}
