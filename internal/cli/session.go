package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/tracker"
)

// kindAliases are the shorthands typed courtside. Canonical names work too.
var kindAliases = map[string]model.StatKind{
	"2":    model.KindFGMade,
	"2x":   model.KindFGMissed,
	"3":    model.KindThreePtMade,
	"3x":   model.KindThreePtMissed,
	"1":    model.KindFTMade,
	"1x":   model.KindFTMissed,
	"reb":  model.KindRebound,
	"ast":  model.KindAssist,
	"stl":  model.KindSteal,
	"blk":  model.KindBlock,
	"foul": model.KindFoul,
	"pf":   model.KindFoul,
}

const sessionHelp = `commands:
  r <player> <stat> [amount]   record (stat: 2 2x 3 3x 1 1x reb ast stl blk foul, or a full name)
  u <player>                   undo that player's latest stat
  t [player]                   box score, or one player's line
  l [n]                        last n events (default 10)
  sync                         reload the game from the store
  q                            quit
`

func parseKind(s string) (model.StatKind, error) {
	if k, ok := kindAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	return model.ParseStatKind(s)
}

func parsePlayer(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("player must be a positive number, got %q", s)
	}
	return id, nil
}

func newSessionCmd(a *app) *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Score a game interactively",
		Long:  "Reads commands from stdin. Stats show up in totals immediately; a ✓ or ✗ line follows once the store answers.\n\n" + sessionHelp,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.user == "" {
				return errors.New("--user is required so every stat says who recorded it")
			}
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			out := &syncWriter{w: cmd.OutOrStdout()}
			tr := tracker.New(store, tracker.Options{
				Timeout:   a.timeout,
				Logger:    &a.log,
				OnSettled: func(m *tracker.Mutation) { printSettled(out, m) },
			})
			defer func() {
				// give in-flight syncs the same budget a single sync gets
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
				defer cancel()
				if err := tr.Close(closeCtx); err != nil {
					fmt.Fprintf(out, "some stats did not sync before exit: %v\n", err)
				}
			}()

			if err := tr.Refresh(ctx, gameID); err != nil {
				fmt.Fprintf(out, "could not load game %d, starting empty: %v\n", gameID, err)
			}
			fmt.Fprintf(out, "game %d, scoring as %s. type ? for help\n", gameID, a.user)
			return runSession(ctx, cmd.InOrStdin(), out, tr, gameID, a.user)
		},
	}
	cmd.Flags().Int64VarP(&gameID, "game", "g", 0, "game id")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

// runSession executes commands from in until EOF, "q" or ctx ends.
// Bad input is reported and the loop goes on; only write failures stop it.
func runSession(ctx context.Context, in io.Reader, out io.Writer, tr *tracker.Tracker, gameID int64, user string) error {
	sc := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := runCommand(ctx, out, tr, gameID, user, fields)
		if err != nil {
			fmt.Fprintf(out, "  ! %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func runCommand(ctx context.Context, out io.Writer, tr *tracker.Tracker, gameID int64, user string, fields []string) (quit bool, err error) {
	switch strings.ToLower(fields[0]) {
	case "q", "quit", "exit":
		return true, nil

	case "?", "h", "help":
		fmt.Fprint(out, sessionHelp)

	case "r", "record":
		if len(fields) < 3 || len(fields) > 4 {
			return false, errors.New("usage: r <player> <stat> [amount]")
		}
		playerID, err := parsePlayer(fields[1])
		if err != nil {
			return false, err
		}
		kind, err := parseKind(fields[2])
		if err != nil {
			return false, err
		}
		amount := 1
		if len(fields) == 4 {
			if amount, err = strconv.Atoi(fields[3]); err != nil {
				return false, fmt.Errorf("amount must be a number, got %q", fields[3])
			}
		}
		m, err := tr.RecordStat(ctx, model.StatEventInput{PlayerID: playerID, GameID: gameID, Kind: kind, Amount: amount, RecordedBy: user})
		if err != nil {
			return false, err
		}
		t := tr.Totals(playerID, gameID)
		fmt.Fprintf(out, "  + %s for #%d, now %d pts\n", m.Event().Kind, playerID, t.Points)

	case "u", "undo":
		if len(fields) != 2 {
			return false, errors.New("usage: u <player>")
		}
		playerID, err := parsePlayer(fields[1])
		if err != nil {
			return false, err
		}
		m, err := tr.UndoLastStat(ctx, playerID, gameID)
		if err != nil {
			return false, err
		}
		if m == nil {
			fmt.Fprintf(out, "  nothing to undo for #%d\n", playerID)
			return false, nil
		}
		fmt.Fprintf(out, "  - %s for #%d, now %d pts\n", m.Event().Kind, playerID, tr.Totals(playerID, gameID).Points)

	case "t", "totals":
		if len(fields) == 2 {
			playerID, err := parsePlayer(fields[1])
			if err != nil {
				return false, err
			}
			return false, writePlayerLine(out, playerID, tr.Totals(playerID, gameID))
		}
		return false, writeBoxScore(out, tr.GameTotals(gameID))

	case "l", "log":
		limit := 10
		if len(fields) == 2 {
			if limit, err = strconv.Atoi(fields[1]); err != nil {
				return false, fmt.Errorf("n must be a number, got %q", fields[1])
			}
		}
		return false, writeTimeline(out, tr.Timeline(gameID), limit)

	case "sync":
		if err := tr.Refresh(ctx, gameID); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "  synced, %d events, %d pending\n", len(tr.Events(gameID)), tr.Pending())

	default:
		return false, fmt.Errorf("unknown command %q, type ? for help", fields[0])
	}
	return false, nil
}
