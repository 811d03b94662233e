// Package cli implements the scorekeeper command line: a courtside client that records stats
// optimistically and reconciles them with a server or a local SQLite file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
	"github.com/maxviazov/youth-hoops-tracker/internal/logger"
	"github.com/maxviazov/youth-hoops-tracker/internal/remote"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository/sqlite"
)

// app holds the resolved persistent settings shared by every subcommand.
type app struct {
	v       *viper.Viper
	server  string
	db      string
	user    string
	timeout time.Duration
	retries int
	log     zerolog.Logger
}

// NewRootCmd builds the command tree. Every persistent flag can also come from a
// SCOREKEEPER_* environment variable, e.g. SCOREKEEPER_SERVER or SCOREKEEPER_LOG_LEVEL.
func NewRootCmd(version string) *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "scorekeeper",
		Short:         "Courtside stat tracking for youth basketball",
		Long:          "scorekeeper records stats the moment you type them and syncs with the team server (or a local file) in the background.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve()
		},
	}

	pf := root.PersistentFlags()
	pf.String("server", "", "base URL of the tracker server, e.g. http://localhost:8080")
	pf.String("db", "", "path to a local SQLite file; used instead of --server when set")
	pf.String("user", "", "name stamped on every recorded stat")
	pf.Duration("timeout", config.DefaultRemoteTimeout, "how long a single sync may take before it is rolled back")
	pf.Int("retries", config.DefaultRetryConfig().MaxAttempts, "attempts per sync when the server is unreachable (1 disables retries)")
	pf.String("log-level", "warn", "trace, debug, info, warn or error")

	a.v.SetEnvPrefix("SCOREKEEPER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(pf)

	root.AddCommand(newSessionCmd(a), newTotalsCmd(a), newTimelineCmd(a), newVersionCmd(version))
	return root
}

// Execute runs the command tree with ctx, which should be cancelled on SIGINT.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}

func (a *app) resolve() error {
	a.server = strings.TrimSpace(a.v.GetString("server"))
	a.db = strings.TrimSpace(a.v.GetString("db"))
	a.user = strings.TrimSpace(a.v.GetString("user"))
	a.timeout = a.v.GetDuration("timeout")
	a.retries = a.v.GetInt("retries")

	l, err := logger.New(&logger.LoggerConfig{
		ServiceName:  "scorekeeper",
		Env:          "dev",
		Level:        a.v.GetString("log-level"),
		Format:       "console",
		OutputTarget: "stderr",
	})
	if err != nil {
		return err
	}
	a.log = l
	return nil
}

// openStore picks the SQLite file when --db is set and the server otherwise, wrapped with retries.
func (a *app) openStore(ctx context.Context) (repository.StatEventStore, func() error, error) {
	nop := func() error { return nil }
	var (
		store  repository.StatEventStore
		closer = nop
	)
	switch {
	case a.db != "":
		s, err := sqlite.Open(ctx, a.db)
		if err != nil {
			return nil, nop, err
		}
		store, closer = s, s.Close
	case a.server != "":
		c, err := remote.New(a.server, remote.WithLogger(a.log))
		if err != nil {
			return nil, nop, err
		}
		store = c
	default:
		return nil, nop, errors.New("set --server or --db (or SCOREKEEPER_SERVER / SCOREKEEPER_DB)")
	}

	retry := config.DefaultRetryConfig()
	retry.MaxAttempts = a.retries
	return repository.WithRetry(store, retry, a.log), closer, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scorekeeper", version)
		},
	}
}
