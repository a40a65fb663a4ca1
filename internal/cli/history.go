package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doridoridoriand/fastping/internal/history"
)

var errNoHistory = errors.New("no history database configured (set --history or history.path)")

func newHistoryCommand() *cobra.Command {
	var (
		since time.Duration
		prune time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show recorded loss and average summaries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return errNoHistory
			}
			db, err := history.Open(cfg.History.Path, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer db.Close()

			if prune > 0 {
				n, err := db.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records\n", n)
				return nil
			}

			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			records, err := db.Query(target, from)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.At.Local().Format(time.RFC3339), r.Target, r.Display())
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", time.Hour, "only show records newer than this (0 for all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete records older than this instead of listing")
	return cmd
}
