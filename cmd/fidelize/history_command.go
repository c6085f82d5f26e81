package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fidelize/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("run history is disabled (HISTORY_PATH is empty)")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			if !cmd.Flags().Changed("limit") {
				limit = cfg.History.Recent
			}
			runs, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rejected := 0
				for _, n := range run.Rejections {
					rejected += n
				}
				review := ""
				if run.ReviewNeeded {
					review = "yes"
				}
				rows = append(rows, []string{
					run.CreatedAt.Local().Format(time.DateTime),
					run.FileName,
					run.Source,
					strconv.Itoa(run.TotalRead),
					strconv.Itoa(run.TotalValid),
					strconv.Itoa(rejected),
					review,
				})
			}

			headers := []string{"When", "File", "Mapping", "Read", "Valid", "Rejected", "Review"}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, 4, 5, 6))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum runs to list")

	return cmd
}
