package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidsound/internal/bootstrap"
	"vidsound/internal/domain"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, false, func(svc *bootstrap.Services) error {
				if svc.Runs == nil {
					return fmt.Errorf("%w: set DATABASE_URL", domain.ErrStoreDisabled)
				}
				runs, err := svc.Runs.ListRecent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func renderRuns(runs []domain.GenerationRun) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := run.ArtifactURL
		if result == "" {
			result = run.Error
		}
		rows = append(rows, []string{
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Outcome,
			strconv.Itoa(run.Attempts),
			run.Elapsed.Round(time.Millisecond).String(),
			run.VideoURL,
			result,
		})
	}
	return renderTable(
		[]string{"Created", "Outcome", "Attempts", "Elapsed", "Video", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}
