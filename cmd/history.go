package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lequal/sonarqube-verify/internal/config"
	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/internal/services"
)

const defaultHistoryLimit = 20

func NewHistoryCommand(cfg *config.Configuration) *cobra.Command {
	var (
		expression string
		limit      int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Example: `  sonarqube-verify history --filter "flow = 'compose' and failures > 0"
  sonarqube-verify history --filter "started >= '2026-10-01' and duration > 5m"
  sonarqube-verify history --filter "image ~ /lequal\/sonarqube:8\..*/"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listHistory(cmd.Context(), cfg, expression, limit, verbose, cmd.OutOrStdout())
		},
	}

	registerHistoryPathFlag(cmd.Flags(), cfg)
	cmd.Flags().StringVar(&expression, "filter", "", "filter expression on flow, fixture, image, status, started, finished, duration, failures and passed")
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of runs, 0 for all")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the checks of each run")

	return cmd
}

func listHistory(ctx context.Context, cfg *config.Configuration, expression string, limit int, verbose bool, out io.Writer) error {
	s, err := openHistory(ctx, cfg.History.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := services.NewHistoryService(s).List(ctx, expression, limit)
	if err != nil {
		return err
	}
	printRuns(out, runs, verbose)
	return nil
}

func printRuns(out io.Writer, runs []models.Run, verbose bool) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no run recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tFLOW\tFIXTURE\tSTATUS\tFAILURES\tDURATION\tID")
	for _, r := range runs {
		status := passLabel(r.Status.Value())
		if r.Status != models.RunStatusPassed {
			status = failLabel(r.Status.Value())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Flow, r.Fixture, status,
			strconv.Itoa(r.Failures()), r.Duration().Round(time.Second), r.ID)
		if !verbose {
			continue
		}
		for _, c := range r.Checks {
			mark := passLabel("PASS")
			if !c.Passed {
				mark = failLabel("FAIL")
			}
			fmt.Fprintf(w, "\t  %s %s\t%s\t\t\t\t\n", mark, c.Name, c.Message)
		}
	}
	_ = w.Flush()
}
