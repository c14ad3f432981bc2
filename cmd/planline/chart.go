package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/tui"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a Gantt chart of the project",
	Args:  cobra.NoArgs,
	RunE:  runChart,
}

var (
	chartFrom  string
	chartTo    string
	chartDays  int
	chartLabel int
)

func init() {
	chartCmd.Flags().StringVar(&chartFrom, "from", "", "First rendered day YYYY-MM-DD (default project start)")
	chartCmd.Flags().StringVar(&chartTo, "to", "", "Exclusive last day YYYY-MM-DD (default project end)")
	chartCmd.Flags().IntVar(&chartDays, "days", 90, "Maximum number of day columns")
	chartCmd.Flags().IntVar(&chartLabel, "label-width", 28, "Width of the task name column")
}

func runChart(cmd *cobra.Command, args []string) error {
	opts := tui.ChartOptions{MaxDays: chartDays, LabelWidth: chartLabel}
	var err error
	if chartFrom != "" {
		if opts.From, err = parseDate(chartFrom); err != nil {
			return err
		}
	}
	if chartTo != "" {
		if opts.To, err = parseDate(chartTo); err != nil {
			return err
		}
	}

	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderChart(svc.Manager(), opts))
		return nil
	})
}
