package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
)

var criticalCmd = &cobra.Command{
	Use:   "critical",
	Short: "Show the critical path and the project span",
	Args:  cobra.NoArgs,
	RunE:  runCritical,
}

func runCritical(cmd *cobra.Command, args []string) error {
	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		mgr := svc.Manager()
		out := cmd.OutOrStdout()
		if mgr.Len() == 0 {
			fmt.Fprintln(out, "No tasks found")
			return nil
		}

		end := mgr.ProjectEnd().AddDate(0, 0, -1)
		fmt.Fprintf(out, "Project %s: %s → %s\n", svc.Project().Name,
			mgr.ProjectStart().Format(time.DateOnly), end.Format(time.DateOnly))

		path := mgr.CriticalPath()
		if len(path) == 0 {
			fmt.Fprintln(out, "No critical tasks")
			return nil
		}
		fmt.Fprintln(out, "Critical path:")
		for _, id := range path {
			t, err := mgr.Task(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  #%-4d %-30s %s → %s\n", id, t.Name(),
				t.Start().Format(time.DateOnly), t.DisplayEnd().Format(time.DateOnly))
		}
		return nil
	})
}
