package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the operation journal of the project",
	Args:  cobra.NoArgs,
	RunE:  runJournal,
}

var (
	journalLimit   int
	journalDetails bool
)

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	journalCmd.Flags().BoolVar(&journalDetails, "details", false, "Include operation inputs")
}

func runJournal(cmd *cobra.Command, args []string) error {
	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		entries, err := svc.Journal(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Journal is empty")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		header := "TIME\tACTION\tTASK\tOUTCOME"
		if journalDetails {
			header += "\tINPUTS"
		}
		fmt.Fprintln(w, header)
		for _, e := range entries {
			taskCol := "-"
			if e.TaskID != 0 {
				taskCol = fmt.Sprintf("#%d", e.TaskID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s", e.Timestamp.Local().Format(time.DateTime), e.Action, taskCol, e.Outcome)
			if journalDetails {
				fmt.Fprintf(w, "\t%s", e.Details)
			}
			fmt.Fprintln(w)
		}
		return w.Flush()
	})
}
