package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/task"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependencies between tasks",
}

var depAddCmd = &cobra.Command{
	Use:   "add [dependee-id] [dependant-id]",
	Short: "Make a task depend on another",
	Args:  cobra.ExactArgs(2),
	RunE:  runDepAdd,
}

var depRmCmd = &cobra.Command{
	Use:   "rm [dependee-id] [dependant-id]",
	Short: "Remove a dependency",
	Args:  cobra.ExactArgs(2),
	RunE:  runDepRm,
}

var depListCmd = &cobra.Command{
	Use:   "list [task-id]",
	Short: "List dependencies, optionally only those touching a task",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDepList,
}

var (
	depType     string
	depLag      int
	depHardness string
)

func init() {
	depCmd.AddCommand(depAddCmd, depRmCmd, depListCmd)

	depAddCmd.Flags().StringVar(&depType, "type", "FS", "Dependency type (FS, SS, FF, SF)")
	depAddCmd.Flags().IntVar(&depLag, "lag", 0, "Lag in calendar days, may be negative")
	depAddCmd.Flags().StringVar(&depHardness, "hardness", "", "strong or rubber (default scheduling.default_hardness)")
}

func runDepAdd(cmd *cobra.Command, args []string) error {
	dependee, dependant, err := parsePair(args)
	if err != nil {
		return err
	}
	var hardness *task.Hardness
	if depHardness != "" {
		h, err := task.LookupHardness(depHardness)
		if err != nil {
			return err
		}
		hardness = &h
	}
	typ, err := task.LookupType(depType)
	if err != nil {
		return err
	}

	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		if err := svc.Link(dependee, dependant, typ, depLag, hardness); err != nil {
			return err
		}
		t, _ := svc.Manager().Task(dependant)
		fmt.Fprintf(cmd.OutOrStdout(), "Linked #%d -> #%d (%s); #%d now starts %s\n",
			dependee, dependant, typ, dependant, t.Start().Format(time.DateOnly))
		return nil
	})
}

func runDepRm(cmd *cobra.Command, args []string) error {
	dependee, dependant, err := parsePair(args)
	if err != nil {
		return err
	}
	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		if err := svc.Unlink(dependee, dependant); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed dependency #%d -> #%d\n", dependee, dependant)
		return nil
	})
}

func runDepList(cmd *cobra.Command, args []string) error {
	filter := 0
	if len(args) == 1 {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		filter = id
	}

	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		mgr := svc.Manager()
		deps := mgr.Dependencies()
		if filter != 0 {
			t, err := mgr.Task(filter)
			if err != nil {
				return err
			}
			deps = t.Dependencies()
		}

		out := cmd.OutOrStdout()
		if deps.Len() == 0 {
			fmt.Fprintln(out, "No dependencies found")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DEPENDEE\tDEPENDANT\tTYPE\tLAG\tHARDNESS")
		for _, d := range deps.All() {
			fmt.Fprintf(w, "#%d\t#%d\t%s\t%d\t%s\n", d.Dependee, d.Dependant, d.Type, d.Lag, d.Hardness)
		}
		return w.Flush()
	})
}

func parsePair(args []string) (int, int, error) {
	a, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
