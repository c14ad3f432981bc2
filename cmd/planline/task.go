package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/task"
	"github.com/fentz26/planline/internal/tui"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in hierarchy order",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskSetCmd = &cobra.Command{
	Use:   "set [task-id]",
	Short: "Change task attributes",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSet,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id] [parent-id|root]",
	Short: "Nest a task under another, or make it a root task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task without nested tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var (
	taskStart    string
	taskDuration string
	taskParent   int

	setName        string
	setStart       string
	setEnd         string
	setDuration    string
	setShift       int
	setMilestone   bool
	setCompletion  int
	setPriority    string
	setRole        string
	setNotes       string
	setThird       string
	setThirdKind   string
	setFixDuration bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskSetCmd, taskMoveCmd, taskRmCmd)

	taskAddCmd.Flags().StringVar(&taskStart, "start", "", "Start date YYYY-MM-DD (default today)")
	taskAddCmd.Flags().StringVar(&taskDuration, "duration", "1d", "Duration, e.g. 5d or 2w")
	taskAddCmd.Flags().IntVar(&taskParent, "parent", 0, "Supertask ID")

	f := taskSetCmd.Flags()
	f.StringVar(&setName, "name", "", "New name")
	f.StringVar(&setStart, "start", "", "Start date YYYY-MM-DD")
	f.StringVar(&setEnd, "end", "", "Exclusive end date YYYY-MM-DD")
	f.StringVar(&setDuration, "duration", "", "Duration, e.g. 5d or 2w")
	f.IntVar(&setShift, "shift", 0, "Move by this many calendar days")
	f.BoolVar(&setMilestone, "milestone", false, "Mark as milestone")
	f.IntVar(&setCompletion, "completion", 0, "Completion percentage 0-100")
	f.StringVar(&setPriority, "priority", "", "Priority (lowest, low, normal, high, highest)")
	f.StringVar(&setRole, "role", "", "Role (e.g. developer, tester)")
	f.StringVar(&setNotes, "notes", "", "Notes")
	f.StringVar(&setThird, "third", "", "Third date YYYY-MM-DD")
	f.StringVar(&setThirdKind, "third-kind", "", "Third date constraint (none, earliest-begin, deadline)")
	f.BoolVar(&setFixDuration, "fix-duration", false, "Keep start and end, derive the duration")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	d, err := calendar.ParseDuration(taskDuration)
	if err != nil {
		return err
	}
	start := calendar.Normalize(time.Now())
	if taskStart != "" {
		if start, err = parseDate(taskStart); err != nil {
			return err
		}
	}

	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		t, err := svc.AddTask(project.TaskSpec{Name: args[0], Start: start, Duration: d, Parent: taskParent})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d %s (%s → %s)\n",
			t.ID(), t.Name(), t.Start().Format(time.DateOnly), t.DisplayEnd().Format(time.DateOnly))
		return nil
	})
}

func runTaskList(cmd *cobra.Command, args []string) error {
	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		rows := tui.Rows(svc.Manager())
		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No tasks found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tDURATION\tDONE\tCRITICAL")
		for _, r := range rows {
			info := r.Task.Info()
			critical := ""
			if info.Critical {
				critical = "*"
			}
			fmt.Fprintf(w, "%d\t%s%s\t%s\t%s\t%s\t%d%%\t%s\n",
				info.ID, strings.Repeat("  ", r.Depth), info.Name,
				info.Start.Format(time.DateOnly), info.DisplayEnd.Format(time.DateOnly),
				info.Duration, info.Completion, critical)
		}
		return w.Flush()
	})
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		t, err := svc.Manager().Task(id)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderTaskDetail(t))
		return nil
	})
}

func runTaskSet(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	patch, err := buildPatch(cmd)
	if err != nil {
		return err
	}
	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		t, err := svc.UpdateTask(id, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task #%d (%s → %s)\n",
			t.ID(), t.Start().Format(time.DateOnly), t.DisplayEnd().Format(time.DateOnly))
		return nil
	})
}

func buildPatch(cmd *cobra.Command) (project.TaskPatch, error) {
	f := cmd.Flags()
	patch := project.TaskPatch{Shift: setShift, FixDuration: setFixDuration}
	if f.Changed("name") {
		patch.Name = &setName
	}
	for _, d := range []struct {
		flag  string
		value string
		dst   **time.Time
	}{
		{"start", setStart, &patch.Start},
		{"end", setEnd, &patch.End},
		{"third", setThird, &patch.Third},
	} {
		if !f.Changed(d.flag) {
			continue
		}
		t, err := parseDate(d.value)
		if err != nil {
			return patch, fmt.Errorf("--%s: %w", d.flag, err)
		}
		*d.dst = &t
	}
	if f.Changed("duration") {
		d, err := calendar.ParseDuration(setDuration)
		if err != nil {
			return patch, err
		}
		patch.Duration = &d
	}
	if f.Changed("milestone") {
		patch.Milestone = &setMilestone
	}
	if f.Changed("completion") {
		patch.Completion = &setCompletion
	}
	if f.Changed("priority") {
		p := task.ParsePriority(setPriority)
		patch.Priority = &p
	}
	if f.Changed("role") {
		r := task.ParseRole(setRole)
		patch.Role = &r
	}
	if f.Changed("notes") {
		patch.Notes = &setNotes
	}
	if f.Changed("third-kind") {
		k, err := parseThirdKind(setThirdKind)
		if err != nil {
			return patch, err
		}
		patch.ThirdConstraint = &k
	}
	return patch, nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	parent := 0
	if args[1] != "root" {
		if parent, err = parseID(args[1]); err != nil {
			return err
		}
	}
	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		if err := svc.Move(id, parent); err != nil {
			return err
		}
		if parent == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Task #%d is now a root task\n", id)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Moved task #%d under #%d\n", id, parent)
		}
		return nil
	})
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withProject(cmd.Context(), true, func(svc *project.Service) error {
		if err := svc.Delete(id); err != nil {
			if errors.Is(err, task.ErrHasNestedTasks) {
				return fmt.Errorf("%w: move or delete its nested tasks first", err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task #%d\n", id)
		return nil
	})
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseThirdKind(s string) (task.ThirdDateConstraint, error) {
	for _, k := range []task.ThirdDateConstraint{task.ThirdNone, task.ThirdEarliestBegin, task.ThirdDeadline} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return task.ThirdNone, fmt.Errorf("invalid third date constraint %q", s)
}
