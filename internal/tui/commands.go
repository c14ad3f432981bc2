package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/task"
)

// ErrUnknownCommand is returned for input that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// Executor runs command-bar input against an open project.
type Executor struct {
	svc *project.Service
	now func() time.Time
}

// NewExecutor creates an executor for svc.
func NewExecutor(svc *project.Service) *Executor {
	return &Executor{svc: svc, now: time.Now}
}

// Execute parses and runs one command line and returns a status message.
func (e *Executor) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	name, args := strings.TrimPrefix(fields[0], "/"), fields[1:]

	switch name {
	case "add":
		return e.add(args)
	case "shift":
		return e.shift(args)
	case "dur":
		return e.duration(args)
	case "done":
		return e.completion(args)
	case "link":
		return e.link(args)
	case "unlink":
		ids, err := intArgs(args, 2, "unlink <dependee> <dependant>")
		if err != nil {
			return "", err
		}
		if err := e.svc.Unlink(ids[0], ids[1]); err != nil {
			return "", err
		}
		return fmt.Sprintf("✓ Unlinked #%d -> #%d", ids[0], ids[1]), nil
	case "move":
		return e.move(args)
	case "rm":
		ids, err := intArgs(args, 1, "rm <id>")
		if err != nil {
			return "", err
		}
		if err := e.svc.Delete(ids[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("✓ Deleted #%d", ids[0]), nil
	case "recalc":
		if err := e.svc.Manager().Recalculate(); err != nil {
			return "", err
		}
		return "✓ Recalculated", nil
	case "save":
		if err := e.svc.Save(ctx); err != nil {
			return "", err
		}
		return "✓ Saved", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// add <name> [duration] [start]
func (e *Executor) add(args []string) (string, error) {
	if len(args) == 0 {
		return "", usage("add <name> [duration] [YYYY-MM-DD]")
	}
	spec := project.TaskSpec{
		Name:     args[0],
		Start:    calendar.Normalize(e.now()),
		Duration: calendar.Days(1),
	}
	if len(args) > 1 {
		d, err := calendar.ParseDuration(args[1])
		if err != nil {
			return "", err
		}
		spec.Duration = d
	}
	if len(args) > 2 {
		start, err := time.Parse(time.DateOnly, args[2])
		if err != nil {
			return "", fmt.Errorf("parse start: %w", err)
		}
		spec.Start = start
	}
	t, err := e.svc.AddTask(spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ Created #%d %s", t.ID(), t.Name()), nil
}

// shift <id> <days>
func (e *Executor) shift(args []string) (string, error) {
	ids, err := intArgs(args, 2, "shift <id> <days>")
	if err != nil {
		return "", err
	}
	t, err := e.svc.UpdateTask(ids[0], project.TaskPatch{Shift: ids[1]})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ #%d now starts %s", t.ID(), t.Start().Format(time.DateOnly)), nil
}

// dur <id> <duration>
func (e *Executor) duration(args []string) (string, error) {
	if len(args) != 2 {
		return "", usage("dur <id> <duration>")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil {
		return "", usage("dur <id> <duration>")
	}
	d, err := calendar.ParseDuration(args[1])
	if err != nil {
		return "", err
	}
	t, err := e.svc.UpdateTask(id, project.TaskPatch{Duration: &d})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ #%d now ends %s", t.ID(), t.DisplayEnd().Format(time.DateOnly)), nil
}

// done <id> [percent]
func (e *Executor) completion(args []string) (string, error) {
	if len(args) == 1 {
		args = append(args, "100")
	}
	ids, err := intArgs(args, 2, "done <id> [percent]")
	if err != nil {
		return "", err
	}
	if _, err := e.svc.UpdateTask(ids[0], project.TaskPatch{Completion: &ids[1]}); err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ #%d is %d%% complete", ids[0], ids[1]), nil
}

// link <dependee> <dependant> [type] [lag] [hardness]
func (e *Executor) link(args []string) (string, error) {
	const help = "link <dependee> <dependant> [FS|SS|FF|SF] [lag] [strong|rubber]"
	if len(args) < 2 || len(args) > 5 {
		return "", usage(help)
	}
	ids, err := intArgs(args[:2], 2, help)
	if err != nil {
		return "", err
	}
	typ := task.FinishStart
	if len(args) > 2 {
		if typ, err = task.LookupType(args[2]); err != nil {
			return "", err
		}
	}
	lag := 0
	if len(args) > 3 {
		if lag, err = strconv.Atoi(args[3]); err != nil {
			return "", usage(help)
		}
	}
	var hardness *task.Hardness
	if len(args) > 4 {
		h, err := task.LookupHardness(args[4])
		if err != nil {
			return "", err
		}
		hardness = &h
	}
	if err := e.svc.Link(ids[0], ids[1], typ, lag, hardness); err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ Linked #%d -> #%d (%s)", ids[0], ids[1], typ), nil
}

// move <id> <parent|root>
func (e *Executor) move(args []string) (string, error) {
	const help = "move <id> <parent|root>"
	if len(args) == 2 && args[1] == "root" {
		args = []string{args[0], "0"}
	}
	ids, err := intArgs(args, 2, help)
	if err != nil {
		return "", err
	}
	if err := e.svc.Move(ids[0], ids[1]); err != nil {
		return "", err
	}
	if ids[1] == 0 {
		return fmt.Sprintf("✓ #%d is now a root task", ids[0]), nil
	}
	return fmt.Sprintf("✓ Moved #%d under #%d", ids[0], ids[1]), nil
}

func intArgs(args []string, n int, help string) ([]int, error) {
	if len(args) != n {
		return nil, usage(help)
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(strings.TrimPrefix(a, "#"))
		if err != nil {
			return nil, usage(help)
		}
		out[i] = v
	}
	return out, nil
}

func usage(help string) error {
	return fmt.Errorf("usage: %s", help)
}
