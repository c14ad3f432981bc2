// Package cpm implements critical path analysis over calendar-aware schedules.
package cpm

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fentz26/planline/internal/calendar"
)

// ErrCycle is returned when the links do not form a DAG.
var ErrCycle = errors.New("schedule graph has a cycle")

// Analyze performs a forward and backward pass over nodes and links.
// A node is critical when its slack is zero or negative.
func Analyze(cal calendar.Calendar, nodes []Node, links []Link) (*Result, error) {
	byID := make(map[int]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	adj := make(map[int][]Link)
	rev := make(map[int][]Link)
	for _, l := range links {
		if _, ok := byID[l.From]; !ok {
			return nil, fmt.Errorf("link %d->%d: unknown node %d", l.From, l.To, l.From)
		}
		if _, ok := byID[l.To]; !ok {
			return nil, fmt.Errorf("link %d->%d: unknown node %d", l.From, l.To, l.To)
		}
		adj[l.From] = append(adj[l.From], l)
		rev[l.To] = append(rev[l.To], l)
	}

	order, err := topoSort(byID, adj, rev)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Tasks:     make(map[int]*Schedule, len(nodes)),
		TopoOrder: order,
	}
	if len(order) == 0 {
		return result, nil
	}

	// Forward pass: compute ES and EF
	for i, id := range order {
		n := byID[id]
		ts := &Schedule{ID: id, ES: calendar.Normalize(n.Start)}
		for _, l := range rev[id] {
			b, err := startBound(cal, l, result.Tasks[l.From], n.Days)
			if err != nil {
				return nil, err
			}
			if b.After(ts.ES) {
				if ts.ES, err = calendar.NextWorkingDay(cal, b); err != nil {
					return nil, err
				}
			}
		}
		if ts.EF, err = calendar.Shift(cal, ts.ES, n.Days); err != nil {
			return nil, err
		}
		result.Tasks[id] = ts

		if i == 0 || ts.ES.Before(result.ProjectStart) {
			result.ProjectStart = ts.ES
		}
		if ts.EF.After(result.ProjectEnd) {
			result.ProjectEnd = ts.EF
		}
	}

	// Backward pass: compute LF and LS in reverse topological order
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		n := byID[id]
		ts := result.Tasks[id]

		ts.LF = result.ProjectEnd
		for _, l := range adj[id] {
			lf, err := finishLimit(cal, l, result.Tasks[l.To], n.Days)
			if err != nil {
				return nil, err
			}
			if lf.Before(ts.LF) {
				ts.LF = lf
			}
		}
		if ts.LS, err = calendar.ShiftBack(cal, ts.LF, n.Days); err != nil {
			return nil, err
		}

		ts.Slack = calendar.Between(cal, ts.ES, ts.LS)
		ts.IsCritical = ts.Slack <= 0
	}

	for _, id := range order {
		if result.Tasks[id].IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	return result, nil
}

// StartBound returns the earliest start that link l allows for a successor of the given length,
// given the predecessor occupies [predStart, predEnd).
func StartBound(cal calendar.Calendar, rel Relation, lag int, predStart, predEnd time.Time, succDays int) (time.Time, error) {
	switch rel {
	case StartStart:
		return calendar.AddDays(predStart, lag)
	case FinishFinish:
		end, err := calendar.AddDays(predEnd, lag)
		if err != nil {
			return time.Time{}, err
		}
		return calendar.ShiftBack(cal, end, succDays)
	case StartFinish:
		end, err := calendar.AddDays(predStart, lag)
		if err != nil {
			return time.Time{}, err
		}
		return calendar.ShiftBack(cal, end, succDays)
	default:
		return calendar.AddDays(predEnd, lag)
	}
}

func startBound(cal calendar.Calendar, l Link, pred *Schedule, succDays int) (time.Time, error) {
	return StartBound(cal, l.Relation, l.Lag, pred.ES, pred.EF, succDays)
}

// finishLimit returns the latest finish of l.From that keeps l.To at its latest dates.
func finishLimit(cal calendar.Calendar, l Link, succ *Schedule, predDays int) (time.Time, error) {
	switch l.Relation {
	case StartStart:
		ls, err := calendar.AddDays(succ.LS, -l.Lag)
		if err != nil {
			return time.Time{}, err
		}
		return calendar.Shift(cal, ls, predDays)
	case FinishFinish:
		return calendar.AddDays(succ.LF, -l.Lag)
	case StartFinish:
		ls, err := calendar.AddDays(succ.LF, -l.Lag)
		if err != nil {
			return time.Time{}, err
		}
		return calendar.Shift(cal, ls, predDays)
	default:
		return calendar.AddDays(succ.LS, -l.Lag)
	}
}

// topoSort performs Kahn's algorithm, lowest ID first among ready nodes.
func topoSort(nodes map[int]Node, adj, rev map[int][]Link) ([]int, error) {
	inDegree := make(map[int]int, len(nodes))
	var queue []int
	for id := range nodes {
		inDegree[id] = len(rev[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Ints(queue)

	order := make([]int, 0, len(nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []int
		for _, l := range adj[node] {
			inDegree[l.To]--
			if inDegree[l.To] == 0 {
				newReady = append(newReady, l.To)
			}
		}
		sort.Ints(newReady)
		queue = append(queue, newReady...)
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("%w (%d of %d nodes sorted)", ErrCycle, len(order), len(nodes))
	}
	return order, nil
}
