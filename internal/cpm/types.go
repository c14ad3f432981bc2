package cpm

import "time"

// Relation is the constraint a link places between its endpoints.
type Relation int

const (
	FinishStart Relation = iota + 1
	StartStart
	FinishFinish
	StartFinish
)

// Node is a scheduled activity. Start and End are whole days, End exclusive.
type Node struct {
	ID    int
	Start time.Time
	End   time.Time
	Days  int // working days between Start and End
}

// Link constrains To relative to From. Lag is in calendar days.
type Link struct {
	From     int
	To       int
	Relation Relation
	Lag      int
}

// Result holds the complete critical path analysis.
type Result struct {
	Tasks        map[int]*Schedule
	CriticalPath []int // critical node IDs in topological order
	TopoOrder    []int
	ProjectStart time.Time
	ProjectEnd   time.Time
}

// Schedule holds the scheduling info for a single node.
type Schedule struct {
	ID         int
	ES, EF     time.Time // earliest start/finish
	LS, LF     time.Time // latest start/finish
	Slack      int       // working days
	IsCritical bool
}
