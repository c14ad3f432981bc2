// Package models defines the persisted records of a planline workspace that
// live outside the scheduling core.
package models

import "time"

// Project is one schedule stored in the workspace database.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NextID    int       `json:"next_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JournalEntry records one operation applied to a project, for audit.
type JournalEntry struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     int       `json:"task_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Succeeded reports whether the recorded operation was applied.
func (e JournalEntry) Succeeded() bool { return e.Outcome == OutcomeOK }

// OutcomeOK is the outcome recorded for applied operations.
const OutcomeOK = "ok"
