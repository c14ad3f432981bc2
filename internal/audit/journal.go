// Package audit keeps the operation journal of a planline project.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/planline/internal/models"
)

// Writer persists journal entries.
type Writer interface {
	WriteJournal(ctx context.Context, entries []models.JournalEntry) error
}

// Journal buffers one entry per manager operation until it is flushed.
// It satisfies task.Recorder.
type Journal struct {
	projectID string

	mu      sync.Mutex
	pending []models.JournalEntry
	now     func() time.Time
}

// NewJournal creates a journal for the given project.
func NewJournal(projectID string) *Journal {
	return &Journal{projectID: projectID, now: time.Now}
}

// Record buffers an entry for a state-mutating action.
func (j *Journal) Record(action string, inputs any, outcome string, taskID int) {
	entry := models.JournalEntry{
		ID:         uuid.New().String(),
		ProjectID:  j.projectID,
		Action:     action,
		InputsHash: hashInputs(inputs),
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details(inputs),
		Timestamp:  j.now().UTC(),
	}

	j.mu.Lock()
	j.pending = append(j.pending, entry)
	j.mu.Unlock()
}

// Pending returns a copy of the entries not yet flushed.
func (j *Journal) Pending() []models.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]models.JournalEntry(nil), j.pending...)
}

// Reset drops the buffered entries.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.pending = nil
	j.mu.Unlock()
}

// Flush writes the buffered entries. On failure they stay buffered.
func (j *Journal) Flush(ctx context.Context, w Writer) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.pending) == 0 {
		return nil
	}
	if err := w.WriteJournal(ctx, j.pending); err != nil {
		return err
	}
	j.pending = nil
	return nil
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func details(inputs any) string {
	if inputs == nil {
		return ""
	}
	data, err := json.Marshal(inputs)
	if err != nil {
		return ""
	}
	return string(data)
}
