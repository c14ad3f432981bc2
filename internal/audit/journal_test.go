package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/models"
	"github.com/fentz26/planline/internal/task"
)

type fakeWriter struct {
	written []models.JournalEntry
	err     error
}

func (w *fakeWriter) WriteJournal(_ context.Context, entries []models.JournalEntry) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, entries...)
	return nil
}

func TestJournalRecordsManagerOperations(t *testing.T) {
	j := NewJournal("p1")
	m := task.NewManager(task.WithCalendar(calendar.AllDays()), task.WithRecorder(j))

	a, err := m.CreateTask("a", calendar.Day(2024, time.January, 1), calendar.Days(2))
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := m.AddDependency(a.ID(), a.ID(), task.FinishStart, 0, task.Strong); err == nil {
		t.Fatal("expected self dependency to be rejected")
	}

	pending := j.Pending()
	if len(pending) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(pending))
	}
	if pending[0].ProjectID != "p1" || pending[0].TaskID != a.ID() || !pending[0].Succeeded() {
		t.Errorf("unexpected create entry %+v", pending[0])
	}
	if pending[1].Succeeded() {
		t.Errorf("rejected operation recorded as ok: %+v", pending[1])
	}
	if pending[0].InputsHash == "" || pending[0].ID == "" {
		t.Error("entries should carry an ID and an inputs hash")
	}
}

func TestJournalFlush(t *testing.T) {
	j := NewJournal("p1")
	j.Record("create", map[string]any{"name": "a"}, models.OutcomeOK, 1)

	failing := &fakeWriter{err: errors.New("disk full")}
	if err := j.Flush(context.Background(), failing); err == nil {
		t.Fatal("expected flush error")
	}
	if len(j.Pending()) != 1 {
		t.Error("entries should stay buffered after a failed flush")
	}

	w := &fakeWriter{}
	if err := j.Flush(context.Background(), w); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(w.written) != 1 || len(j.Pending()) != 0 {
		t.Errorf("Expected 1 written and none pending, got %d and %d", len(w.written), len(j.Pending()))
	}
	if w.written[0].Details != `{"name":"a"}` {
		t.Errorf("unexpected details %q", w.written[0].Details)
	}
}

func TestHashInputsStable(t *testing.T) {
	a := hashInputs(map[string]int{"x": 1, "y": 2})
	b := hashInputs(map[string]int{"y": 2, "x": 1})
	if a != b {
		t.Error("hash should not depend on map insertion order")
	}
	if hashInputs(func() {}) != "hash_error" {
		t.Error("unmarshalable inputs should hash to hash_error")
	}
}
