package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/task"
)

func TestHealthEndpoint_OK(t *testing.T) {
	s := newTestServer(t, 0)

	resp := do(t, s, http.MethodGet, "/health")
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !health.OK || health.DB != "ok" {
		t.Errorf("unexpected health %+v", health)
	}
	if health.Project != "api" {
		t.Errorf("Expected project 'api', got '%s'", health.Project)
	}
}

func TestHealthEndpoint_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, 0)

	resp := do(t, s, http.MethodPost, "/health")
	if resp.Code == http.StatusOK {
		t.Errorf("POST /health should not succeed, got %d", resp.Code)
	}
}

func TestHealthEndpoint_DBError(t *testing.T) {
	st := newTestStore(t)
	svc := newTestService(t, st, "down")
	s := NewServer(svc, "127.0.0.1:0", 0, zaptest.NewLogger(t))

	// Close the store to simulate DB error
	st.Close()

	resp := do(t, s, http.MethodGet, "/health")
	if resp.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.Code)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if health.OK {
		t.Error("Expected health.OK to be false when DB is down")
	}
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	svc := s.service
	a, _ := svc.AddTask(TaskSpec{Name: "a", Start: day(0), Duration: calendar.Days(2)})
	b, _ := svc.AddTask(TaskSpec{Name: "b", Start: day(0), Duration: calendar.Days(1)})
	if err := svc.Link(a.ID(), b.ID(), task.FinishStart, 0, nil); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	resp := do(t, s, http.MethodGet, "/tasks")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var views []TaskView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(views))
	}
	// display end is inclusive
	if views[1].Start != "2024-01-03" || views[1].End != "2024-01-03" || !views[1].Critical {
		t.Errorf("unexpected view %+v", views[1])
	}
	if len(views[1].Dependencies) != 1 || views[1].Dependencies[0].Type != "FS" {
		t.Errorf("unexpected dependencies %+v", views[1].Dependencies)
	}

	resp = do(t, s, http.MethodGet, "/tasks/1")
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/tasks/9"); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
	if resp := do(t, s, http.MethodGet, "/tasks/x"); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}

	resp = do(t, s, http.MethodGet, "/critical")
	var critical CriticalResponse
	if err := json.NewDecoder(resp.Body).Decode(&critical); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(critical.Path) != 2 || critical.Start != "2024-01-01" || critical.End != "2024-01-04" {
		t.Errorf("unexpected critical response %+v", critical)
	}
}

func TestJournalEndpoint(t *testing.T) {
	s := newTestServer(t, 0)
	if _, err := s.service.AddTask(TaskSpec{Name: "a", Start: day(0), Duration: calendar.Days(1)}); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if err := s.service.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	resp := do(t, s, http.MethodGet, "/journal?limit=10")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var entries []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(entries) != 1 || entries[0]["action"] != "create" {
		t.Errorf("unexpected journal %v", entries)
	}

	if resp := do(t, s, http.MethodGet, "/journal?limit=-1"); resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestRateLimit(t *testing.T) {
	// 60 per minute allows a burst of 6
	s := newTestServer(t, 60)

	limited := false
	for i := 0; i < 20; i++ {
		if do(t, s, http.MethodGet, "/health").Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected requests beyond the burst to be rejected")
	}
}

func TestServerShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, 0)

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start after Shutdown should return nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
}

func newTestServer(t *testing.T, requestsPerMin int) *Server {
	t.Helper()
	svc := newTestService(t, newTestStore(t), "api")
	return NewServer(svc, "127.0.0.1:0", requestsPerMin, zaptest.NewLogger(t))
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}
