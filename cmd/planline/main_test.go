package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/planline/internal/task"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("planline %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandFlow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	db := filepath.Join(dir, "planline.db")

	if out := run(t, "--db", db, "init", "demo"); !strings.Contains(out, "Created project demo") {
		t.Errorf("unexpected init output %q", out)
	}
	if out := run(t, "--db", db, "-p", "demo", "task", "add", "Design", "--start", "2024-01-01", "--duration", "3d"); !strings.Contains(out, "Created task #1 Design (2024-01-01 → 2024-01-03)") {
		t.Errorf("unexpected task add output %q", out)
	}
	run(t, "--db", db, "-p", "demo", "task", "add", "Build", "--start", "2024-01-01", "--duration", "1d")

	if out := run(t, "--db", db, "-p", "demo", "dep", "add", "1", "#2"); !strings.Contains(out, "#2 now starts 2024-01-04") {
		t.Errorf("unexpected dep add output %q", out)
	}

	out := run(t, "--db", db, "-p", "demo", "task", "list")
	for _, want := range []string{"Design", "Build", "2024-01-04"} {
		if !strings.Contains(out, want) {
			t.Errorf("task list missing %q:\n%s", want, out)
		}
	}

	out = run(t, "--db", db, "-p", "demo", "critical")
	if !strings.Contains(out, "2024-01-01 → 2024-01-04") || !strings.Contains(out, "Critical path:") {
		t.Errorf("unexpected critical output:\n%s", out)
	}

	out = run(t, "--db", db, "-p", "demo", "journal")
	if !strings.Contains(out, "link") || !strings.Contains(out, "create") {
		t.Errorf("journal should list create and link:\n%s", out)
	}

	if out := run(t, "--db", db, "projects"); !strings.Contains(out, "demo") {
		t.Errorf("projects should list demo:\n%s", out)
	}

	rootCmd.SetArgs([]string{"--db", db, "-p", "demo", "dep", "add", "2", "1", "--type", "XY"})
	if err := rootCmd.Execute(); !errors.Is(err, task.ErrInvalidDependency) {
		t.Errorf("expected ErrInvalidDependency for an unknown type, got %v", err)
	}
	depType = "FS"
}

func TestParseHelpers(t *testing.T) {
	if id, err := parseID("#12"); err != nil || id != 12 {
		t.Errorf("parseID(#12) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "x", "0", "-3"} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
	if _, err := parseDate("2024-13-01"); err == nil {
		t.Error("parseDate should reject an invalid month")
	}
	if k, err := parseThirdKind("Deadline"); err != nil || k != task.ThirdDeadline {
		t.Errorf("parseThirdKind(Deadline) = %v, %v", k, err)
	}
	if _, err := parseThirdKind("soon"); err == nil {
		t.Error("parseThirdKind should reject unknown kinds")
	}
}
