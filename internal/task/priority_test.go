package task

import (
	"errors"
	"strings"
	"testing"
)

func TestPriorityCodeRoundTrip(t *testing.T) {
	for _, p := range Priorities() {
		if got := PriorityFromCode(p.Code()); got != p {
			t.Errorf("priority %s: code %q decoded to %s", p, p.Code(), got)
		}
		text, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText failed: %v", err)
		}
		var back Priority
		if err := back.UnmarshalText(text); err != nil || back != p {
			t.Errorf("priority %s: text round trip gave %s (%v)", p, back, err)
		}
	}
}

func TestPriorityCodes(t *testing.T) {
	tests := []struct {
		code string
		want Priority
	}{
		{"3", PriorityLowest},
		{"0", PriorityLow},
		{"1", PriorityNormal},
		{"2", PriorityHigh},
		{"4", PriorityHighest},
		{"5", PriorityNormal},
		{"", PriorityNormal},
		{"HIGH", PriorityNormal},
	}
	for _, tt := range tests {
		if got := PriorityFromCode(tt.code); got != tt.want {
			t.Errorf("PriorityFromCode(%q): expected %s, got %s", tt.code, tt.want, got)
		}
	}

	var p Priority
	if err := p.UnmarshalText([]byte("legacy")); err != nil || p != PriorityNormal {
		t.Errorf("unknown code should decode to NORMAL without error, got %s (%v)", p, err)
	}
}

func TestPriorityOrderAndLookups(t *testing.T) {
	ps := Priorities()
	for i := 1; i < len(ps); i++ {
		if ps[i-1] >= ps[i] {
			t.Errorf("priorities not ordered: %v", ps)
		}
	}
	if PriorityFromOrdinal(4) != PriorityHighest || PriorityFromOrdinal(42) != PriorityNormal {
		t.Error("ordinal decode should map known ordinals and fall back to NORMAL")
	}
	if ParsePriority("highest") != PriorityHighest || ParsePriority("nope") != PriorityNormal {
		t.Error("ParsePriority should accept names case-insensitively")
	}
	if PriorityHigh.I18nKey() != "priority.high" {
		t.Errorf("unexpected i18n key %s", PriorityHigh.I18nKey())
	}
	if PriorityLowest.IconPath() != "/icons/task_lowest.gif" {
		t.Errorf("unexpected icon path %s", PriorityLowest.IconPath())
	}
}

func TestRoleCodes(t *testing.T) {
	for _, r := range Roles() {
		if got := RoleFromCode(r.Code()); got != r {
			t.Errorf("role %s: code %q decoded to %s", r, r.Code(), got)
		}
	}
	if RoleFromCode("10") != RoleNoSpecificRole {
		t.Error("code 10 should be NO_SPECIFIC_ROLE")
	}
	if RoleFromCode("99") != RoleUndefined || RoleFromOrdinal(-1) != RoleUndefined {
		t.Error("unknown role codes should decode to UNDEFINED")
	}
	if ParseRole("tester") != RoleTester {
		t.Error("ParseRole should accept names case-insensitively")
	}
	if RoleDocWriter.I18nKey() != "role.doc_writer" {
		t.Errorf("unexpected i18n key %s", RoleDocWriter.I18nKey())
	}

	var r Role
	if err := r.UnmarshalText([]byte("x")); err != nil || r != RoleUndefined {
		t.Errorf("unknown code should decode to UNDEFINED without error, got %s (%v)", r, err)
	}
}

func TestDependencyTypeCodes(t *testing.T) {
	for _, typ := range []Type{FinishStart, StartStart, FinishFinish, StartFinish} {
		if ParseType(typ.String()) != typ {
			t.Errorf("type %s does not round trip by name", typ)
		}
	}
	if ParseType("3") != FinishFinish || ParseType("9") != FinishStart {
		t.Error("ParseType should decode codes and fall back to FS")
	}
	if ParseHardness("Rubber") != Rubber || ParseHardness("") != Strong {
		t.Error("ParseHardness should default to strong")
	}
}

func TestLookupTypeAndHardness(t *testing.T) {
	for _, typ := range []Type{FinishStart, StartStart, FinishFinish, StartFinish} {
		got, err := LookupType(strings.ToLower(typ.String()))
		if err != nil || got != typ {
			t.Errorf("LookupType(%s) = %v, %v", typ, got, err)
		}
	}
	for _, bad := range []string{"XY", "", "1"} {
		if _, err := LookupType(bad); !errors.Is(err, ErrInvalidDependency) {
			t.Errorf("LookupType(%q): expected ErrInvalidDependency, got %v", bad, err)
		}
	}

	if h, err := LookupHardness(" Rubber "); err != nil || h != Rubber {
		t.Errorf("LookupHardness(Rubber) = %v, %v", h, err)
	}
	for _, bad := range []string{"elastic", ""} {
		if _, err := LookupHardness(bad); !errors.Is(err, ErrInvalidDependency) {
			t.Errorf("LookupHardness(%q): expected ErrInvalidDependency, got %v", bad, err)
		}
	}
}
