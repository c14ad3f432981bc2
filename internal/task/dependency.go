package task

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/planline/internal/cpm"
)

// Type is the temporal constraint a dependency places on its dependant.
type Type int

const (
	FinishStart Type = iota + 1
	StartStart
	FinishFinish
	StartFinish
)

var typeNames = map[Type]string{
	FinishStart:  "FS",
	StartStart:   "SS",
	FinishFinish: "FF",
	StartFinish:  "SF",
}

// LookupType resolves a user-supplied type name ("FS", "SS", "FF", "SF",
// case-insensitive) and rejects anything else.
func LookupType(s string) (Type, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown dependency type %q: %w", s, ErrInvalidDependency)
}

// ParseType decodes a stored name or code; anything else is FinishStart.
func ParseType(s string) Type {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Type(n).valid() {
		return Type(n)
	}
	return FinishStart
}

func (t Type) valid() bool { return t >= FinishStart && t <= StartFinish }

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return typeNames[FinishStart]
}

// Code returns the persisted value.
func (t Type) Code() int {
	if !t.valid() {
		return int(FinishStart)
	}
	return int(t)
}

func (t Type) relation() cpm.Relation { return cpm.Relation(t.Code()) }

// Hardness controls how tightly a dependant follows its bound.
type Hardness int

const (
	// Strong pins the dependant's start to the bound.
	Strong Hardness = iota
	// Rubber only forbids starting before the bound.
	Rubber
)

func (h Hardness) String() string {
	if h == Rubber {
		return "rubber"
	}
	return "strong"
}

// LookupHardness resolves "strong" or "rubber" (case-insensitive) and
// rejects anything else.
func LookupHardness(s string) (Hardness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return Strong, nil
	case "rubber":
		return Rubber, nil
	}
	return Strong, fmt.Errorf("unknown dependency hardness %q: %w", s, ErrInvalidDependency)
}

// ParseHardness decodes a stored hardness; anything else is Strong.
func ParseHardness(s string) Hardness {
	if strings.EqualFold(strings.TrimSpace(s), "rubber") {
		return Rubber
	}
	return Strong
}

// Dependency is a directed edge from the dependee (predecessor) to the dependant (successor).
type Dependency struct {
	Dependee  int      `json:"dependee"`
	Dependant int      `json:"dependant"`
	Type      Type     `json:"type"`
	Lag       int      `json:"lag"` // calendar days, may be negative
	Hardness  Hardness `json:"hardness"`
}

func (d Dependency) key() [2]int { return [2]int{d.Dependee, d.Dependant} }

// Other returns the endpoint of d that is not id.
func (d Dependency) Other(id int) int {
	if d.Dependee == id {
		return d.Dependant
	}
	return d.Dependee
}
