package task

import "strings"

// Priority is the ordered importance of a task. The persisted code is
// independent of the declaration order.
type Priority int

const (
	PriorityLowest Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityHighest
)

// DefaultPriority is assigned to new tasks and to unknown persisted codes.
const DefaultPriority = PriorityNormal

var priorityCodes = map[Priority]string{
	PriorityLowest:  "3",
	PriorityLow:     "0",
	PriorityNormal:  "1",
	PriorityHigh:    "2",
	PriorityHighest: "4",
}

var priorityNames = map[Priority]string{
	PriorityLowest:  "LOWEST",
	PriorityLow:     "LOW",
	PriorityNormal:  "NORMAL",
	PriorityHigh:    "HIGH",
	PriorityHighest: "HIGHEST",
}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLowest, PriorityLow, PriorityNormal, PriorityHigh, PriorityHighest}
}

// PriorityFromCode decodes a persisted code, falling back to DefaultPriority.
func PriorityFromCode(code string) Priority {
	for p, c := range priorityCodes {
		if c == code {
			return p
		}
	}
	return DefaultPriority
}

// PriorityFromOrdinal decodes a legacy ordinal value, falling back to DefaultPriority.
func PriorityFromOrdinal(v int) Priority {
	if p := Priority(v); p.valid() {
		return p
	}
	return DefaultPriority
}

// ParsePriority accepts a name ("high") or a persisted code ("2").
func ParsePriority(s string) Priority {
	s = strings.ToUpper(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p
		}
	}
	return PriorityFromCode(s)
}

func (p Priority) valid() bool { return p >= PriorityLowest && p <= PriorityHighest }

// Code returns the persisted value.
func (p Priority) Code() string {
	if c, ok := priorityCodes[p]; ok {
		return c
	}
	return priorityCodes[DefaultPriority]
}

func (p Priority) String() string {
	if n, ok := priorityNames[p]; ok {
		return n
	}
	return priorityNames[DefaultPriority]
}

// Lower returns the lower-case name.
func (p Priority) Lower() string { return strings.ToLower(p.String()) }

// I18nKey returns the message key used by translation tables.
func (p Priority) I18nKey() string { return "priority." + p.Lower() }

// IconPath returns the resource path of the priority icon.
func (p Priority) IconPath() string { return "/icons/task_" + p.Lower() + ".gif" }

func (p Priority) MarshalText() ([]byte, error) { return []byte(p.Code()), nil }

// UnmarshalText never fails: unknown codes decode to DefaultPriority.
func (p *Priority) UnmarshalText(b []byte) error {
	*p = PriorityFromCode(string(b))
	return nil
}
