package task

import "strings"

// Role classifies the kind of work a task represents.
type Role int

const (
	RoleUndefined Role = iota
	RoleProjectManager
	RoleDeveloper
	RoleDocWriter
	RoleTester
	RoleGraphicDesigner
	RoleDocTranslator
	RolePackager
	RoleAnalyst
	RoleWebDesigner
	RoleNoSpecificRole
)

// DefaultRole is assigned to new tasks and to unknown persisted codes.
const DefaultRole = RoleUndefined

var roleTable = []struct {
	role Role
	code string
	name string
}{
	{RoleUndefined, "0", "UNDEFINED"},
	{RoleProjectManager, "1", "PROJECT_MANAGER"},
	{RoleDeveloper, "2", "DEVELOPER"},
	{RoleDocWriter, "3", "DOC_WRITER"},
	{RoleTester, "4", "TESTER"},
	{RoleGraphicDesigner, "5", "GRAPHIC_DESIGNER"},
	{RoleDocTranslator, "6", "DOC_TRANSLATOR"},
	{RolePackager, "7", "PACKAGER"},
	{RoleAnalyst, "8", "ANALYST"},
	{RoleWebDesigner, "9", "WEB_DESIGNER"},
	{RoleNoSpecificRole, "10", "NO_SPECIFIC_ROLE"},
}

// Roles returns every defined role.
func Roles() []Role {
	out := make([]Role, len(roleTable))
	for i, r := range roleTable {
		out[i] = r.role
	}
	return out
}

// RoleFromCode decodes a persisted code, falling back to DefaultRole.
func RoleFromCode(code string) Role {
	for _, r := range roleTable {
		if r.code == code {
			return r.role
		}
	}
	return DefaultRole
}

// RoleFromOrdinal decodes a legacy ordinal value, falling back to DefaultRole.
func RoleFromOrdinal(v int) Role {
	if v >= 0 && v < len(roleTable) {
		return roleTable[v].role
	}
	return DefaultRole
}

// ParseRole accepts a name ("tester") or a persisted code ("4").
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, r := range roleTable {
		if r.name == s {
			return r.role
		}
	}
	return RoleFromCode(s)
}

func (r Role) entry() int {
	if r >= 0 && int(r) < len(roleTable) {
		return int(r)
	}
	return int(DefaultRole)
}

// Code returns the persisted value.
func (r Role) Code() string { return roleTable[r.entry()].code }

func (r Role) String() string { return roleTable[r.entry()].name }

// Lower returns the lower-case name.
func (r Role) Lower() string { return strings.ToLower(r.String()) }

// I18nKey returns the message key used by translation tables.
func (r Role) I18nKey() string { return "role." + r.Lower() }

func (r Role) MarshalText() ([]byte, error) { return []byte(r.Code()), nil }

// UnmarshalText never fails: unknown codes decode to DefaultRole.
func (r *Role) UnmarshalText(b []byte) error {
	*r = RoleFromCode(string(b))
	return nil
}
