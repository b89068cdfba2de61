package access

import (
	"encoding/json"
	"strings"
)

// Role is a user's resolved permission level inside a project.
// The zero value is RoleNone (no relation to the project).
type Role int

const (
	RoleNone Role = iota
	RoleUnknown
	RoleViewer
	RoleMember
	RoleAdmin
	RoleOwner
)

// Role names as stored in team_members.role and sent over the wire
const (
	NameViewer = "viewer"
	NameMember = "member"
	NameAdmin  = "admin"
	NameOwner  = "owner"
)

// ParseRole maps a stored role string to a Role. Matching ignores case and
// surrounding whitespace. Anything unrecognised becomes RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case NameViewer:
		return RoleViewer
	case NameMember:
		return RoleMember
	case NameAdmin:
		return RoleAdmin
	case NameOwner:
		return RoleOwner
	default:
		return RoleUnknown
	}
}

// Rank orders roles: viewer(0) < member(1) < admin(2) < owner(3).
// None and Unknown rank -1 and never satisfy a minimum.
func (r Role) Rank() int {
	switch r {
	case RoleViewer:
		return 0
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether r meets the minimum role min.
func (r Role) AtLeast(min Role) bool {
	if r == RoleNone || r.Rank() < 0 || min.Rank() < 0 {
		return false
	}
	return r.Rank() >= min.Rank()
}

// IsResolved reports whether r is one of the four known roles.
func (r Role) IsResolved() bool {
	return r.Rank() >= 0
}

func (r Role) String() string {
	switch r {
	case RoleNone:
		return ""
	case RoleViewer:
		return NameViewer
	case RoleMember:
		return NameMember
	case RoleAdmin:
		return NameAdmin
	case RoleOwner:
		return NameOwner
	default:
		return "unknown"
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleNone {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// AssignableTeamRole reports whether s may be stored on a team membership.
// Ownership comes from projects.owner_id only, so "owner" is not assignable.
func AssignableTeamRole(s string) bool {
	switch ParseRole(s) {
	case RoleViewer, RoleMember, RoleAdmin:
		return true
	default:
		return false
	}
}
