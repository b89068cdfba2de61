package access

import (
	"context"
	"fmt"
	"strings"
)

// Project is the slice of a project record the resolver needs.
type Project struct {
	ID      string
	OwnerID string
	TeamID  *string
}

// Task is the slice of a task record the task guard needs.
type Task struct {
	ID         string
	ProjectID  string
	ReporterID string
	AssigneeID *string
}

// MembershipLookup finds the stored role of a user in a team.
// found is false when the user has no membership row.
type MembershipLookup interface {
	TeamRole(ctx context.Context, teamID, userID string) (role string, found bool, err error)
}

// MembershipLookupFunc adapts a function to MembershipLookup.
type MembershipLookupFunc func(ctx context.Context, teamID, userID string) (string, bool, error)

func (f MembershipLookupFunc) TeamRole(ctx context.Context, teamID, userID string) (string, bool, error) {
	return f(ctx, teamID, userID)
}

// MembershipResolver derives a user's effective role in a project from
// ownership and team membership.
type MembershipResolver struct {
	members MembershipLookup
}

func NewMembershipResolver(members MembershipLookup) *MembershipResolver {
	return &MembershipResolver{members: members}
}

// Resolve returns the user's role in the project, or RoleNone.
//
// Ownership is checked first and always wins over a team row for the same
// user. The project must already be loaded; existence is not checked here.
func (r *MembershipResolver) Resolve(ctx context.Context, project *Project, userID string) (Role, error) {
	if project == nil || userID == "" {
		return RoleNone, nil
	}

	if project.OwnerID == userID {
		return RoleOwner, nil
	}

	if project.TeamID == nil || *project.TeamID == "" || r.members == nil {
		return RoleNone, nil
	}

	stored, found, err := r.members.TeamRole(ctx, *project.TeamID, userID)
	if err != nil {
		return RoleNone, fmt.Errorf("lookup team role: %w", err)
	}
	if !found {
		return RoleNone, nil
	}
	return StoredTeamRole(stored), nil
}

// StoredTeamRole maps a stored team role. Empty defaults to member; a team row
// cannot grant ownership, so "owner" is capped at admin.
func StoredTeamRole(stored string) Role {
	if strings.TrimSpace(stored) == "" {
		return RoleMember
	}
	role := ParseRole(stored)
	if role == RoleOwner {
		return RoleAdmin
	}
	return role
}
