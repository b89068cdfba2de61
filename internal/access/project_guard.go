package access

// ProjectOperation is an action on a project resource.
type ProjectOperation string

const (
	ProjectRead         ProjectOperation = "read"
	ProjectUpdate       ProjectOperation = "update"
	ProjectDelete       ProjectOperation = "delete"
	ProjectAddMember    ProjectOperation = "add-member"
	ProjectRemoveMember ProjectOperation = "remove-member"
)

var projectMinimumRole = map[ProjectOperation]Role{
	ProjectRead:         RoleViewer,
	ProjectUpdate:       RoleAdmin,
	ProjectDelete:       RoleOwner,
	ProjectAddMember:    RoleAdmin,
	ProjectRemoveMember: RoleAdmin,
}

// CheckProject decides a project-level operation from a resolved role.
func CheckProject(role Role, op ProjectOperation) Decision {
	if role == RoleNone {
		return Deny(ReasonNotMember)
	}

	min, ok := projectMinimumRole[op]
	if !ok || !role.IsResolved() {
		return Deny(ReasonInsufficientRole)
	}

	// delete is exact: admin is not enough
	if op == ProjectDelete {
		if role == RoleOwner {
			return Allow()
		}
		return Deny(ReasonOwnerOnly)
	}

	if !role.AtLeast(min) {
		return Deny(ReasonInsufficientRole)
	}
	return Allow()
}
