package access

import "context"

// Authorizer resolves a role and runs the matching guard in one call.
type Authorizer struct {
	resolver *MembershipResolver
}

func NewAuthorizer(members MembershipLookup) *Authorizer {
	return &Authorizer{resolver: NewMembershipResolver(members)}
}

// Role resolves the user's role in project.
func (a *Authorizer) Role(ctx context.Context, project *Project, userID string) (Role, error) {
	return a.resolver.Resolve(ctx, project, userID)
}

// AuthorizeProject resolves the role and checks op against it.
// A lookup error is returned as-is with a zero Decision (deny).
func (a *Authorizer) AuthorizeProject(ctx context.Context, project *Project, userID string, op ProjectOperation) (Role, Decision, error) {
	role, err := a.resolver.Resolve(ctx, project, userID)
	if err != nil {
		return RoleNone, Decision{}, err
	}
	return role, CheckProject(role, op), nil
}

// AuthorizeTask resolves the role in the task's project and checks op.
func (a *Authorizer) AuthorizeTask(ctx context.Context, project *Project, task *Task, userID string, op TaskOperation, isSubresourceOwner bool) (Role, Decision, error) {
	role, err := a.resolver.Resolve(ctx, project, userID)
	if err != nil {
		return RoleNone, Decision{}, err
	}
	return role, CheckTask(role, op, task, userID, isSubresourceOwner), nil
}
