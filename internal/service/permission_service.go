package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
)

// ============================================
// Permission Service
// ============================================

// PermissionService loads project and task records and runs the access
// guards against them. Denials come back as *access.DeniedError.
type PermissionService interface {
	// ProjectRole returns the caller's role; RoleNone is not an error.
	ProjectRole(ctx context.Context, projectID, userID string) (*repository.Project, access.Role, error)
	RoleIn(ctx context.Context, project *repository.Project, userID string) (access.Role, error)

	AuthorizeProject(ctx context.Context, projectID, userID string, op access.ProjectOperation) (*repository.Project, access.Role, error)

	// LoadTask loads a task and authorizes op with no sub-resource ownership.
	LoadTask(ctx context.Context, taskID, userID string, op access.TaskOperation) (*repository.Task, *repository.Project, error)
	AuthorizeTask(ctx context.Context, task *repository.Task, userID string, op access.TaskOperation, isSubresourceOwner bool) (*repository.Project, error)

	CanJoinRoom(ctx context.Context, userID, room string) bool
}

type permissionService struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	authorizer  *access.Authorizer
}

func NewPermissionService(
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	teamRepo repository.TeamRepository,
) PermissionService {
	return &permissionService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		authorizer:  access.NewAuthorizer(teamMembership(teamRepo)),
	}
}

// teamMembership reads team_members rows as the resolver's lookup.
func teamMembership(teamRepo repository.TeamRepository) access.MembershipLookup {
	return access.MembershipLookupFunc(func(ctx context.Context, teamID, userID string) (string, bool, error) {
		member, err := teamRepo.FindMember(ctx, teamID, userID)
		if err != nil {
			return "", false, err
		}
		if member == nil {
			return "", false, nil
		}
		return member.Role, true, nil
	})
}

func projectSnapshot(p *repository.Project) *access.Project {
	return &access.Project{ID: p.ID, OwnerID: p.OwnerID, TeamID: p.TeamID}
}

func taskSnapshot(t *repository.Task) *access.Task {
	return &access.Task{ID: t.ID, ProjectID: t.ProjectID, ReporterID: t.ReporterID, AssigneeID: t.AssigneeID}
}

func (s *permissionService) findProject(ctx context.Context, projectID string) (*repository.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

func (s *permissionService) ProjectRole(ctx context.Context, projectID, userID string) (*repository.Project, access.Role, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, access.RoleNone, err
	}
	role, err := s.authorizer.Role(ctx, projectSnapshot(project), userID)
	if err != nil {
		return nil, access.RoleNone, err
	}
	return project, role, nil
}

func (s *permissionService) RoleIn(ctx context.Context, project *repository.Project, userID string) (access.Role, error) {
	return s.authorizer.Role(ctx, projectSnapshot(project), userID)
}

func (s *permissionService) AuthorizeProject(ctx context.Context, projectID, userID string, op access.ProjectOperation) (*repository.Project, access.Role, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, access.RoleNone, err
	}

	role, decision, err := s.authorizer.AuthorizeProject(ctx, projectSnapshot(project), userID, op)
	if err != nil {
		return nil, access.RoleNone, err
	}
	if !decision.Allowed {
		logger.Debug().Str("user_id", userID).Str("project_id", projectID).
			Str("op", string(op)).Str("decision", decision.String()).Msg("project access denied")
		return nil, role, decision.Err()
	}
	return project, role, nil
}

func (s *permissionService) LoadTask(ctx context.Context, taskID, userID string, op access.TaskOperation) (*repository.Task, *repository.Project, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, nil, ErrNotFound
	}

	project, err := s.AuthorizeTask(ctx, task, userID, op, false)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

func (s *permissionService) AuthorizeTask(ctx context.Context, task *repository.Task, userID string, op access.TaskOperation, isSubresourceOwner bool) (*repository.Project, error) {
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	_, decision, err := s.authorizer.AuthorizeTask(ctx, projectSnapshot(project), taskSnapshot(task), userID, op, isSubresourceOwner)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		logger.Debug().Str("user_id", userID).Str("task_id", task.ID).
			Str("op", string(op)).Str("decision", decision.String()).Msg("task access denied")
		return nil, decision.Err()
	}
	return project, nil
}

// CanJoinRoom allows a user's own room and any project room the user can read.
func (s *permissionService) CanJoinRoom(ctx context.Context, userID, room string) bool {
	kind, id, ok := socket.ParseRoom(room)
	if !ok {
		return false
	}

	switch room {
	case socket.UserRoom(userID):
		return true
	case socket.ProjectRoom(id):
		_, _, err := s.AuthorizeProject(ctx, id, userID, access.ProjectRead)
		if err != nil && !access.IsDenied(err) && !errors.Is(err, ErrNotFound) {
			logger.Warn().Err(err).Str("user_id", userID).Str("room", room).Msg("room authorization failed")
		}
		return err == nil
	default:
		logger.Debug().Str("kind", kind).Str("room", room).Msg("unknown room kind")
		return false
	}
}
