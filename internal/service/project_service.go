package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

// ============================================
// Project Service
// ============================================

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)

type ProjectService interface {
	Create(ctx context.Context, actorID string, req *CreateProjectRequest) (*repository.Project, error)
	Get(ctx context.Context, projectID, actorID string) (*repository.Project, access.Role, error)
	ListMine(ctx context.Context, actorID string) ([]*repository.Project, error)
	Update(ctx context.Context, projectID, actorID string, req *UpdateProjectRequest) (*repository.Project, error)
	Delete(ctx context.Context, projectID, actorID string) error
	Role(ctx context.Context, projectID, actorID string) (access.Role, error)

	ListMembers(ctx context.Context, projectID, actorID string) ([]*ProjectMember, error)
	AddMember(ctx context.Context, projectID, actorID string, req *AddMemberRequest) (*ProjectMember, error)
	RemoveMember(ctx context.Context, projectID, actorID, userID string) error
}

type CreateProjectRequest struct {
	Name        string
	Key         string
	Description *string
	TeamID      *string
}

// UpdateProjectRequest holds optional changes. A TeamID pointing at ""
// detaches the project from its team.
type UpdateProjectRequest struct {
	Name        *string
	Key         *string
	Description *string
	TeamID      *string
}

// ProjectMember is a user with their effective role in a project.
type ProjectMember struct {
	UserID string
	Name   string
	Email  string
	Avatar *string
	Role   access.Role
}

type projectService struct {
	projectRepo    repository.ProjectRepository
	teamRepo       repository.TeamRepository
	userRepo       repository.UserRepository
	taskRepo       repository.TaskRepository
	attachmentRepo repository.AttachmentRepository
	permService    PermissionService
	files          storage.FileStore
	broadcaster    EventBroadcaster
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	attachmentRepo repository.AttachmentRepository,
	permService PermissionService,
	files storage.FileStore,
	broadcaster EventBroadcaster,
) ProjectService {
	return &projectService{
		projectRepo:    projectRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
		taskRepo:       taskRepo,
		attachmentRepo: attachmentRepo,
		permService:    permService,
		files:          files,
		broadcaster:    broadcasterOrNop(broadcaster),
	}
}

func normalizeProjectKey(key string) (string, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if !projectKeyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: project key must be 2-10 letters or digits starting with a letter", ErrInvalidInput)
	}
	return key, nil
}

func (s *projectService) ensureKeyAvailable(ctx context.Context, key, projectID string) error {
	existing, err := s.projectRepo.FindByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("load project by key: %w", err)
	}
	if existing != nil && existing.ID != projectID {
		return ErrConflict
	}
	return nil
}

// ensureTeamAdmin checks that the user administers the team a project is
// being attached to.
func (s *projectService) ensureTeamAdmin(ctx context.Context, teamID, userID string) error {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return ErrNotFound
	}
	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("load team member: %w", err)
	}
	if member == nil {
		return access.Deny(access.ReasonNotMember).Err()
	}
	if !access.StoredTeamRole(member.Role).AtLeast(access.RoleAdmin) {
		return access.Deny(access.ReasonInsufficientRole).Err()
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, actorID string, req *CreateProjectRequest) (*repository.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	key, err := normalizeProjectKey(req.Key)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKeyAvailable(ctx, key, ""); err != nil {
		return nil, err
	}

	var teamID *string
	if req.TeamID != nil && *req.TeamID != "" {
		if err := s.ensureTeamAdmin(ctx, *req.TeamID, actorID); err != nil {
			return nil, err
		}
		teamID = req.TeamID
	}

	project := &repository.Project{
		Name:        name,
		Key:         key,
		Description: req.Description,
		OwnerID:     actorID,
		TeamID:      teamID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	logger.Info().Str("project_id", project.ID).Str("user_id", actorID).Msg("project created")
	return project, nil
}

func (s *projectService) Get(ctx context.Context, projectID, actorID string) (*repository.Project, access.Role, error) {
	return s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectRead)
}

func (s *projectService) ListMine(ctx context.Context, actorID string) ([]*repository.Project, error) {
	return s.projectRepo.FindAccessible(ctx, actorID)
}

// Role reports the caller's role, RoleNone included, for a project that exists.
func (s *projectService) Role(ctx context.Context, projectID, actorID string) (access.Role, error) {
	_, role, err := s.permService.ProjectRole(ctx, projectID, actorID)
	return role, err
}

// Update needs admin. Moving the project to another team needs the owner,
// who must also administer the destination team.
func (s *projectService) Update(ctx context.Context, projectID, actorID string, req *UpdateProjectRequest) (*repository.Project, error) {
	project, role, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectUpdate)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
		}
		project.Name = name
	}
	if req.Key != nil {
		key, err := normalizeProjectKey(*req.Key)
		if err != nil {
			return nil, err
		}
		if err := s.ensureKeyAvailable(ctx, key, project.ID); err != nil {
			return nil, err
		}
		project.Key = key
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.TeamID != nil && !sameTeam(project.TeamID, *req.TeamID) {
		if role != access.RoleOwner {
			return nil, access.Deny(access.ReasonOwnerOnly).Err()
		}
		if *req.TeamID == "" {
			project.TeamID = nil
		} else {
			if err := s.ensureTeamAdmin(ctx, *req.TeamID, actorID); err != nil {
				return nil, err
			}
			teamID := *req.TeamID
			project.TeamID = &teamID
		}
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.broadcaster.ProjectEvent(project.ID, socket.MessageProjectUpdated, map[string]interface{}{
		"id":   project.ID,
		"name": project.Name,
		"key":  project.Key,
	}, actorID)
	return project, nil
}

func sameTeam(current *string, next string) bool {
	if current == nil {
		return next == ""
	}
	return *current == next
}

func (s *projectService) Delete(ctx context.Context, projectID, actorID string) error {
	project, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectDelete)
	if err != nil {
		return err
	}

	storageKeys := s.collectStorageKeys(ctx, project.ID)

	if err := s.projectRepo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	for _, key := range storageKeys {
		if err := s.files.Delete(ctx, key); err != nil {
			logger.Warn().Err(err).Str("storage_key", key).Msg("failed to remove attachment file")
		}
	}

	s.broadcaster.ProjectEvent(project.ID, socket.MessageProjectDeleted, map[string]interface{}{
		"id": project.ID,
	}, actorID)
	logger.Info().Str("project_id", project.ID).Str("user_id", actorID).Msg("project deleted")
	return nil
}

// collectStorageKeys lists attachment files so they can be removed once the
// rows are gone. Failures only leave orphaned files behind.
func (s *projectService) collectStorageKeys(ctx context.Context, projectID string) []string {
	if s.files == nil {
		return nil
	}
	tasks, err := s.taskRepo.FindByProjectID(ctx, projectID, nil)
	if err != nil {
		logger.Warn().Err(err).Str("project_id", projectID).Msg("failed to list tasks for cleanup")
		return nil
	}

	var keys []string
	for _, task := range tasks {
		attachments, err := s.attachmentRepo.FindByTaskID(ctx, task.ID)
		if err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to list attachments for cleanup")
			continue
		}
		for _, a := range attachments {
			keys = append(keys, a.StorageKey)
		}
	}
	return keys
}

// ============================================
// Members
// ============================================

// ListMembers lists the owner first, then the project's team with roles as
// the resolver would compute them.
func (s *projectService) ListMembers(ctx context.Context, projectID, actorID string) ([]*ProjectMember, error) {
	project, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectRead)
	if err != nil {
		return nil, err
	}

	var members []*ProjectMember

	owner, err := s.userRepo.FindByID(ctx, project.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	if owner != nil {
		members = append(members, &ProjectMember{
			UserID: owner.ID,
			Name:   owner.Name,
			Email:  owner.Email,
			Avatar: owner.Avatar,
			Role:   access.RoleOwner,
		})
	}

	if project.TeamID == nil || *project.TeamID == "" {
		return members, nil
	}

	teamMembers, err := s.teamRepo.FindMembers(ctx, *project.TeamID)
	if err != nil {
		return nil, fmt.Errorf("load team members: %w", err)
	}
	for _, m := range teamMembers {
		if m.UserID == project.OwnerID {
			continue
		}
		members = append(members, projectMemberFromTeam(m))
	}
	return members, nil
}

func projectMemberFromTeam(m *repository.TeamMember) *ProjectMember {
	pm := &ProjectMember{
		UserID: m.UserID,
		Role:   access.StoredTeamRole(m.Role),
	}
	if m.User != nil {
		pm.Name = m.User.Name
		pm.Email = m.User.Email
		pm.Avatar = m.User.Avatar
	}
	return pm
}

// AddMember adds the user to the project's team.
func (s *projectService) AddMember(ctx context.Context, projectID, actorID string, req *AddMemberRequest) (*ProjectMember, error) {
	project, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectAddMember)
	if err != nil {
		return nil, err
	}
	if project.TeamID == nil || *project.TeamID == "" {
		return nil, fmt.Errorf("%w: project has no team", ErrInvalidInput)
	}
	if req.UserID == project.OwnerID {
		return nil, ErrConflict
	}

	member, err := addTeamMember(ctx, s.teamRepo, s.userRepo, *project.TeamID, req)
	if err != nil {
		return nil, err
	}

	pm := projectMemberFromTeam(member)
	s.broadcaster.ProjectEvent(project.ID, socket.MessageMemberAdded, map[string]interface{}{
		"userId": pm.UserID,
		"role":   pm.Role.String(),
	}, actorID)
	s.broadcaster.UserEvent(pm.UserID, socket.MessageMemberAdded, map[string]interface{}{
		"projectId": project.ID,
		"role":      pm.Role.String(),
	})
	return pm, nil
}

// RemoveMember removes the user from the project's team. The owner is not a
// team row and cannot be removed.
func (s *projectService) RemoveMember(ctx context.Context, projectID, actorID, userID string) error {
	project, _, err := s.permService.AuthorizeProject(ctx, projectID, actorID, access.ProjectRemoveMember)
	if err != nil {
		return err
	}
	if userID == project.OwnerID {
		return fmt.Errorf("%w: the project owner cannot be removed", ErrInvalidInput)
	}
	if project.TeamID == nil || *project.TeamID == "" {
		return fmt.Errorf("%w: project has no team", ErrInvalidInput)
	}

	member, err := s.teamRepo.FindMember(ctx, *project.TeamID, userID)
	if err != nil {
		return fmt.Errorf("load team member: %w", err)
	}
	if member == nil {
		return ErrNotFound
	}
	team, err := s.teamRepo.FindByID(ctx, *project.TeamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team != nil && team.CreatedBy == userID {
		return fmt.Errorf("%w: the team creator cannot be removed", ErrInvalidInput)
	}
	if err := s.teamRepo.RemoveMember(ctx, *project.TeamID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.broadcaster.ProjectEvent(project.ID, socket.MessageMemberRemoved, map[string]interface{}{
		"userId": userID,
	}, actorID)
	s.broadcaster.UserEvent(userID, socket.MessageMemberRemoved, map[string]interface{}{
		"projectId": project.ID,
	})
	return nil
}
