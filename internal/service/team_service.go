package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
)

// ============================================
// Team Service
// ============================================

type TeamService interface {
	Create(ctx context.Context, actorID string, req *CreateTeamRequest) (*repository.Team, error)
	Get(ctx context.Context, teamID, actorID string) (*TeamDetail, error)
	ListMine(ctx context.Context, actorID string) ([]*repository.Team, error)
	Delete(ctx context.Context, teamID, actorID string) error

	AddMember(ctx context.Context, teamID, actorID string, req *AddMemberRequest) (*repository.TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, actorID, userID, role string) error
	RemoveMember(ctx context.Context, teamID, actorID, userID string) error
}

type CreateTeamRequest struct {
	Name        string
	Description *string
}

// AddMemberRequest adds a user with a team role. An empty role means member.
type AddMemberRequest struct {
	UserID string
	Role   string
}

type TeamDetail struct {
	Team    *repository.Team
	Members []*repository.TeamMember
}

type teamService struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
}

func NewTeamService(teamRepo repository.TeamRepository, userRepo repository.UserRepository) TeamService {
	return &teamService{teamRepo: teamRepo, userRepo: userRepo}
}

// normalizeTeamRole validates a role accepted for a team row.
func normalizeTeamRole(role string) (string, error) {
	if strings.TrimSpace(role) == "" {
		return access.NameMember, nil
	}
	if !access.AssignableTeamRole(role) {
		return "", fmt.Errorf("%w: role must be viewer, member or admin", ErrInvalidInput)
	}
	return access.ParseRole(role).String(), nil
}

// requireTeamRole loads the team and checks the actor's team role.
func (s *teamService) requireTeamRole(ctx context.Context, teamID, actorID string, minRole access.Role) (*repository.Team, access.Role, error) {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return nil, access.RoleNone, fmt.Errorf("load team: %w", err)
	}
	if team == nil {
		return nil, access.RoleNone, ErrNotFound
	}

	member, err := s.teamRepo.FindMember(ctx, teamID, actorID)
	if err != nil {
		return nil, access.RoleNone, fmt.Errorf("load team member: %w", err)
	}
	if member == nil {
		return nil, access.RoleNone, access.Deny(access.ReasonNotMember).Err()
	}

	role := access.StoredTeamRole(member.Role)
	if !role.AtLeast(minRole) {
		return nil, role, access.Deny(access.ReasonInsufficientRole).Err()
	}
	return team, role, nil
}

func (s *teamService) Create(ctx context.Context, actorID string, req *CreateTeamRequest) (*repository.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	team := &repository.Team{
		Name:        name,
		Description: req.Description,
		CreatedBy:   actorID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	logger.Info().Str("team_id", team.ID).Str("user_id", actorID).Msg("team created")
	return team, nil
}

func (s *teamService) Get(ctx context.Context, teamID, actorID string) (*TeamDetail, error) {
	team, _, err := s.requireTeamRole(ctx, teamID, actorID, access.RoleViewer)
	if err != nil {
		return nil, err
	}
	members, err := s.teamRepo.FindMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &TeamDetail{Team: team, Members: members}, nil
}

func (s *teamService) ListMine(ctx context.Context, actorID string) ([]*repository.Team, error) {
	return s.teamRepo.FindByUserID(ctx, actorID)
}

// Delete is reserved for the team creator.
func (s *teamService) Delete(ctx context.Context, teamID, actorID string) error {
	team, _, err := s.requireTeamRole(ctx, teamID, actorID, access.RoleViewer)
	if err != nil {
		return err
	}
	if team.CreatedBy != actorID {
		return access.Deny(access.ReasonOwnerOnly).Err()
	}
	return s.teamRepo.Delete(ctx, teamID)
}

func (s *teamService) AddMember(ctx context.Context, teamID, actorID string, req *AddMemberRequest) (*repository.TeamMember, error) {
	if _, _, err := s.requireTeamRole(ctx, teamID, actorID, access.RoleAdmin); err != nil {
		return nil, err
	}
	return addTeamMember(ctx, s.teamRepo, s.userRepo, teamID, req)
}

// addTeamMember validates and inserts a membership row. Shared with project
// member management, which writes through the project's team.
func addTeamMember(ctx context.Context, teamRepo repository.TeamRepository, userRepo repository.UserRepository, teamID string, req *AddMemberRequest) (*repository.TeamMember, error) {
	role, err := normalizeTeamRole(req.Role)
	if err != nil {
		return nil, err
	}

	user, err := userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	existing, err := teamRepo.FindMember(ctx, teamID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load team member: %w", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	member := &repository.TeamMember{
		TeamID: teamID,
		UserID: req.UserID,
		Role:   role,
		User:   user,
	}
	if err := teamRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	return member, nil
}

func (s *teamService) UpdateMemberRole(ctx context.Context, teamID, actorID, userID, role string) error {
	team, _, err := s.requireTeamRole(ctx, teamID, actorID, access.RoleAdmin)
	if err != nil {
		return err
	}

	normalized, err := normalizeTeamRole(role)
	if err != nil {
		return err
	}
	if team.CreatedBy == userID {
		return fmt.Errorf("%w: the team creator's role cannot be changed", ErrInvalidInput)
	}

	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("load team member: %w", err)
	}
	if member == nil {
		return ErrNotFound
	}
	return s.teamRepo.UpdateMemberRole(ctx, teamID, userID, normalized)
}

// RemoveMember needs team admin, except that any member may remove themself.
func (s *teamService) RemoveMember(ctx context.Context, teamID, actorID, userID string) error {
	minRole := access.RoleAdmin
	if actorID == userID {
		minRole = access.RoleViewer
	}
	team, _, err := s.requireTeamRole(ctx, teamID, actorID, minRole)
	if err != nil {
		return err
	}
	if team.CreatedBy == userID {
		return fmt.Errorf("%w: the team creator cannot be removed", ErrInvalidInput)
	}

	member, err := s.teamRepo.FindMember(ctx, teamID, userID)
	if err != nil {
		return fmt.Errorf("load team member: %w", err)
	}
	if member == nil {
		return ErrNotFound
	}
	return s.teamRepo.RemoveMember(ctx, teamID, userID)
}
