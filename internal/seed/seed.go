// internal/seed/seed.go
package seed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/types"
)

// Password is shared by every seeded account.
const Password = "password123"

// OwnerEmail marks the seed as applied.
const OwnerEmail = "owner@ora.local"

type seedUser struct {
	email string
	name  string
	role  string // team role; empty for the project owner
}

var users = []seedUser{
	{email: OwnerEmail, name: "Olivia Owner"},
	{email: "admin@ora.local", name: "Adam Admin", role: access.NameAdmin},
	{email: "member@ora.local", name: "Mina Member", role: access.NameMember},
	{email: "viewer@ora.local", name: "Victor Viewer", role: access.NameViewer},
}

// SeedData creates one account per role, a team, a team-backed project and a
// few tasks. It does nothing when the owner account already exists.
func SeedData(ctx context.Context, repos *repository.Repositories, hashCost int) error {
	existing, err := repos.UserRepo.FindByEmail(ctx, OwnerEmail)
	if err != nil {
		return fmt.Errorf("check seed: %w", err)
	}
	if existing != nil {
		logger.Info().Str("component", "seed").Msg("data already exists, skipping")
		return nil
	}

	// ============================================
	// CREATE USERS
	// ============================================
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), hashCost)
	if err != nil {
		return err
	}

	created := make([]*repository.User, len(users))
	for i, u := range users {
		user := &repository.User{Email: u.email, Name: u.name, Password: string(hash)}
		if err := repos.UserRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("create user %s: %w", u.email, err)
		}
		created[i] = user
	}
	owner, admin := created[0], created[1]

	// ============================================
	// TEAM
	// The owner is not on the team: their role comes from owning the project.
	// Create stores the creator as admin.
	// ============================================
	team := &repository.Team{
		Name:        "Core Platform",
		Description: stringPtr("Seeded team covering every role"),
		CreatedBy:   admin.ID,
	}
	if err := repos.TeamRepo.Create(ctx, team); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	for i, u := range users {
		if u.role == "" || created[i].ID == team.CreatedBy {
			continue
		}
		member := &repository.TeamMember{TeamID: team.ID, UserID: created[i].ID, Role: u.role}
		if err := repos.TeamRepo.AddMember(ctx, member); err != nil {
			return fmt.Errorf("add team member %s: %w", u.email, err)
		}
	}

	// ============================================
	// PROJECT AND TASKS
	// ============================================
	project := &repository.Project{
		Name:        "ORA Tasks",
		Key:         "ORA",
		Description: stringPtr("Seeded project backed by Core Platform"),
		OwnerID:     owner.ID,
		TeamID:      &team.ID,
	}
	if err := repos.ProjectRepo.Create(ctx, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	member, viewer := created[2], created[3]
	tomorrow := time.Now().Add(20 * time.Hour)
	tasks := []*repository.Task{
		{Title: "Set up CI pipeline", Status: types.StatusInProgress, Priority: types.PriorityHigh, ReporterID: admin.ID, AssigneeID: &member.ID, DueDate: &tomorrow},
		{Title: "Write onboarding guide", Status: types.StatusTodo, Priority: types.PriorityMedium, ReporterID: member.ID},
		{Title: "Review release checklist", Status: types.StatusInReview, Priority: types.PriorityLow, ReporterID: owner.ID, AssigneeID: &viewer.ID},
	}
	for _, task := range tasks {
		task.ProjectID = project.ID
		if err := repos.TaskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("create task %q: %w", task.Title, err)
		}
	}

	logger.Info().
		Str("component", "seed").
		Int("users", len(created)).
		Int("tasks", len(tasks)).
		Str("project", project.Key).
		Msg("development data created")
	return nil
}

func stringPtr(s string) *string {
	return &s
}
