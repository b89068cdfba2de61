package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository/repotest"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

func TestSeedDataCoversEveryRole(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	repos := store.Repositories()

	require.NoError(t, SeedData(ctx, repos, bcrypt.MinCost))

	owner, err := repos.UserRepo.FindByEmail(ctx, OwnerEmail)
	require.NoError(t, err)
	require.NotNil(t, owner)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(Password)))

	projects, err := repos.ProjectRepo.FindAccessible(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	project := projects[0]

	perm := service.NewPermissionService(repos.ProjectRepo, repos.TaskRepo, repos.TeamRepo)
	want := map[string]access.Role{
		OwnerEmail:         access.RoleOwner,
		"admin@ora.local":  access.RoleAdmin,
		"member@ora.local": access.RoleMember,
		"viewer@ora.local": access.RoleViewer,
	}
	for email, role := range want {
		user, err := repos.UserRepo.FindByEmail(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, user, email)

		got, err := perm.RoleIn(ctx, project, user.ID)
		require.NoError(t, err)
		assert.Equal(t, role, got, email)
	}

	tasks, err := repos.TaskRepo.FindByProjectID(ctx, project.ID, nil)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestSeedDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	repos := store.Repositories()

	require.NoError(t, SeedData(ctx, repos, bcrypt.MinCost))
	require.NoError(t, SeedData(ctx, repos, bcrypt.MinCost))

	users, err := repos.UserRepo.SearchByEmail(ctx, "", 50)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}
