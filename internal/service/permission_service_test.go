package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
)

func TestProjectRoleResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]access.Role{
		ownerID:     access.RoleOwner,
		adminID:     access.RoleAdmin,
		memberID:    access.RoleMember,
		viewerID:    access.RoleViewer,
		teamOwnerID: access.RoleAdmin,
		outsiderID:  access.RoleNone,
	}
	for userID, want := range cases {
		_, role, err := f.perm.ProjectRole(ctx, projectID, userID)
		require.NoError(t, err)
		assert.Equal(t, want, role, userID)
	}

	_, role, err := f.perm.ProjectRole(ctx, soloProjectID, adminID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleNone, role)

	_, _, err = f.perm.ProjectRole(ctx, missingProject, ownerID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthorizeProjectDenials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.perm.AuthorizeProject(ctx, projectID, viewerID, access.ProjectUpdate)
	requireDenied(t, err, access.ReasonInsufficientRole)

	_, _, err = f.perm.AuthorizeProject(ctx, projectID, adminID, access.ProjectDelete)
	requireDenied(t, err, access.ReasonOwnerOnly)

	_, _, err = f.perm.AuthorizeProject(ctx, projectID, outsiderID, access.ProjectRead)
	requireDenied(t, err, access.ReasonNotMember)

	project, role, err := f.perm.AuthorizeProject(ctx, projectID, ownerID, access.ProjectDelete)
	require.NoError(t, err)
	assert.Equal(t, projectID, project.ID)
	assert.Equal(t, access.RoleOwner, role)
}

func TestAuthorizeProjectLookupError(t *testing.T) {
	f := newFixture(t)
	f.store.FailWith(errors.New("connection refused"))

	_, _, err := f.perm.AuthorizeProject(context.Background(), projectID, memberID, access.ProjectRead)
	require.Error(t, err)
	assert.False(t, access.IsDenied(err))
}

func TestLoadTaskAppliesTaskGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddTask("t-1", projectID, memberID, viewerID)

	_, _, err := f.perm.LoadTask(ctx, "t-1", viewerID, access.TaskUpdate)
	require.NoError(t, err, "assignee may update")

	_, _, err = f.perm.LoadTask(ctx, "t-1", viewerID, access.TaskDelete)
	requireDenied(t, err, access.ReasonInsufficientRole)

	_, _, err = f.perm.LoadTask(ctx, "t-1", outsiderID, access.TaskRead)
	requireDenied(t, err, access.ReasonNotMember)

	_, _, err = f.perm.LoadTask(ctx, "t-missing", ownerID, access.TaskRead)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanJoinRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.perm.CanJoinRoom(ctx, viewerID, "project:"+projectID))
	assert.False(t, f.perm.CanJoinRoom(ctx, outsiderID, "project:"+projectID))
	assert.False(t, f.perm.CanJoinRoom(ctx, ownerID, "project:"+missingProject))
	assert.True(t, f.perm.CanJoinRoom(ctx, memberID, "user:"+memberID))
	assert.False(t, f.perm.CanJoinRoom(ctx, memberID, "user:"+adminID))
	assert.False(t, f.perm.CanJoinRoom(ctx, memberID, "team:"+teamID))
	assert.False(t, f.perm.CanJoinRoom(ctx, memberID, "garbage"))
}
