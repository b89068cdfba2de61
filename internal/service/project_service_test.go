package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
)

func TestProjectCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner becomes creator", func(t *testing.T) {
		f := newFixture(t)
		project, err := f.projects().Create(ctx, outsiderID, &CreateProjectRequest{Name: " Side ", Key: "side"})
		require.NoError(t, err)
		assert.Equal(t, "Side", project.Name)
		assert.Equal(t, "SIDE", project.Key)
		assert.Equal(t, outsiderID, project.OwnerID)
		assert.Nil(t, project.TeamID)

		role, err := f.projects().Role(ctx, project.ID, outsiderID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleOwner, role)
	})

	t.Run("invalid key", func(t *testing.T) {
		f := newFixture(t)
		for _, key := range []string{"", "A", "1AB", "TOO-LONG", strings.Repeat("A", 11)} {
			_, err := f.projects().Create(ctx, ownerID, &CreateProjectRequest{Name: "x", Key: key})
			assert.ErrorIs(t, err, ErrInvalidInput, key)
		}
	})

	t.Run("duplicate key", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().Create(ctx, ownerID, &CreateProjectRequest{Name: "x", Key: "core"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("team requires team admin", func(t *testing.T) {
		f := newFixture(t)
		team := teamID

		_, err := f.projects().Create(ctx, memberID, &CreateProjectRequest{Name: "x", Key: "MEM", TeamID: &team})
		requireDenied(t, err, access.ReasonInsufficientRole)

		_, err = f.projects().Create(ctx, outsiderID, &CreateProjectRequest{Name: "x", Key: "OUT", TeamID: &team})
		requireDenied(t, err, access.ReasonNotMember)

		missing := "team-missing"
		_, err = f.projects().Create(ctx, adminID, &CreateProjectRequest{Name: "x", Key: "MIS", TeamID: &missing})
		assert.ErrorIs(t, err, ErrNotFound)

		project, err := f.projects().Create(ctx, teamOwnerID, &CreateProjectRequest{Name: "x", Key: "ADM", TeamID: &team})
		require.NoError(t, err)
		require.NotNil(t, project.TeamID)
		assert.Equal(t, teamID, *project.TeamID)
	})
}

func TestProjectUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("admin renames", func(t *testing.T) {
		f := newFixture(t)
		project, err := f.projects().Update(ctx, projectID, adminID, &UpdateProjectRequest{Name: strPtr("Renamed")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", project.Name)
		assert.Equal(t, []socket.MessageType{socket.MessageProjectUpdated}, f.broadcaster.types())
	})

	t.Run("member cannot update", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().Update(ctx, projectID, memberID, &UpdateProjectRequest{Name: strPtr("Nope")})
		requireDenied(t, err, access.ReasonInsufficientRole)
		assert.Empty(t, f.broadcaster.types())
	})

	t.Run("team change is owner only", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().Update(ctx, projectID, adminID, &UpdateProjectRequest{TeamID: strPtr("")})
		requireDenied(t, err, access.ReasonOwnerOnly)

		// same team is not a change
		_, err = f.projects().Update(ctx, projectID, adminID, &UpdateProjectRequest{TeamID: strPtr(teamID)})
		require.NoError(t, err)
	})

	t.Run("owner detaches team", func(t *testing.T) {
		f := newFixture(t)
		project, err := f.projects().Update(ctx, projectID, ownerID, &UpdateProjectRequest{TeamID: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, project.TeamID)

		_, role, err := f.perm.ProjectRole(ctx, projectID, adminID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleNone, role)
	})

	t.Run("owner must administer destination team", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().Update(ctx, soloProjectID, ownerID, &UpdateProjectRequest{TeamID: strPtr(teamID)})
		requireDenied(t, err, access.ReasonNotMember)
	})

	t.Run("key conflict", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().Update(ctx, soloProjectID, ownerID, &UpdateProjectRequest{Key: strPtr("CORE")})
		assert.ErrorIs(t, err, ErrConflict)

		project, err := f.projects().Update(ctx, projectID, ownerID, &UpdateProjectRequest{Key: strPtr("core")})
		require.NoError(t, err)
		assert.Equal(t, "CORE", project.Key)
	})
}

func TestProjectDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddTask("t-1", projectID, memberID, "")

	err := f.projects().Delete(ctx, projectID, adminID)
	requireDenied(t, err, access.ReasonOwnerOnly)

	require.NoError(t, f.projects().Delete(ctx, projectID, ownerID))
	assert.Equal(t, []socket.MessageType{socket.MessageProjectDeleted}, f.broadcaster.types())

	_, _, err = f.perm.ProjectRole(ctx, projectID, ownerID)
	assert.ErrorIs(t, err, ErrNotFound)

	task, err := f.repos.TaskRepo.FindByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestProjectListMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	members, err := f.projects().ListMembers(ctx, projectID, viewerID)
	require.NoError(t, err)

	roles := map[string]access.Role{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, ownerID, members[0].UserID)
	assert.Equal(t, map[string]access.Role{
		ownerID:     access.RoleOwner,
		adminID:     access.RoleAdmin,
		memberID:    access.RoleMember,
		viewerID:    access.RoleViewer,
		teamOwnerID: access.RoleAdmin,
	}, roles)

	_, err = f.projects().ListMembers(ctx, projectID, outsiderID)
	requireDenied(t, err, access.ReasonNotMember)

	solo, err := f.projects().ListMembers(ctx, soloProjectID, ownerID)
	require.NoError(t, err)
	require.Len(t, solo, 1)
}

func TestProjectMemberManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("admin adds through team", func(t *testing.T) {
		f := newFixture(t)
		pm, err := f.projects().AddMember(ctx, projectID, adminID, &AddMemberRequest{UserID: outsiderID, Role: "viewer"})
		require.NoError(t, err)
		assert.Equal(t, access.RoleViewer, pm.Role)
		assert.Equal(t, outsiderID+"@ora.test", pm.Email)

		_, role, err := f.perm.ProjectRole(ctx, projectID, outsiderID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleViewer, role)
		assert.Equal(t, []socket.MessageType{socket.MessageMemberAdded, socket.MessageMemberAdded}, f.broadcaster.types())
	})

	t.Run("member cannot add", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().AddMember(ctx, projectID, memberID, &AddMemberRequest{UserID: outsiderID})
		requireDenied(t, err, access.ReasonInsufficientRole)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.projects().AddMember(ctx, projectID, adminID, &AddMemberRequest{UserID: memberID})
		assert.ErrorIs(t, err, ErrConflict)

		_, err = f.projects().AddMember(ctx, projectID, adminID, &AddMemberRequest{UserID: ownerID})
		assert.ErrorIs(t, err, ErrConflict)

		_, err = f.projects().AddMember(ctx, projectID, adminID, &AddMemberRequest{UserID: outsiderID, Role: "owner"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = f.projects().AddMember(ctx, projectID, adminID, &AddMemberRequest{UserID: "u-ghost"})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = f.projects().AddMember(ctx, soloProjectID, ownerID, &AddMemberRequest{UserID: memberID})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("remove", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.projects().RemoveMember(ctx, projectID, adminID, viewerID))

		_, role, err := f.perm.ProjectRole(ctx, projectID, viewerID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleNone, role)

		assert.ErrorIs(t, f.projects().RemoveMember(ctx, projectID, adminID, viewerID), ErrNotFound)
		assert.ErrorIs(t, f.projects().RemoveMember(ctx, projectID, adminID, ownerID), ErrInvalidInput)
		assert.ErrorIs(t, f.projects().RemoveMember(ctx, projectID, ownerID, adminID), ErrInvalidInput, "team creator")
		requireDenied(t, f.projects().RemoveMember(ctx, projectID, memberID, teamOwnerID), access.ReasonInsufficientRole)
	})
}
