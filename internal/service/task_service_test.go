package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/types"
)

func TestTaskCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("viewer creates with defaults", func(t *testing.T) {
		f := newFixture(t)
		task, err := f.tasks().Create(ctx, projectID, viewerID, &CreateTaskRequest{Title: "  Write docs "})
		require.NoError(t, err)
		assert.Equal(t, "Write docs", task.Title)
		assert.Equal(t, types.StatusTodo, task.Status)
		assert.Equal(t, types.PriorityMedium, task.Priority)
		assert.Equal(t, viewerID, task.ReporterID)
		assert.Nil(t, task.AssigneeID)
		assert.Empty(t, f.notifier.calls)
		assert.Equal(t, []socket.MessageType{socket.MessageTaskCreated}, f.broadcaster.types())
	})

	t.Run("outsider denied", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tasks().Create(ctx, projectID, outsiderID, &CreateTaskRequest{Title: "x"})
		requireDenied(t, err, access.ReasonNotMember)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tasks().Create(ctx, projectID, memberID, &CreateTaskRequest{Title: " "})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.tasks().Create(ctx, projectID, memberID, &CreateTaskRequest{Title: "x", Status: "blocked"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.tasks().Create(ctx, projectID, memberID, &CreateTaskRequest{Title: "x", Priority: "whenever"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("assignee must hold a role", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.tasks().Create(ctx, projectID, memberID, &CreateTaskRequest{Title: "x", AssigneeID: strPtr(outsiderID)})
		assert.ErrorIs(t, err, ErrInvalidInput)

		task, err := f.tasks().Create(ctx, projectID, memberID, &CreateTaskRequest{Title: "x", AssigneeID: strPtr(ownerID)})
		require.NoError(t, err)
		require.Len(t, f.notifier.calls, 1)
		assert.Equal(t, notifyCall{Kind: "assigned", TaskID: task.ID, UserID: ownerID, ActorID: memberID}, f.notifier.calls[0])
	})
}

func TestTaskUpdateRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddTask("t-1", projectID, memberID, viewerID)

	cases := []struct {
		name   string
		actor  string
		reason access.Reason
	}{
		{"reporter", memberID, ""},
		{"assignee", viewerID, ""},
		{"admin", adminID, ""},
		{"capped team owner", teamOwnerID, ""},
		{"project owner", ownerID, ""},
		{"outsider", outsiderID, access.ReasonNotMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tasks().Update(ctx, "t-1", tc.actor, &UpdateTaskRequest{Status: strPtr(types.StatusInProgress)})
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			requireDenied(t, err, tc.reason)
		})
	}

	f.store.AddTeamMember(teamID, "u-other", "member")
	f.store.AddUser("u-other", "Other", "other@ora.test")
	_, err := f.tasks().Update(ctx, "t-1", "u-other", &UpdateTaskRequest{Title: strPtr("hijack")})
	requireDenied(t, err, access.ReasonInsufficientRole)
}

func TestTaskUpdateDueDateResetsReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddTask("t-1", projectID, memberID, viewerID)
	require.NoError(t, f.repos.TaskRepo.MarkReminded(ctx, "t-1", time.Now()))

	due := time.Now().Add(48 * time.Hour)
	task, err := f.tasks().Update(ctx, "t-1", memberID, &UpdateTaskRequest{DueDate: &due})
	require.NoError(t, err)
	assert.Nil(t, task.RemindedAt)
	require.NotNil(t, task.DueDate)

	task, err = f.tasks().Update(ctx, "t-1", memberID, &UpdateTaskRequest{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, task.DueDate)
}

func TestTaskAssign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddTask("t-1", projectID, memberID, "")

	task, err := f.tasks().Assign(ctx, "t-1", memberID, strPtr(viewerID))
	require.NoError(t, err)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, viewerID, *task.AssigneeID)
	require.Len(t, f.notifier.calls, 1)

	// reassigning to the same user is a no-op
	_, err = f.tasks().Assign(ctx, "t-1", memberID, strPtr(viewerID))
	require.NoError(t, err)
	assert.Len(t, f.notifier.calls, 1)

	_, err = f.tasks().Assign(ctx, "t-1", memberID, strPtr(outsiderID))
	assert.ErrorIs(t, err, ErrInvalidInput)

	task, err = f.tasks().Assign(ctx, "t-1", memberID, strPtr(""))
	require.NoError(t, err)
	assert.Nil(t, task.AssigneeID)

	_, err = f.tasks().Assign(ctx, "t-1", outsiderID, strPtr(memberID))
	requireDenied(t, err, access.ReasonNotMember)

	assert.Equal(t, []socket.MessageType{socket.MessageTaskAssigned, socket.MessageTaskAssigned}, f.broadcaster.types())
}

func TestTaskDeleteRules(t *testing.T) {
	ctx := context.Background()

	t.Run("assignee alone cannot delete", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddTask("t-1", projectID, memberID, viewerID)
		requireDenied(t, f.tasks().Delete(ctx, "t-1", viewerID), access.ReasonInsufficientRole)
	})

	t.Run("reporter deletes", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddTask("t-1", projectID, viewerID, "")
		require.NoError(t, f.tasks().Delete(ctx, "t-1", viewerID))
		_, err := f.tasks().Get(ctx, "t-1", viewerID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("admin deletes and files are removed", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddTask("t-1", projectID, memberID, "")
		att, err := f.attachments(0).Upload(ctx, "t-1", memberID, &UploadFile{Filename: "a.txt", Content: strings.NewReader("hello")})
		require.NoError(t, err)

		require.NoError(t, f.tasks().Delete(ctx, "t-1", adminID))
		_, err = f.files.Open(ctx, att.StorageKey)
		assert.Error(t, err)
	})
}

func TestTaskListByProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddTask("t-1", projectID, memberID, "")
	f.store.AddTask("t-2", projectID, memberID, viewerID)
	_, err := f.tasks().Update(ctx, "t-2", memberID, &UpdateTaskRequest{Status: strPtr(types.StatusDone)})
	require.NoError(t, err)

	all, err := f.tasks().ListByProject(ctx, projectID, viewerID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := f.tasks().ListByProject(ctx, projectID, viewerID, types.StatusDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "t-2", done[0].ID)

	_, err = f.tasks().ListByProject(ctx, projectID, viewerID, "nope")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks().ListByProject(ctx, projectID, outsiderID, "")
	requireDenied(t, err, access.ReasonNotMember)

	mine, err := f.tasks().ListMine(ctx, viewerID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestListMineHidesTasksAfterRemoval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.tasks().Create(ctx, projectID, adminID, &CreateTaskRequest{Title: "secret", AssigneeID: strPtr(memberID)})
	require.NoError(t, err)

	mine, err := f.tasks().ListMine(ctx, memberID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, task.ID, mine[0].ID)

	require.NoError(t, f.projects().RemoveMember(ctx, projectID, adminID, memberID))

	_, err = f.tasks().Get(ctx, task.ID, memberID)
	requireDenied(t, err, access.ReasonNotMember)

	mine, err = f.tasks().ListMine(ctx, memberID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
