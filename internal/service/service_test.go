package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository/repotest"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

const (
	ownerID     = "u-owner"
	adminID     = "u-admin"
	memberID    = "u-member"
	viewerID    = "u-viewer"
	teamOwnerID = "u-teamowner"
	outsiderID  = "u-outsider"

	teamID         = "team-1"
	projectID      = "p-1"
	soloProjectID  = "p-solo"
	missingProject = "p-missing"
)

type event struct {
	Target  string
	Type    socket.MessageType
	Payload map[string]interface{}
	Actor   string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *fakeBroadcaster) ProjectEvent(projectID string, msgType socket.MessageType, payload map[string]interface{}, actorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{Target: socket.ProjectRoom(projectID), Type: msgType, Payload: payload, Actor: actorID})
}

func (b *fakeBroadcaster) UserEvent(userID string, msgType socket.MessageType, payload map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{Target: socket.UserRoom(userID), Type: msgType, Payload: payload})
}

func (b *fakeBroadcaster) types() []socket.MessageType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]socket.MessageType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

type notifyCall struct {
	Kind    string
	TaskID  string
	UserID  string
	ActorID string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) TaskAssigned(_ context.Context, task *repository.Task, assigneeID, actorID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{Kind: "assigned", TaskID: task.ID, UserID: assigneeID, ActorID: actorID})
	return nil
}

func (n *fakeNotifier) TaskCommented(_ context.Context, task *repository.Task, _ *repository.TaskComment, actorID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{Kind: "commented", TaskID: task.ID, ActorID: actorID})
	return nil
}

// fixture seeds one team-backed project and one teamless project:
//
//	p-1    owner u-owner, team-1 (created by u-admin)
//	p-solo owner u-owner, no team
//
// team-1 rows: u-admin admin, u-member member, u-viewer viewer,
// u-teamowner "owner" (capped to admin by the resolver).
type fixture struct {
	store       *repotest.Store
	repos       *repository.Repositories
	perm        PermissionService
	files       *storage.LocalStore
	broadcaster *fakeBroadcaster
	notifier    *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repotest.New()
	for _, id := range []string{ownerID, adminID, memberID, viewerID, teamOwnerID, outsiderID} {
		store.AddUser(id, id, id+"@ora.test")
	}
	store.AddTeam(teamID, "Core", adminID)
	store.AddTeamMember(teamID, adminID, "admin")
	store.AddTeamMember(teamID, memberID, "member")
	store.AddTeamMember(teamID, viewerID, "viewer")
	store.AddTeamMember(teamID, teamOwnerID, "owner")
	store.AddProject(projectID, "CORE", ownerID, teamID)
	store.AddProject(soloProjectID, "SOLO", ownerID, "")

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	repos := store.Repositories()
	return &fixture{
		store:       store,
		repos:       repos,
		perm:        NewPermissionService(repos.ProjectRepo, repos.TaskRepo, repos.TeamRepo),
		files:       files,
		broadcaster: &fakeBroadcaster{},
		notifier:    &fakeNotifier{},
	}
}

func (f *fixture) projects() ProjectService {
	return NewProjectService(f.repos.ProjectRepo, f.repos.TeamRepo, f.repos.UserRepo, f.repos.TaskRepo,
		f.repos.AttachmentRepo, f.perm, f.files, f.broadcaster)
}

func (f *fixture) tasks() TaskService {
	return NewTaskService(f.repos.TaskRepo, f.repos.AttachmentRepo, f.perm, f.files, f.notifier, f.broadcaster)
}

func (f *fixture) comments() CommentService {
	return NewCommentService(f.repos.CommentRepo, f.repos.TaskRepo, f.perm, f.notifier, f.broadcaster)
}

func (f *fixture) attachments(maxBytes int64) AttachmentService {
	return NewAttachmentService(f.repos.AttachmentRepo, f.repos.TaskRepo, f.perm, f.files, maxBytes, f.broadcaster)
}

func (f *fixture) teams() TeamService {
	return NewTeamService(f.repos.TeamRepo, f.repos.UserRepo)
}

func requireDenied(t *testing.T, err error, reason access.Reason) {
	t.Helper()
	denied, ok := access.AsDenied(err)
	require.True(t, ok, "expected access denial, got %v", err)
	require.Equal(t, reason, denied.Reason)
}

func strPtr(s string) *string { return &s }
