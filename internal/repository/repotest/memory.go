// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
)

// Store holds every table in memory. The zero value is not usable; call New.
type Store struct {
	mu  sync.Mutex
	seq int
	err error

	users         map[string]*repository.User
	teams         map[string]*repository.Team
	members       []*repository.TeamMember
	projects      map[string]*repository.Project
	tasks         map[string]*repository.Task
	comments      map[string]*repository.TaskComment
	attachments   map[string]*repository.TaskAttachment
	notifications map[string]*repository.Notification

	// Now stamps created rows.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		users:         map[string]*repository.User{},
		teams:         map[string]*repository.Team{},
		projects:      map[string]*repository.Project{},
		tasks:         map[string]*repository.Task{},
		comments:      map[string]*repository.TaskComment{},
		attachments:   map[string]*repository.TaskAttachment{},
		notifications: map[string]*repository.Notification{},
		Now:           time.Now,
	}
}

// FailWith makes every subsequent call return err. Pass nil to clear.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		UserRepo:         &userRepo{s},
		TeamRepo:         &teamRepo{s},
		ProjectRepo:      &projectRepo{s},
		TaskRepo:         &taskRepo{s},
		CommentRepo:      &commentRepo{s},
		AttachmentRepo:   &attachmentRepo{s},
		NotificationRepo: &notificationRepo{s},
	}
}

func (s *Store) lock() error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// ============================================
// Seeding helpers
// ============================================

// AddUser inserts a user with the given id and returns it.
func (s *Store) AddUser(id, name, email string) *repository.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &repository.User{ID: id, Name: name, Email: email, CreatedAt: s.Now(), UpdatedAt: s.Now()}
	s.users[id] = u
	c := *u
	return &c
}

// AddTeam inserts a team without any membership rows.
func (s *Store) AddTeam(id, name, createdBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[id] = &repository.Team{ID: id, Name: name, CreatedBy: createdBy, CreatedAt: s.Now(), UpdatedAt: s.Now()}
}

// AddProject inserts a project. An empty teamID leaves the project teamless.
func (s *Store) AddProject(id, key, ownerID, teamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &repository.Project{ID: id, Name: key, Key: key, OwnerID: ownerID, CreatedAt: s.Now(), UpdatedAt: s.Now()}
	if teamID != "" {
		p.TeamID = &teamID
	}
	s.projects[id] = p
}

// AddTask inserts a task. An empty assigneeID leaves it unassigned.
func (s *Store) AddTask(id, projectID, reporterID, assigneeID string) *repository.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &repository.Task{
		ID: id, ProjectID: projectID, Title: id, Status: "todo", Priority: "medium",
		ReporterID: reporterID, CreatedAt: s.Now(), UpdatedAt: s.Now(),
	}
	if assigneeID != "" {
		t.AssigneeID = &assigneeID
	}
	s.tasks[id] = t
	return cloneTask(t)
}

// AddTeamMember inserts a raw membership row, bypassing role validation.
func (s *Store) AddTeamMember(teamID, userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = append(s.members, &repository.TeamMember{
		ID: s.nextID("tm"), TeamID: teamID, UserID: userID, Role: role, JoinedAt: s.Now(),
	})
}

// ============================================
// Users
// ============================================

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *repository.User) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("duplicate email %s", user.Email)
		}
	}
	user.ID = r.s.nextID("user")
	user.CreatedAt, user.UpdatedAt = r.s.Now(), r.s.Now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id string) (*repository.User, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*repository.User, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *userRepo) SearchByEmail(_ context.Context, prefix string, limit int) ([]*repository.User, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.User
	for _, u := range r.s.users {
		if strings.HasPrefix(strings.ToLower(u.Email), strings.ToLower(prefix)) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *userRepo) Update(_ context.Context, user *repository.User) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	user.UpdatedAt = r.s.Now()
	c := *user
	r.s.users[user.ID] = &c
	return nil
}

// ============================================
// Teams
// ============================================

type teamRepo struct{ s *Store }

func (r *teamRepo) Create(_ context.Context, team *repository.Team) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	team.ID = r.s.nextID("team")
	team.CreatedAt, team.UpdatedAt = r.s.Now(), r.s.Now()
	c := *team
	r.s.teams[team.ID] = &c
	r.s.members = append(r.s.members, &repository.TeamMember{
		ID: r.s.nextID("tm"), TeamID: team.ID, UserID: team.CreatedBy, Role: "admin", JoinedAt: r.s.Now(),
	})
	return nil
}

func (r *teamRepo) FindByID(_ context.Context, id string) (*repository.Team, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if t, ok := r.s.teams[id]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *teamRepo) FindByUserID(_ context.Context, userID string) ([]*repository.Team, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.Team
	for _, m := range r.s.members {
		if m.UserID != userID {
			continue
		}
		if t, ok := r.s.teams[m.TeamID]; ok {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *teamRepo) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.teams, id)
	kept := r.s.members[:0]
	for _, m := range r.s.members {
		if m.TeamID != id {
			kept = append(kept, m)
		}
	}
	r.s.members = kept
	for _, p := range r.s.projects {
		if p.TeamID != nil && *p.TeamID == id {
			p.TeamID = nil
		}
	}
	return nil
}

func (r *teamRepo) AddMember(_ context.Context, member *repository.TeamMember) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return fmt.Errorf("duplicate membership %s/%s", member.TeamID, member.UserID)
		}
	}
	member.ID = r.s.nextID("tm")
	member.JoinedAt = r.s.Now()
	c := *member
	r.s.members = append(r.s.members, &c)
	return nil
}

func (r *teamRepo) FindMembers(_ context.Context, teamID string) ([]*repository.TeamMember, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.TeamMember
	for _, m := range r.s.members {
		if m.TeamID == teamID {
			c := *m
			if u, ok := r.s.users[m.UserID]; ok {
				uc := *u
				c.User = &uc
			}
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *teamRepo) FindMember(_ context.Context, teamID, userID string) (*repository.TeamMember, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TeamID == teamID && m.UserID == userID {
			c := *m
			return &c, nil
		}
	}
	return nil, nil
}

func (r *teamRepo) UpdateMemberRole(_ context.Context, teamID, userID, role string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TeamID == teamID && m.UserID == userID {
			m.Role = role
		}
	}
	return nil
}

func (r *teamRepo) RemoveMember(_ context.Context, teamID, userID string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	kept := r.s.members[:0]
	for _, m := range r.s.members {
		if m.TeamID != teamID || m.UserID != userID {
			kept = append(kept, m)
		}
	}
	r.s.members = kept
	return nil
}

// ============================================
// Projects
// ============================================

type projectRepo struct{ s *Store }

func cloneProject(p *repository.Project) *repository.Project {
	c := *p
	if p.TeamID != nil {
		id := *p.TeamID
		c.TeamID = &id
	}
	return &c
}

func (r *projectRepo) Create(_ context.Context, project *repository.Project) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, p := range r.s.projects {
		if p.Key == project.Key {
			return fmt.Errorf("duplicate project key %s", project.Key)
		}
	}
	project.ID = r.s.nextID("project")
	project.CreatedAt, project.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *projectRepo) FindByID(_ context.Context, id string) (*repository.Project, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if p, ok := r.s.projects[id]; ok {
		return cloneProject(p), nil
	}
	return nil, nil
}

func (r *projectRepo) FindByKey(_ context.Context, key string) (*repository.Project, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, p := range r.s.projects {
		if p.Key == key {
			return cloneProject(p), nil
		}
	}
	return nil, nil
}

func (r *projectRepo) FindAccessible(_ context.Context, userID string) ([]*repository.Project, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.Project
	for _, p := range r.s.projects {
		if p.OwnerID == userID || (p.TeamID != nil && r.s.isMember(*p.TeamID, userID)) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) isMember(teamID, userID string) bool {
	for _, m := range s.members {
		if m.TeamID == teamID && m.UserID == userID {
			return true
		}
	}
	return false
}

func (r *projectRepo) Update(_ context.Context, project *repository.Project) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	project.UpdatedAt = r.s.Now()
	r.s.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.projects, id)
	for taskID, t := range r.s.tasks {
		if t.ProjectID == id {
			r.s.deleteTask(taskID)
		}
	}
	return nil
}

// ============================================
// Tasks
// ============================================

type taskRepo struct{ s *Store }

func cloneTask(t *repository.Task) *repository.Task {
	c := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		c.AssigneeID = &id
	}
	return &c
}

func (r *taskRepo) Create(_ context.Context, task *repository.Task) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	task.ID = r.s.nextID("task")
	task.CreatedAt, task.UpdatedAt = r.s.Now(), r.s.Now()
	r.s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *taskRepo) FindByID(_ context.Context, id string) (*repository.Task, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if t, ok := r.s.tasks[id]; ok {
		return cloneTask(t), nil
	}
	return nil, nil
}

func (r *taskRepo) filter(match func(*repository.Task) bool) []*repository.Task {
	var out []*repository.Task
	for _, t := range r.s.tasks {
		if match(t) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *taskRepo) FindByProjectID(_ context.Context, projectID string, status *string) ([]*repository.Task, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.filter(func(t *repository.Task) bool {
		return t.ProjectID == projectID && (status == nil || t.Status == *status)
	}), nil
}

func (r *taskRepo) FindByAssigneeID(_ context.Context, assigneeID string) ([]*repository.Task, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	return r.filter(func(t *repository.Task) bool {
		return t.AssigneeID != nil && *t.AssigneeID == assigneeID
	}), nil
}

func (r *taskRepo) Update(_ context.Context, task *repository.Task) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	task.UpdatedAt = r.s.Now()
	r.s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *taskRepo) UpdateAssignee(_ context.Context, taskID string, assigneeID *string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if t, ok := r.s.tasks[taskID]; ok {
		t.AssigneeID = assigneeID
		t.RemindedAt = nil
		t.UpdatedAt = r.s.Now()
	}
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	r.s.deleteTask(id)
	return nil
}

func (s *Store) deleteTask(id string) {
	delete(s.tasks, id)
	for cid, c := range s.comments {
		if c.TaskID == id {
			delete(s.comments, cid)
		}
	}
	for aid, a := range s.attachments {
		if a.TaskID == id {
			delete(s.attachments, aid)
		}
	}
}

func (r *taskRepo) FindDueForReminder(_ context.Context, dueBefore, remindedBefore time.Time) ([]*repository.Task, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	now := r.s.Now()
	return r.filter(func(t *repository.Task) bool {
		return t.AssigneeID != nil && t.Status != "done" && t.DueDate != nil &&
			t.DueDate.After(now) && !t.DueDate.After(dueBefore) &&
			(t.RemindedAt == nil || t.RemindedAt.Before(remindedBefore))
	}), nil
}

func (r *taskRepo) MarkReminded(_ context.Context, taskID string, at time.Time) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if t, ok := r.s.tasks[taskID]; ok {
		t.RemindedAt = &at
	}
	return nil
}

// ============================================
// Comments
// ============================================

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, comment *repository.TaskComment) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	comment.ID = r.s.nextID("comment")
	comment.CreatedAt, comment.UpdatedAt = r.s.Now(), r.s.Now()
	c := *comment
	r.s.comments[comment.ID] = &c
	return nil
}

func (r *commentRepo) FindByID(_ context.Context, id string) (*repository.TaskComment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if c, ok := r.s.comments[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, nil
}

func (r *commentRepo) FindByTaskID(_ context.Context, taskID string) ([]*repository.TaskComment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.TaskComment
	for _, c := range r.s.comments {
		if c.TaskID == taskID {
			cc := *c
			if u, ok := r.s.users[c.UserID]; ok {
				uc := *u
				cc.User = &uc
			}
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *commentRepo) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.comments, id)
	return nil
}

// ============================================
// Attachments
// ============================================

type attachmentRepo struct{ s *Store }

func (r *attachmentRepo) Create(_ context.Context, attachment *repository.TaskAttachment) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	attachment.ID = r.s.nextID("attachment")
	attachment.CreatedAt = r.s.Now()
	c := *attachment
	r.s.attachments[attachment.ID] = &c
	return nil
}

func (r *attachmentRepo) FindByID(_ context.Context, id string) (*repository.TaskAttachment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if a, ok := r.s.attachments[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, nil
}

func (r *attachmentRepo) FindByTaskID(_ context.Context, taskID string) ([]*repository.TaskAttachment, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.TaskAttachment
	for _, a := range r.s.attachments {
		if a.TaskID == taskID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *attachmentRepo) Delete(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	delete(r.s.attachments, id)
	return nil
}

// ============================================
// Notifications
// ============================================

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *repository.Notification) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	n.ID = r.s.nextID("notification")
	n.CreatedAt = r.s.Now()
	c := *n
	r.s.notifications[n.ID] = &c
	return nil
}

func (r *notificationRepo) FindByID(_ context.Context, id string) (*repository.Notification, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if n, ok := r.s.notifications[id]; ok {
		c := *n
		return &c, nil
	}
	return nil, nil
}

func (r *notificationRepo) FindByUserID(_ context.Context, userID string, unreadOnly bool) ([]*repository.Notification, error) {
	if err := r.s.lock(); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var out []*repository.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *notificationRepo) CountByUserID(_ context.Context, userID string) (int, int, error) {
	if err := r.s.lock(); err != nil {
		return 0, 0, err
	}
	defer r.s.mu.Unlock()
	total, unread := 0, 0
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			total++
			if !n.Read {
				unread++
			}
		}
	}
	return total, unread, nil
}

func (r *notificationRepo) MarkAsRead(_ context.Context, id string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if n, ok := r.s.notifications[id]; ok {
		n.Read = true
	}
	return nil
}

func (r *notificationRepo) MarkAllAsRead(_ context.Context, userID string) error {
	if err := r.s.lock(); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *notificationRepo) DeleteReadOlderThan(_ context.Context, olderThan time.Time) (int, error) {
	if err := r.s.lock(); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	deleted := 0
	for id, n := range r.s.notifications {
		if n.Read && n.CreatedAt.Before(olderThan) {
			delete(r.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// ============================================
// Inspection helpers
// ============================================

// Notifications returns every stored notification for userID.
func (s *Store) Notifications(userID string) []*repository.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*repository.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetNotificationTime backdates a notification.
func (s *Store) SetNotificationTime(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok {
		n.CreatedAt = at
	}
}
