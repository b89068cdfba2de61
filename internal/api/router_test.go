package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/auth"
	"github.com/Marga-Ghale/ora-tasks-api/internal/config"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository/repotest"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

type testServer struct {
	router *gin.Engine
	store  *repotest.Store
	tokens *auth.TokenManager
}

// newTestServer seeds p-1 (owner u-owner) backed by team-1 with an admin,
// a member and a viewer. u-outsider belongs to nothing.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repotest.New()
	for _, id := range []string{"u-owner", "u-admin", "u-member", "u-viewer", "u-outsider"} {
		store.AddUser(id, id, id+"@ora.test")
	}
	store.AddTeam("team-1", "Core", "u-admin")
	store.AddTeamMember("team-1", "u-admin", "admin")
	store.AddTeamMember("team-1", "u-member", "member")
	store.AddTeamMember("team-1", "u-viewer", "viewer")
	store.AddProject("p-1", "CORE", "u-owner", "team-1")

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	services := service.NewServices(&service.ServiceDeps{
		Config:   &config.Config{RefreshExpiry: 7, MaxUploadMB: 1},
		Repos:    store.Repositories(),
		Tokens:   tokens,
		Sessions: auth.NewMemoryTokenStore(time.Minute),
		Files:    files,
	})

	router := NewRouter(RouterDeps{
		Services:    services,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &testServer{router: router, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.authorize(t, req, userID)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) authorize(t *testing.T, req *http.Request, userID string) {
	t.Helper()
	if userID == "" {
		return
	}
	token, _, err := s.tokens.Issue(userID)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// ============================================
// Health and auth
// ============================================

func TestHealth(t *testing.T) {
	router := NewRouter(RouterDeps{
		Services: newTestServices(t),
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		},
		WSClients: func() int { return 3 },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(3), body["ws_clients"])
	assert.Equal(t, map[string]interface{}{"database": "connected"}, body["components"])
}

func TestHealthDegraded(t *testing.T) {
	router := NewRouter(RouterDeps{
		Services: newTestServices(t),
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
}

func newTestServices(t *testing.T) *service.Services {
	t.Helper()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return service.NewServices(&service.ServiceDeps{
		Config:   &config.Config{RefreshExpiry: 7, MaxUploadMB: 1},
		Repos:    repotest.New().Repositories(),
		Tokens:   auth.NewTokenManager("test-secret", time.Hour),
		Sessions: auth.NewMemoryTokenStore(time.Minute),
		Files:    files,
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Mira", "email": "mira@ora.test", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var registered struct {
		User        struct{ ID, Email string } `json:"user"`
		AccessToken string                     `json:"accessToken"`
	}
	decodeData(t, w, &registered)
	assert.Equal(t, "mira@ora.test", registered.User.Email)
	require.NotEmpty(t, registered.AccessToken)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Mira", "email": "mira@ora.test", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "mira@ora.test", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), registered.User.ID)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Mira", "email": "not-an-email", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decode(t, w).Success)
}

// ============================================
// Access decisions over HTTP
// ============================================

func TestProjectDenials(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		body   interface{}
		status int
		reason string
	}{
		{"outsider reads", http.MethodGet, "/api/projects/p-1", "u-outsider", nil, http.StatusForbidden, "not-a-member"},
		{"viewer reads", http.MethodGet, "/api/projects/p-1", "u-viewer", nil, http.StatusOK, ""},
		{"member updates", http.MethodPut, "/api/projects/p-1", "u-member", map[string]string{"name": "X"}, http.StatusForbidden, "insufficient-role"},
		{"admin updates", http.MethodPut, "/api/projects/p-1", "u-admin", map[string]string{"name": "Core v2"}, http.StatusOK, ""},
		{"admin deletes", http.MethodDelete, "/api/projects/p-1", "u-admin", nil, http.StatusForbidden, "owner-only"},
		{"missing project", http.MethodGet, "/api/projects/p-missing", "u-owner", nil, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.userID, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.reason != "" {
				env := decode(t, w)
				assert.False(t, env.Success)
				assert.Equal(t, tt.reason, env.Reason)
				assert.NotEmpty(t, env.Message)
			}
		})
	}
}

func TestProjectRoleEndpoint(t *testing.T) {
	s := newTestServer(t)

	type roleBody struct {
		ProjectID string `json:"projectId"`
		Role      string `json:"role"`
		IsMember  bool   `json:"isMember"`
	}

	tests := []struct {
		userID   string
		role     string
		isMember bool
	}{
		{"u-owner", "owner", true},
		{"u-admin", "admin", true},
		{"u-member", "member", true},
		{"u-viewer", "viewer", true},
		{"u-outsider", "none", false},
	}
	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/projects/p-1/role", tt.userID, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var body roleBody
			decodeData(t, w, &body)
			assert.Equal(t, "p-1", body.ProjectID)
			assert.Equal(t, tt.role, body.Role)
			assert.Equal(t, tt.isMember, body.IsMember)
		})
	}

	w := s.do(t, http.MethodGet, "/api/projects/p-missing/role", "u-owner", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/projects/p-1/tasks", "u-member", map[string]string{
		"title": "Write release notes", "priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		ReporterID string `json:"reporterId"`
	}
	decodeData(t, w, &task)
	assert.Equal(t, "todo", task.Status)
	assert.Equal(t, "u-member", task.ReporterID)

	taskPath := "/api/tasks/" + task.ID

	w = s.do(t, http.MethodGet, taskPath, "u-viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, taskPath, "u-outsider", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not-a-member", decode(t, w).Reason)

	w = s.do(t, http.MethodPut, taskPath, "u-viewer", map[string]string{"status": "done"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient-role", decode(t, w).Reason)

	w = s.do(t, http.MethodPut, taskPath, "u-member", map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, taskPath, "u-member", map[string]string{"status": "blocked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, taskPath+"/assignee", "u-member", map[string]string{"assigneeId": "u-viewer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The assignee may update but not delete.
	w = s.do(t, http.MethodPut, taskPath, "u-viewer", map[string]string{"status": "in_review"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, taskPath, "u-viewer", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/tasks/mine", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []struct{ ID string }
	decodeData(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, task.ID, mine[0].ID)

	w = s.do(t, http.MethodGet, "/api/projects/p-1/tasks?status=in_review", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []struct{ ID string }
	decodeData(t, w, &listed)
	assert.Len(t, listed, 1)

	w = s.do(t, http.MethodDelete, taskPath, "u-admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, taskPath, "u-admin", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentsAndNotifications(t *testing.T) {
	s := newTestServer(t)
	s.store.AddTask("t-1", "p-1", "u-member", "u-viewer")

	w := s.do(t, http.MethodPost, "/api/tasks/t-1/comments", "u-admin", map[string]string{"content": "Looks good"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment struct{ ID string }
	decodeData(t, w, &comment)

	w = s.do(t, http.MethodGet, "/api/tasks/t-1/comments", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []struct{ Content string }
	decodeData(t, w, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, "Looks good", comments[0].Content)

	w = s.do(t, http.MethodDelete, "/api/comments/"+comment.ID, "u-member", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "insufficient-role", decode(t, w).Reason)

	// Reporter and assignee were notified of the comment.
	w = s.do(t, http.MethodGet, "/api/notifications/count", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var count struct{ Total, Unread int }
	decodeData(t, w, &count)
	assert.Equal(t, 1, count.Unread)

	w = s.do(t, http.MethodGet, "/api/notifications?unread=true", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []struct{ ID string }
	decodeData(t, w, &notes)
	require.Len(t, notes, 1)

	w = s.do(t, http.MethodPatch, "/api/notifications/"+notes[0].ID+"/read", "u-member", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/api/notifications/read-all", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/notifications/count", "u-viewer", nil)
	decodeData(t, w, &count)
	assert.Zero(t, count.Unread)

	w = s.do(t, http.MethodDelete, "/api/comments/"+comment.ID, "u-admin", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ============================================
// Attachments
// ============================================

func (s *testServer) upload(t *testing.T, taskID, userID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID+"/attachments", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(t, req, userID)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAttachmentUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	s.store.AddTask("t-1", "p-1", "u-member", "")

	w := s.upload(t, "t-1", "u-viewer", "notes.txt", []byte("hello attachment"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var attachment struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		FileSize int64  `json:"fileSize"`
	}
	decodeData(t, w, &attachment)
	assert.Equal(t, "notes.txt", attachment.Filename)
	assert.Equal(t, int64(16), attachment.FileSize)

	w = s.do(t, http.MethodGet, "/api/attachments/"+attachment.ID+"/download", "u-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello attachment", w.Body.String())
	assert.Equal(t, `attachment; filename="notes.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = s.do(t, http.MethodGet, "/api/attachments/"+attachment.ID+"/download", "u-outsider", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/attachments/"+attachment.ID, "u-member", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/attachments/"+attachment.ID, "u-viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/tasks/t-1/attachments", "u-viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var remaining []struct{ ID string }
	decodeData(t, w, &remaining)
	assert.Empty(t, remaining)
}

func TestAttachmentUploadRejections(t *testing.T) {
	s := newTestServer(t)
	s.store.AddTask("t-1", "p-1", "u-member", "")

	w := s.upload(t, "t-1", "u-member", "big.bin", bytes.Repeat([]byte("x"), 1<<20+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.upload(t, "t-1", "u-outsider", "notes.txt", []byte("hi"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/t-1/attachments", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	s.authorize(t, req, "u-member")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================
// Teams
// ============================================

func TestTeamMembershipChangesProjectAccess(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/projects/p-1", "u-outsider", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/teams/team-1/members", "u-member", map[string]string{"userId": "u-outsider"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/teams/team-1/members", "u-admin", map[string]string{"userId": "u-outsider", "role": "viewer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/projects/p-1/role", "u-outsider", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"viewer"`)

	w = s.do(t, http.MethodDelete, "/api/teams/team-1/members/u-outsider", "u-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/projects/p-1", "u-outsider", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
