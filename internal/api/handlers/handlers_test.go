package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-tasks-api/internal/access"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
	}{
		{"not a member", access.Deny(access.ReasonNotMember).Err(), http.StatusForbidden, "not-a-member", access.ReasonNotMember.Message()},
		{"wrapped denial", fmt.Errorf("update task: %w", access.Deny(access.ReasonInsufficientRole).Err()), http.StatusForbidden, "insufficient-role", access.ReasonInsufficientRole.Message()},
		{"owner only", access.Deny(access.ReasonOwnerOnly).Err(), http.StatusForbidden, "owner-only", access.ReasonOwnerOnly.Message()},
		{"not found", service.ErrNotFound, http.StatusNotFound, "", "Resource not found"},
		{"user exists", service.ErrUserExists, http.StatusConflict, "", "User already exists"},
		{"conflict", fmt.Errorf("key: %w", service.ErrConflict), http.StatusConflict, "", "Resource already exists"},
		{"invalid input", fmt.Errorf("%w: title is required", service.ErrInvalidInput), http.StatusBadRequest, "", "invalid input: title is required"},
		{"too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "", "File too large"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "", "Invalid email or password"},
		{"bad token", service.ErrInvalidToken, http.StatusUnauthorized, "", "Invalid or expired token"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/projects/p-1", nil)

			respondError(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.reason, body.Reason)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestRespondEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respond(c, http.StatusCreated, gin.H{"id": "t-1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"t-1"}}`, w.Body.String())
}
