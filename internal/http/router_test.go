package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"
	"ergoquipt-data/internal/service"
	"ergoquipt-data/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestServer wires the full router over in-memory storage and seeds one
// admin account.
func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryUsersRepository) {
	t.Helper()
	logger := zap.NewNop()

	users := repository.NewMemoryUsersRepository()
	sessions := repository.NewMemorySessionsRepository(users)
	respondents := repository.NewMemoryRespondentsRepository()
	trials := repository.NewMemoryTrialsRepository(sessions)
	tokens := token.NewManager("test-secret", time.Hour)

	hash, err := service.HashPassword("Admin#Pass1")
	require.NoError(t, err)
	_, err = users.CreateUser(context.Background(), &domain.User{
		Username:         "admin",
		Email:            "admin@ergoquipt.test",
		PasswordHash:     hash,
		FullName:         "Admin",
		Role:             domain.RoleAdmin,
		Status:           domain.UserStatusActive,
		RegistrationType: domain.RegistrationSelfRegistered,
		PlatformAccess:   domain.PlatformBoth,
	}, nil)
	require.NoError(t, err)

	authService := service.NewAuthService(users, tokens, logger)
	router := NewRouter(NewAuthMiddleware(tokens, users, logger), Handlers{
		Auth:        NewAuthHandler(authService, logger),
		AdminUsers:  NewAdminUsersHandler(service.NewUserService(users, logger), logger),
		Respondents: NewRespondentsHandler(service.NewRespondentService(respondents, logger), logger),
		Sessions:    NewSessionsHandler(service.NewSessionService(sessions, respondents, logger), logger),
		Trials:      NewTrialsHandler(service.NewTrialService(trials, sessions, logger), logger),
		Export:      NewExportHandler(service.NewExportService(sessions, trials, users, respondents, logger), logger),
	}, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, users
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func login(t *testing.T, srv *httptest.Server, username, password, platform string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
		"platform": platform,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login body: %v", body)
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestLoginAndGatedRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	body := login(t, srv, "admin", "Admin#Pass1", "web")
	adminToken, _ := body["token"].(string)
	require.NotEmpty(t, adminToken)
	assert.Equal(t, false, body["requires_password_change"])

	t.Run("missing token", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/admin/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/admin/users", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
			"username": "admin", "password": "wrong", "platform": "web",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		errObj, _ := body["error"].(map[string]any)
		require.NotNil(t, errObj)
		assert.Equal(t, "invalid_credentials", errObj["code"])
	})

	t.Run("admin token may not use operator routes", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions", adminToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("web-only operator may not use mobile routes", func(t *testing.T) {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/users/register", adminToken, map[string]string{
			"username":        "webonly",
			"email":           "webonly@ergoquipt.test",
			"full_name":       "Web Only",
			"platform_access": "web",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "register body: %v", body)
		tempPassword := body["temporary_password"].(string)

		operatorToken := login(t, srv, "webonly", tempPassword, "web")["token"].(string)
		resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/sessions", operatorToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestOperatorProvisioningFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	adminToken := login(t, srv, "admin", "Admin#Pass1", "web")["token"].(string)

	// Admin provisions an operator and receives the one-time temporary password.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/admin/users/register", adminToken, map[string]string{
		"username":  "op1",
		"email":     "op1@ergoquipt.test",
		"full_name": "First Operator",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register body: %v", body)
	tempPassword, _ := body["temporary_password"].(string)
	require.NotEmpty(t, tempPassword)

	// The operator logs in on mobile with the flag set, rotates, and gets a
	// fresh token.
	loginBody := login(t, srv, "op1", tempPassword, "mobile")
	assert.Equal(t, true, loginBody["requires_password_change"])
	operatorToken := loginBody["token"].(string)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/change-password", operatorToken, map[string]string{
		"old_password":     tempPassword,
		"new_password":     "Fresh#Pass12",
		"confirm_password": "Fresh#Pass12",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "change body: %v", body)
	operatorToken = body["token"].(string)

	// Now the full data-collection flow works end to end.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/respondents", operatorToken, map[string]any{
		"guest_name": "Alice", "status": "student", "age": 24,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "respondent body: %v", body)
	respondentID := body["respondent_id"].(string)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions", operatorToken, map[string]any{
		"respondent_id": respondentID,
		"test_type":     "reaction_time",
		"total_trials":  10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "session body: %v", body)
	sessionObj := body["session"].(map[string]any)
	sessionID := sessionObj["session_id"].(string)

	resp, _ = doJSON(t, http.MethodPatch, srv.URL+fmt.Sprintf("/api/v1/sessions/%s/start", sessionID), operatorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, srv.URL+fmt.Sprintf("/api/v1/sessions/%s/trials/batch", sessionID), operatorToken, map[string]any{
		"trials": []map[string]any{
			{"stimulus_type": "red", "stimulus_category": "led", "response_time": 301, "trial_number": 1, "reaction_type": "correct"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "trials body: %v", body)
	assert.EqualValues(t, 1, body["trials_completed"])

	// Starting twice maps the invalid state onto 400.
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+fmt.Sprintf("/api/v1/sessions/%s/start", sessionID), operatorToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPatch, srv.URL+fmt.Sprintf("/api/v1/sessions/%s/complete", sessionID), operatorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Both the operator and the provisioning admin can download the session CSV.
	for _, bearer := range []string{operatorToken, adminToken} {
		resp, _ = doJSON(t, http.MethodGet, srv.URL+fmt.Sprintf("/api/v1/export/sessions/%s/csv", sessionID), bearer, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	}
}
