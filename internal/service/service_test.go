package service

import (
	"context"
	"testing"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"
	"ergoquipt-data/internal/token"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires every service over the in-memory repositories.
type testEnv struct {
	users       *repository.MemoryUsersRepository
	respondents *repository.MemoryRespondentsRepository
	sessions    *repository.MemorySessionsRepository
	trials      *repository.MemoryTrialsRepository

	tokens *token.Manager

	auth        AuthService
	userAdmin   UserService
	respondent  RespondentService
	session     SessionService
	trial       TrialService
	export      ExportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	users := repository.NewMemoryUsersRepository()
	sessions := repository.NewMemorySessionsRepository(users)
	respondents := repository.NewMemoryRespondentsRepository()
	trials := repository.NewMemoryTrialsRepository(sessions)

	tokens := token.NewManager("test-secret", time.Hour)

	return &testEnv{
		users:       users,
		respondents: respondents,
		sessions:    sessions,
		trials:      trials,
		tokens:      tokens,
		auth:        NewAuthService(users, tokens, logger),
		userAdmin:   NewUserService(users, logger),
		respondent:  NewRespondentService(respondents, logger),
		session:     NewSessionService(sessions, respondents, logger),
		trial:       NewTrialService(trials, sessions, logger),
		export:      NewExportService(sessions, trials, users, respondents, logger),
	}
}

// createAdmin seeds an active admin account and returns its ID.
func (e *testEnv) createAdmin(t *testing.T, username string) string {
	t.Helper()
	hash, err := HashPassword("Admin#Pass1")
	require.NoError(t, err)
	adminID, err := e.users.CreateUser(context.Background(), &domain.User{
		Username:         username,
		Email:            username + "@ergoquipt.test",
		PasswordHash:     hash,
		FullName:         "Admin " + username,
		Role:             domain.RoleAdmin,
		Status:           domain.UserStatusActive,
		RegistrationType: domain.RegistrationSelfRegistered,
		PlatformAccess:   domain.PlatformWeb,
	}, nil)
	require.NoError(t, err)
	return adminID
}

// registerOperator provisions an operator under adminID and returns the
// operator ID and its temporary password.
func (e *testEnv) registerOperator(t *testing.T, adminID, username string) (string, string) {
	t.Helper()
	resp, err := e.userAdmin.RegisterOperator(context.Background(), RegisterOperatorRequest{
		AdminID:  adminID,
		Username: username,
		Email:    username + "@ergoquipt.test",
		FullName: "Operator " + username,
	})
	require.NoError(t, err)
	return resp.OperatorID, resp.TemporaryPassword
}

// activeOperator provisions an operator and rotates its password so it can use
// data-collection endpoints without the first-login detour.
func (e *testEnv) activeOperator(t *testing.T, adminID, username string) string {
	t.Helper()
	operatorID, tempPassword := e.registerOperator(t, adminID, username)
	_, err := e.auth.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          operatorID,
		Platform:        "mobile",
		OldPassword:     tempPassword,
		NewPassword:     "Oper@tor9pass",
		ConfirmPassword: "Oper@tor9pass",
	})
	require.NoError(t, err)
	return operatorID
}

// createRespondent seeds a respondent owned by operatorID.
func (e *testEnv) createRespondent(t *testing.T, operatorID, name string) string {
	t.Helper()
	respondent, err := e.respondent.CreateRespondent(context.Background(), CreateRespondentRequest{
		OperatorID: operatorID,
		GuestName:  name,
		Gender:     "female",
		Age:        28,
		Status:     "student",
	})
	require.NoError(t, err)
	return respondent.RespondentID
}

// createSession seeds a draft reaction-time session.
func (e *testEnv) createSession(t *testing.T, operatorID, respondentID string) string {
	t.Helper()
	detail, err := e.session.CreateSession(context.Background(), CreateSessionRequest{
		OperatorID:   operatorID,
		RespondentID: respondentID,
		TestType:     "reaction_time",
		TotalTrials:  30,
		Configs: []SessionConfigInput{
			{ConfigType: "reaction_time", StimulusType: "red", StimulusCategory: "led", TrialsPerStimulus: 10, OrderIndex: 1},
		},
	})
	require.NoError(t, err)
	return detail.Session.SessionID
}

// activeSession seeds a session and starts it.
func (e *testEnv) activeSession(t *testing.T, operatorID, respondentID string) string {
	t.Helper()
	sessionID := e.createSession(t, operatorID, respondentID)
	_, err := e.session.StartSession(context.Background(), operatorID, sessionID)
	require.NoError(t, err)
	return sessionID
}
