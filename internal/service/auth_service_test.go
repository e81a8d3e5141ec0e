package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginWithTemporaryPassword(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID, tempPassword := env.registerOperator(t, adminID, "op1")

	resp, err := env.auth.Login(context.Background(), LoginRequest{
		Username: "op1",
		Password: tempPassword,
		Platform: "mobile",
	})
	require.NoError(t, err)

	// A pending account with a temporary password still gets a working token;
	// the flag tells the client to route to the password-change screen.
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.RequiresPasswordChange)
	assert.Equal(t, operatorID, resp.User.UserID)
	assert.Equal(t, "pending", resp.User.Status)

	claims, err := env.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.Subject)
	assert.Equal(t, "operator", claims.Role)
	assert.Equal(t, "mobile", claims.Platform)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID, tempPassword := env.registerOperator(t, adminID, "op1")

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"unknown username", LoginRequest{Username: "nobody", Password: "x", Platform: "mobile"}},
		{"wrong password", LoginRequest{Username: "op1", Password: "wrong", Platform: "mobile"}},
		{"platform not permitted", LoginRequest{Username: "op1", Password: tempPassword, Platform: "web"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.auth.Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrorInvalidCredentials))
			assert.EqualError(t, err, "incorrect username or password")
		})
	}

	t.Run("suspended account", func(t *testing.T) {
		require.NoError(t, env.userAdmin.UpdateOperatorStatus(context.Background(), UpdateOperatorStatusRequest{
			AdminID:    adminID,
			OperatorID: operatorID,
			Status:     "suspended",
		}))
		_, err := env.auth.Login(context.Background(), LoginRequest{
			Username: "op1", Password: tempPassword, Platform: "mobile",
		})
		assert.True(t, IsCode(err, ErrorInvalidCredentials))
	})
}

func TestLoginRejectsInvalidPlatform(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.Login(context.Background(), LoginRequest{
		Username: "someone", Password: "pass", Platform: "desktop",
	})
	assert.True(t, IsCode(err, ErrorInvalid))
}

func TestChangePasswordCompletesFirstLogin(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID, tempPassword := env.registerOperator(t, adminID, "op1")

	resp, err := env.auth.ChangePassword(context.Background(), ChangePasswordRequest{
		UserID:          operatorID,
		Platform:        "mobile",
		OldPassword:     tempPassword,
		NewPassword:     "Fresh#Pass12",
		ConfirmPassword: "Fresh#Pass12",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	// The old password is dead, the new one works, and the flag is cleared.
	_, err = env.auth.Login(context.Background(), LoginRequest{
		Username: "op1", Password: tempPassword, Platform: "mobile",
	})
	assert.True(t, IsCode(err, ErrorInvalidCredentials))

	login, err := env.auth.Login(context.Background(), LoginRequest{
		Username: "op1", Password: "Fresh#Pass12", Platform: "mobile",
	})
	require.NoError(t, err)
	assert.False(t, login.RequiresPasswordChange)
	assert.Equal(t, "active", login.User.Status)
}

func TestChangePasswordValidation(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID, tempPassword := env.registerOperator(t, adminID, "op1")
	ctx := context.Background()

	t.Run("confirmation mismatch", func(t *testing.T) {
		_, err := env.auth.ChangePassword(ctx, ChangePasswordRequest{
			UserID:          operatorID,
			OldPassword:     tempPassword,
			NewPassword:     "Fresh#Pass12",
			ConfirmPassword: "Other#Pass12",
		})
		assert.True(t, IsCode(err, ErrorConfirmationMismatch))
	})

	t.Run("weak new password", func(t *testing.T) {
		_, err := env.auth.ChangePassword(ctx, ChangePasswordRequest{
			UserID:          operatorID,
			OldPassword:     tempPassword,
			NewPassword:     "weakpass",
			ConfirmPassword: "weakpass",
		})
		assert.True(t, IsCode(err, ErrorWeakPassword))
	})

	t.Run("wrong old password", func(t *testing.T) {
		_, err := env.auth.ChangePassword(ctx, ChangePasswordRequest{
			UserID:          operatorID,
			OldPassword:     "not-the-password",
			NewPassword:     "Fresh#Pass12",
			ConfirmPassword: "Fresh#Pass12",
		})
		assert.True(t, IsCode(err, ErrorInvalidCredentials))
	})

	// None of the failures above may have touched the stored credential.
	_, err := env.auth.Login(ctx, LoginRequest{
		Username: "op1", Password: tempPassword, Platform: "mobile",
	})
	require.NoError(t, err)
}

func TestChangePasswordLeavesAuditEntry(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID, tempPassword := env.registerOperator(t, adminID, "op1")
	ctx := context.Background()

	_, err := env.auth.ChangePassword(ctx, ChangePasswordRequest{
		UserID:          operatorID,
		Platform:        "mobile",
		OldPassword:     tempPassword,
		NewPassword:     "Fresh#Pass12",
		ConfirmPassword: "Fresh#Pass12",
	})
	require.NoError(t, err)

	detail, err := env.userAdmin.GetOperator(ctx, adminID, operatorID)
	require.NoError(t, err)

	actions := make([]string, 0, len(detail.Logs))
	for _, l := range detail.Logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"create", "password_change"}, actions)
}
