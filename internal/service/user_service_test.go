package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOperator(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	ctx := context.Background()

	resp, err := env.userAdmin.RegisterOperator(ctx, RegisterOperatorRequest{
		AdminID:  adminID,
		Username: "op1",
		Email:    "op1@ergoquipt.test",
		FullName: "First Operator",
		Notes:    "cohort A",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OperatorID)
	require.Len(t, resp.TemporaryPassword, DefaultTemporaryPasswordLength)
	ok, _ := ValidatePasswordStrength(resp.TemporaryPassword)
	assert.True(t, ok)

	detail, err := env.userAdmin.GetOperator(ctx, adminID, resp.OperatorID)
	require.NoError(t, err)
	assert.Equal(t, "pending", detail.Operator.Status)
	assert.Equal(t, "operator", detail.Operator.Role)
	assert.Equal(t, "mobile", detail.Operator.PlatformAccess)

	require.Len(t, detail.Logs, 1)
	assert.Equal(t, "create", detail.Logs[0].Action)
	assert.Equal(t, adminID, detail.Logs[0].AdminID)
	assert.Equal(t, "cohort A", detail.Logs[0].Notes)
}

func TestRegisterOperatorConflicts(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	env.registerOperator(t, adminID, "op1")
	ctx := context.Background()

	t.Run("duplicate username", func(t *testing.T) {
		_, err := env.userAdmin.RegisterOperator(ctx, RegisterOperatorRequest{
			AdminID:  adminID,
			Username: "op1",
			Email:    "different@ergoquipt.test",
			FullName: "Dup",
		})
		assert.True(t, IsCode(err, ErrorConflict))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.userAdmin.RegisterOperator(ctx, RegisterOperatorRequest{
			AdminID:  adminID,
			Username: "different",
			Email:    "op1@ergoquipt.test",
			FullName: "Dup",
		})
		assert.True(t, IsCode(err, ErrorConflict))
	})
}

func TestRegisterOperatorValidation(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterOperatorRequest
	}{
		{"missing username", RegisterOperatorRequest{AdminID: adminID, Email: "a@b.c", FullName: "X"}},
		{"bad email", RegisterOperatorRequest{AdminID: adminID, Username: "x", Email: "nope", FullName: "X"}},
		{"missing full name", RegisterOperatorRequest{AdminID: adminID, Username: "x", Email: "a@b.c"}},
		{"bad platform access", RegisterOperatorRequest{AdminID: adminID, Username: "x", Email: "a@b.c", FullName: "X", PlatformAccess: "desktop"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.userAdmin.RegisterOperator(ctx, tc.req)
			assert.True(t, IsCode(err, ErrorInvalid))
		})
	}
}

func TestOperatorScopingAcrossAdmins(t *testing.T) {
	env := newTestEnv(t)
	adminA := env.createAdmin(t, "adminA")
	adminB := env.createAdmin(t, "adminB")
	operatorID, _ := env.registerOperator(t, adminA, "op1")
	ctx := context.Background()

	// Another admin gets not-found, never forbidden: existence of other admins'
	// operators is not disclosed.
	_, err := env.userAdmin.GetOperator(ctx, adminB, operatorID)
	assert.True(t, IsCode(err, ErrorNotFound))

	err = env.userAdmin.UpdateOperatorStatus(ctx, UpdateOperatorStatusRequest{
		AdminID: adminB, OperatorID: operatorID, Status: "suspended",
	})
	assert.True(t, IsCode(err, ErrorNotFound))

	_, err = env.userAdmin.ResetOperatorPassword(ctx, ResetOperatorPasswordRequest{
		AdminID: adminB, OperatorID: operatorID,
	})
	assert.True(t, IsCode(err, ErrorNotFound))

	// The rightful owner still sees an untouched operator.
	detail, err := env.userAdmin.GetOperator(ctx, adminA, operatorID)
	require.NoError(t, err)
	assert.Equal(t, "pending", detail.Operator.Status)
	assert.Len(t, detail.Logs, 1)
}

func TestListOperators(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	otherAdmin := env.createAdmin(t, "admin2")
	ctx := context.Background()

	op1, _ := env.registerOperator(t, adminID, "op1")
	op2, _ := env.registerOperator(t, adminID, "op2")
	env.registerOperator(t, otherAdmin, "op3")

	require.NoError(t, env.userAdmin.UpdateOperatorStatus(ctx, UpdateOperatorStatusRequest{
		AdminID: adminID, OperatorID: op2, Status: "inactive",
	}))

	all, err := env.userAdmin.ListOperators(ctx, ListOperatorsRequest{AdminID: adminID})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	require.Len(t, all.Operators, 2)
	// creation order
	assert.Equal(t, op1, all.Operators[0].UserID)
	assert.Equal(t, op2, all.Operators[1].UserID)

	pending, err := env.userAdmin.ListOperators(ctx, ListOperatorsRequest{AdminID: adminID, Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Total)
	assert.Equal(t, op1, pending.Operators[0].UserID)

	_, err = env.userAdmin.ListOperators(ctx, ListOperatorsRequest{AdminID: adminID, Status: "bogus"})
	assert.True(t, IsCode(err, ErrorInvalid))
}

func TestResetOperatorPassword(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	ctx := context.Background()

	resp, err := env.userAdmin.ResetOperatorPassword(ctx, ResetOperatorPasswordRequest{
		AdminID: adminID, OperatorID: operatorID,
	})
	require.NoError(t, err)
	require.Len(t, resp.TemporaryPassword, DefaultTemporaryPasswordLength)

	// The reset reopens the forced-rotation flow.
	login, err := env.auth.Login(ctx, LoginRequest{
		Username: "op1", Password: resp.TemporaryPassword, Platform: "mobile",
	})
	require.NoError(t, err)
	assert.True(t, login.RequiresPasswordChange)

	detail, err := env.userAdmin.GetOperator(ctx, adminID, operatorID)
	require.NoError(t, err)
	actions := make([]string, 0, len(detail.Logs))
	for _, l := range detail.Logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"create", "password_change", "password_reset"}, actions)
}
