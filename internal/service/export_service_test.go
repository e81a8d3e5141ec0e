package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"ergoquipt-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func parseCSV(t *testing.T, content []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportSessionCSVReactionTime(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	_, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID,
		SessionID:  sessionID,
		Trials: []ReactionTrialInput{
			{StimulusType: "red", StimulusCategory: "led", ResponseTime: 312, TrialNumber: 1, ReactionType: "correct"},
			{StimulusType: "siren", StimulusCategory: "sound", ResponseTime: 545, TrialNumber: 2, ReactionType: "timeout"},
		},
	})
	require.NoError(t, err)

	file, err := env.export.ExportSessionCSV(ctx, operatorID, domain.RoleOperator, sessionID)
	require.NoError(t, err)

	// The provisioning admin reaches the same session through ownership of the
	// operator.
	_, err = env.export.ExportSessionCSV(ctx, adminID, domain.RoleAdmin, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Regexp(t, `^RT-\d{8}-[A-Z0-9]{3}_reaction_time_\d{8}_\d{6}\.csv$`, file.Filename)

	rows := parseCSV(t, file.Content)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Trial Number", "Stimulus Type", "Stimulus Category", "Response Time (ms)", "Reaction Type", "Timestamp"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "red", rows[1][1])
	assert.Equal(t, "312", rows[1][3])
	assert.Equal(t, "timeout", rows[2][4])
}

func TestExportSessionCSVScoping(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	otherOperator := env.activeOperator(t, adminID, "op2")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.createSession(t, operatorID, respondentID)

	_, err := env.export.ExportSessionCSV(context.Background(), otherOperator, domain.RoleOperator, sessionID)
	assert.True(t, IsCode(err, ErrorNotFound))

	foreignAdmin := env.createAdmin(t, "admin2")
	_, err = env.export.ExportSessionCSV(context.Background(), foreignAdmin, domain.RoleAdmin, sessionID)
	assert.True(t, IsCode(err, ErrorNotFound))
}

func TestExportSessionsCSV(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	_, err := env.session.CompleteSession(ctx, operatorID, sessionID)
	require.NoError(t, err)

	file, err := env.export.ExportSessionsCSV(ctx, AdminExportRequest{
		AdminID:   adminID,
		StartDate: time.Now().AddDate(0, 0, -1),
		EndDate:   time.Now().AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	rows := parseCSV(t, file.Content)
	require.Len(t, rows, 2)
	assert.Equal(t, "Session Code", rows[0][0])
	assert.Equal(t, "Operator op1", rows[1][1])
	assert.Equal(t, "Alice", rows[1][2])
	assert.Equal(t, "completed", rows[1][4])
}

func TestExportSessionsXLSX(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	env.createSession(t, operatorID, respondentID)

	file, err := env.export.ExportSessionsXLSX(context.Background(), AdminExportRequest{AdminID: adminID})
	require.NoError(t, err)
	assert.Contains(t, file.ContentType, "spreadsheetml")

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Sessions")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Session Code", rows[0][0])
	assert.Equal(t, "draft", rows[1][4])
}

func TestExportOperatorPerformanceCSV(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	env.activeOperator(t, adminID, "op2")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	_, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID,
		SessionID:  sessionID,
		Trials:     reactionBatch(1, 4),
	})
	require.NoError(t, err)
	_, err = env.session.CompleteSession(ctx, operatorID, sessionID)
	require.NoError(t, err)

	file, err := env.export.ExportOperatorPerformanceCSV(ctx, AdminExportRequest{
		AdminID:   adminID,
		StartDate: time.Now().AddDate(0, 0, -1),
		EndDate:   time.Now().AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	rows := parseCSV(t, file.Content)
	require.Len(t, rows, 3) // header + two operators

	assert.Equal(t, "Operator op1", rows[1][0])
	assert.Equal(t, "1", rows[1][1]) // total sessions
	assert.Equal(t, "1", rows[1][2]) // completed
	assert.Equal(t, "4", rows[1][7]) // total trials
	assert.Equal(t, "4.00", rows[1][8])

	// Operator with no sessions still gets a row of zeros.
	assert.Equal(t, "Operator op2", rows[2][0])
	assert.Equal(t, "0", rows[2][1])
	assert.Equal(t, "", rows[2][9])
}
