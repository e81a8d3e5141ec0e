package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reactionBatch(startNumber, n int) []ReactionTrialInput {
	trials := make([]ReactionTrialInput, 0, n)
	for i := 0; i < n; i++ {
		trials = append(trials, ReactionTrialInput{
			StimulusType:     "red",
			StimulusCategory: "led",
			ResponseTime:     250 + i,
			TrialNumber:      startNumber + i,
			ReactionType:     "correct",
		})
	}
	return trials
}

func TestAppendReactionTrials(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	resp, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID,
		SessionID:  sessionID,
		Trials:     reactionBatch(1, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Appended)
	assert.Equal(t, 5, resp.TrialsCompleted)

	resp, err = env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID,
		SessionID:  sessionID,
		Trials:     reactionBatch(6, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, resp.TrialsCompleted)

	records, err := env.trial.GetSessionRecords(ctx, operatorID, sessionID)
	require.NoError(t, err)
	require.Len(t, records.ReactionTrials, 8)
	for i, trial := range records.ReactionTrials {
		assert.Equal(t, i+1, trial.TrialNumber)
	}
}

func TestAppendReactionTrialsConcurrent(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)

	const workers = 8
	const perBatch = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_, err := env.trial.AppendReactionTrials(context.Background(), AppendReactionTrialsRequest{
				OperatorID: operatorID,
				SessionID:  sessionID,
				Trials:     reactionBatch(w*perBatch+1, perBatch),
			})
			assert.NoError(t, err)
		}(w)
	}
	wg.Wait()

	// No lost updates: the counter equals the sum of all batch sizes.
	detail, err := env.session.GetSession(context.Background(), operatorID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, workers*perBatch, detail.Session.TrialsCompleted)

	records, err := env.trial.GetSessionRecords(context.Background(), operatorID, sessionID)
	require.NoError(t, err)
	assert.Len(t, records.ReactionTrials, workers*perBatch)
}

func TestAppendInAnySessionState(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	ctx := context.Background()

	// Clients buffer locally and may upload before starting or after
	// completing, so only ownership gates the append.
	draftID := env.createSession(t, operatorID, respondentID)
	resp, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID, SessionID: draftID, Trials: reactionBatch(1, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.TrialsCompleted)

	completedID := env.activeSession(t, operatorID, respondentID)
	_, err = env.session.CompleteSession(ctx, operatorID, completedID)
	require.NoError(t, err)
	resp, err = env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID, SessionID: completedID, Trials: reactionBatch(1, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TrialsCompleted)

	_, err = env.trial.AddTympanicReading(ctx, AddTympanicReadingRequest{
		OperatorID: operatorID, SessionID: draftID,
		Temperature: 36.5, ReadingNumber: 1,
	})
	require.NoError(t, err)

	// Another operator's sessions stay invisible.
	otherID := env.activeOperator(t, adminID, "op2")
	_, err = env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: otherID, SessionID: draftID, Trials: reactionBatch(1, 1),
	})
	assert.True(t, IsCode(err, ErrorNotFound))
}

func TestAppendReactionTrialsValidation(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	cases := []struct {
		name  string
		trial ReactionTrialInput
	}{
		{"bad stimulus", ReactionTrialInput{StimulusType: "purple", StimulusCategory: "led", ResponseTime: 1, TrialNumber: 1, ReactionType: "correct"}},
		{"bad category", ReactionTrialInput{StimulusType: "red", StimulusCategory: "smell", ResponseTime: 1, TrialNumber: 1, ReactionType: "correct"}},
		{"negative response time", ReactionTrialInput{StimulusType: "red", StimulusCategory: "led", ResponseTime: -1, TrialNumber: 1, ReactionType: "correct"}},
		{"zero trial number", ReactionTrialInput{StimulusType: "red", StimulusCategory: "led", ResponseTime: 1, TrialNumber: 0, ReactionType: "correct"}},
		{"bad reaction type", ReactionTrialInput{StimulusType: "red", StimulusCategory: "led", ResponseTime: 1, TrialNumber: 1, ReactionType: "maybe"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
				OperatorID: operatorID, SessionID: sessionID,
				Trials: []ReactionTrialInput{tc.trial},
			})
			assert.True(t, IsCode(err, ErrorInvalid))
		})
	}

	_, err := env.trial.AppendReactionTrials(ctx, AppendReactionTrialsRequest{
		OperatorID: operatorID, SessionID: sessionID,
	})
	assert.True(t, IsCode(err, ErrorInvalid))
}

func TestAddTympanicReading(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	readingTime := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	reading, err := env.trial.AddTympanicReading(ctx, AddTympanicReadingRequest{
		OperatorID:       operatorID,
		SessionID:        sessionID,
		Temperature:      36.8,
		ReadingNumber:    1,
		MeasurementPhase: "baseline",
		BodyPosition:     "sitting",
		ReadingTime:      readingTime,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reading.ReadingID)
	assert.Equal(t, readingTime, reading.ReadingTime)

	_, err = env.trial.AddTympanicReading(ctx, AddTympanicReadingRequest{
		OperatorID: operatorID, SessionID: sessionID,
		Temperature: 60.0, ReadingNumber: 2,
	})
	assert.True(t, IsCode(err, ErrorInvalid))

	t.Run("freezing environment temp round-trips", func(t *testing.T) {
		envTemp := 0.0
		reading, err := env.trial.AddTympanicReading(ctx, AddTympanicReadingRequest{
			OperatorID: operatorID, SessionID: sessionID,
			Temperature: 35.9, ReadingNumber: 2, EnvironmentTemp: &envTemp,
		})
		require.NoError(t, err)
		require.NotNil(t, reading.EnvironmentTemp)
		assert.Equal(t, 0.0, *reading.EnvironmentTemp)
	})

	// Tympanic readings do not advance the trial counter.
	detail, err := env.session.GetSession(ctx, operatorID, sessionID)
	require.NoError(t, err)
	assert.Zero(t, detail.Session.TrialsCompleted)
}

func TestAddVitalReading(t *testing.T) {
	env := newTestEnv(t)
	adminID := env.createAdmin(t, "admin1")
	operatorID := env.activeOperator(t, adminID, "op1")
	respondentID := env.createRespondent(t, operatorID, "Alice")
	sessionID := env.activeSession(t, operatorID, respondentID)
	ctx := context.Background()

	reading, err := env.trial.AddVitalReading(ctx, AddVitalReadingRequest{
		OperatorID:       operatorID,
		SessionID:        sessionID,
		HeartRate:        72,
		SpO2:             98,
		ReadingNumber:    1,
		MeasurementPhase: "baseline",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reading.ReadingID)
	assert.Equal(t, 72, reading.HeartRate)

	t.Run("all vitals empty", func(t *testing.T) {
		_, err := env.trial.AddVitalReading(ctx, AddVitalReadingRequest{
			OperatorID: operatorID, SessionID: sessionID, ReadingNumber: 2,
		})
		assert.True(t, IsCode(err, ErrorInvalid))
	})

	t.Run("spo2 out of range", func(t *testing.T) {
		_, err := env.trial.AddVitalReading(ctx, AddVitalReadingRequest{
			OperatorID: operatorID, SessionID: sessionID, SpO2: 130, ReadingNumber: 2,
		})
		assert.True(t, IsCode(err, ErrorInvalid))
	})

	t.Run("zero hrv is a measurement, not absence", func(t *testing.T) {
		hrv := 0.0
		reading, err := env.trial.AddVitalReading(ctx, AddVitalReadingRequest{
			OperatorID: operatorID, SessionID: sessionID,
			HeartRateVariability: &hrv, ReadingNumber: 2,
		})
		require.NoError(t, err)
		require.NotNil(t, reading.HeartRateVariability)
		assert.Equal(t, 0.0, *reading.HeartRateVariability)
	})
}
