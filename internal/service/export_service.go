package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ergoquipt-data/internal/domain"
	"ergoquipt-data/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportService read-only exports of stored measurement data. CSV for single
// sessions and per-admin summaries, XLSX for the admin sessions workbook.
type ExportService interface {
	ExportSessionCSV(ctx context.Context, callerID string, callerRole domain.Role, sessionID string) (*ExportFile, error)
	ExportSessionsCSV(ctx context.Context, req AdminExportRequest) (*ExportFile, error)
	ExportSessionsXLSX(ctx context.Context, req AdminExportRequest) (*ExportFile, error)
	ExportOperatorPerformanceCSV(ctx context.Context, req AdminExportRequest) (*ExportFile, error)
}

// ExportFile a generated download: content plus the filename to serve it under.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type exportService struct {
	sessionsRepo    repository.SessionsRepository
	trialsRepo      repository.TrialsRepository
	usersRepo       repository.UsersRepository
	respondentsRepo repository.RespondentsRepository
	logger          *zap.Logger

	now func() time.Time
}

func NewExportService(
	sessionsRepo repository.SessionsRepository,
	trialsRepo repository.TrialsRepository,
	usersRepo repository.UsersRepository,
	respondentsRepo repository.RespondentsRepository,
	logger *zap.Logger,
) ExportService {
	return &exportService{
		sessionsRepo:    sessionsRepo,
		trialsRepo:      trialsRepo,
		usersRepo:       usersRepo,
		respondentsRepo: respondentsRepo,
		logger:          logger,
		now:             time.Now,
	}
}

// ExportSessionCSV writes one session's records as CSV, one layout per test
// type. Combined sessions export their reaction trials. Operators reach their
// own sessions; admins reach the sessions of operators they created.
func (s *exportService) ExportSessionCSV(ctx context.Context, callerID string, callerRole domain.Role, sessionID string) (*ExportFile, error) {
	session, err := s.resolveSession(ctx, callerID, callerRole, sessionID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch session.TestType {
	case domain.TestTympanic:
		if err := s.writeTympanicRows(ctx, w, sessionID); err != nil {
			return nil, err
		}
	case domain.TestVitals:
		if err := s.writeVitalRows(ctx, w, sessionID); err != nil {
			return nil, err
		}
	default:
		if err := s.writeReactionRows(ctx, w, sessionID); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_%s_%s.csv",
		session.SessionCode, session.TestType, s.now().Format("20060102_150405"))

	s.logger.Info("Session exported",
		zap.String("session_id", sessionID),
		zap.String("session_code", session.SessionCode),
		zap.String("filename", filename),
	)
	return &ExportFile{Filename: filename, ContentType: "text/csv", Content: buf.Bytes()}, nil
}

// resolveSession applies the export scope rules and hides out-of-scope
// sessions behind NotFound.
func (s *exportService) resolveSession(ctx context.Context, callerID string, callerRole domain.Role, sessionID string) (*domain.Session, error) {
	session, err := s.sessionsRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFoundError("session not found")
		}
		return nil, err
	}
	if session.OperatorID == callerID {
		return session, nil
	}
	if callerRole == domain.RoleAdmin || callerRole == domain.RoleSuperAdmin {
		if _, err := s.usersRepo.GetOwnedOperator(ctx, callerID, session.OperatorID); err == nil {
			return session, nil
		}
	}
	return nil, NewNotFoundError("session not found")
}

func (s *exportService) writeReactionRows(ctx context.Context, w *csv.Writer, sessionID string) error {
	if err := w.Write([]string{"Trial Number", "Stimulus Type", "Stimulus Category", "Response Time (ms)", "Reaction Type", "Timestamp"}); err != nil {
		return err
	}
	trials, err := s.trialsRepo.ListReactionTrials(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, t := range trials {
		if err := w.Write([]string{
			strconv.Itoa(t.TrialNumber),
			string(t.StimulusType),
			string(t.StimulusCategory),
			strconv.Itoa(t.ResponseTime),
			t.ReactionType,
			t.CreatedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeTympanicRows(ctx context.Context, w *csv.Writer, sessionID string) error {
	if err := w.Write([]string{"Reading Number", "Temperature (°C)", "Measurement Phase", "Body Position", "Environment Temp", "Timestamp"}); err != nil {
		return err
	}
	readings, err := s.trialsRepo.ListTympanicReadings(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, r := range readings {
		environmentTemp := ""
		if r.EnvironmentTemp.Valid {
			environmentTemp = strconv.FormatFloat(r.EnvironmentTemp.Float64, 'f', -1, 64)
		}
		if err := w.Write([]string{
			strconv.Itoa(r.ReadingNumber),
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			r.MeasurementPhase.String,
			r.BodyPosition.String,
			environmentTemp,
			r.ReadingTime.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeVitalRows(ctx context.Context, w *csv.Writer, sessionID string) error {
	if err := w.Write([]string{"Reading Number", "Heart Rate (BPM)", "HRV", "SpO2 (%)", "Measurement Phase", "Activity Context", "Body Position", "Timestamp"}); err != nil {
		return err
	}
	readings, err := s.trialsRepo.ListVitalReadings(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, r := range readings {
		heartRate, hrv, spo2 := "", "", ""
		if r.HeartRate.Valid {
			heartRate = strconv.FormatInt(r.HeartRate.Int64, 10)
		}
		if r.HeartRateVariability.Valid {
			hrv = strconv.FormatFloat(r.HeartRateVariability.Float64, 'f', -1, 64)
		}
		if r.SpO2.Valid {
			spo2 = strconv.FormatInt(r.SpO2.Int64, 10)
		}
		if err := w.Write([]string{
			strconv.Itoa(r.ReadingNumber),
			heartRate,
			hrv,
			spo2,
			r.MeasurementPhase.String,
			r.ActivityContext.String,
			r.BodyPosition.String,
			r.ReadingTime.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	return nil
}

type AdminExportRequest struct {
	AdminID    string
	OperatorID string // optional
	TestType   string // optional
	StartDate  time.Time
	EndDate    time.Time
}

// sessionSummaryHeader columns of the admin sessions export, shared by the CSV
// and XLSX variants.
var sessionSummaryHeader = []string{
	"Session Code", "Operator", "Respondent", "Test Type", "Status",
	"Device", "Start Time", "End Time", "Trials Completed",
	"Measurement Context", "Environment Notes",
}

func (s *exportService) sessionSummaryRows(ctx context.Context, req AdminExportRequest) ([][]string, error) {
	filters := repository.AdminSessionFilters{
		OperatorID: req.OperatorID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if req.TestType != "" {
		testType, err := domain.ParseTestType(req.TestType)
		if err != nil {
			return nil, NewInvalidError("invalid test_type filter")
		}
		filters.TestType = testType
	}

	sessions, _, err := s.sessionsRepo.ListForAdmin(ctx, req.AdminID, filters, 1, 10000)
	if err != nil {
		return nil, err
	}

	// Names are resolved once per distinct ID; exports tend to repeat the same
	// handful of operators.
	operatorNames := map[string]string{}
	respondentNames := map[string]string{}

	rows := make([][]string, 0, len(sessions))
	for _, session := range sessions {
		operatorName, ok := operatorNames[session.OperatorID]
		if !ok {
			if op, err := s.usersRepo.GetUser(ctx, session.OperatorID); err == nil {
				operatorName = op.FullName
			}
			operatorNames[session.OperatorID] = operatorName
		}
		respondentName, ok := respondentNames[session.RespondentID]
		if !ok {
			if r, err := s.respondentsRepo.GetOwnedRespondent(ctx, session.OperatorID, session.RespondentID); err == nil {
				respondentName = r.GuestName
			}
			respondentNames[session.RespondentID] = respondentName
		}

		startedAt, endedAt := "", ""
		if session.StartedAt.Valid {
			startedAt = session.StartedAt.Time.Format(time.RFC3339)
		}
		if session.EndedAt.Valid {
			endedAt = session.EndedAt.Time.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			session.SessionCode,
			operatorName,
			respondentName,
			string(session.TestType),
			string(session.Status),
			session.DeviceName.String,
			startedAt,
			endedAt,
			strconv.Itoa(session.TrialsCompleted),
			session.MeasurementContext.String,
			session.EnvironmentNotes.String,
		})
	}
	return rows, nil
}

func (s *exportService) ExportSessionsCSV(ctx context.Context, req AdminExportRequest) (*ExportFile, error) {
	rows, err := s.sessionSummaryRows(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(sessionSummaryHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("sessions_export_%s_%s.csv",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	return &ExportFile{Filename: filename, ContentType: "text/csv", Content: buf.Bytes()}, nil
}

// ExportSessionsXLSX same rows as the CSV export, as a styled workbook.
func (s *exportService) ExportSessionsXLSX(ctx context.Context, req AdminExportRequest) (*ExportFile, error) {
	rows, err := s.sessionSummaryRows(ctx, req)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	// WriteTo needs the file open, so no deferred Close on the happy path.

	sheetName := "Sessions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, title := range sessionSummaryHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header: %w", err)
		}
	}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	f.Close()

	filename := fmt.Sprintf("sessions_export_%s_%s.xlsx",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	return &ExportFile{
		Filename:    filename,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

func (s *exportService) ExportOperatorPerformanceCSV(ctx context.Context, req AdminExportRequest) (*ExportFile, error) {
	operators, _, err := s.usersRepo.ListOperators(ctx, req.AdminID, repository.OperatorFilters{}, 1, 10000)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{
		"Operator", "Total Sessions", "Completed Sessions", "Active Sessions",
		"Reaction Time Tests", "Tympanic Tests", "Vitals Tests",
		"Total Trials", "Avg Trials per Session", "Last Activity",
	}); err != nil {
		return nil, err
	}

	for _, operator := range operators {
		sessions, _, err := s.sessionsRepo.ListForAdmin(ctx, req.AdminID, repository.AdminSessionFilters{
			OperatorID: operator.UserID,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
		}, 1, 10000)
		if err != nil {
			return nil, err
		}

		var completed, active, reaction, tympanic, vitals, totalTrials int
		var lastActivity time.Time
		for _, session := range sessions {
			switch session.Status {
			case domain.SessionCompleted:
				completed++
			case domain.SessionActive:
				active++
			}
			switch session.TestType {
			case domain.TestReactionTime:
				reaction++
			case domain.TestTympanic:
				tympanic++
			case domain.TestVitals:
				vitals++
			}
			totalTrials += session.TrialsCompleted
			if session.UpdatedAt.After(lastActivity) {
				lastActivity = session.UpdatedAt
			}
		}

		avgTrials := 0.0
		if len(sessions) > 0 {
			avgTrials = float64(totalTrials) / float64(len(sessions))
		}
		last := ""
		if !lastActivity.IsZero() {
			last = lastActivity.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			operator.FullName,
			strconv.Itoa(len(sessions)),
			strconv.Itoa(completed),
			strconv.Itoa(active),
			strconv.Itoa(reaction),
			strconv.Itoa(tympanic),
			strconv.Itoa(vitals),
			strconv.Itoa(totalTrials),
			strconv.FormatFloat(avgTrials, 'f', 2, 64),
			last,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("operator_performance_%s_%s.csv",
		req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	return &ExportFile{Filename: filename, ContentType: "text/csv", Content: buf.Bytes()}, nil
}
