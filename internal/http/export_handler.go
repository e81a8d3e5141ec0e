package httpapi

import (
	"fmt"
	"net/http"

	"ergoquipt-data/internal/service"

	"go.uber.org/zap"
)

// ExportHandler file download routes: per-session CSV for operators and
// owning admins, summary CSV/XLSX and performance reports for admins.
type ExportHandler struct {
	exportService service.ExportService
	logger        *zap.Logger
}

func NewExportHandler(exportService service.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, logger: logger}
}

func serveExport(w http.ResponseWriter, file *service.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

// ExportSessionCSV GET /api/v1/export/sessions/{id}/csv
func (h *ExportHandler) ExportSessionCSV(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	file, err := h.exportService.ExportSessionCSV(r.Context(), user.UserID, user.Role, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	serveExport(w, file)
}

func (h *ExportHandler) adminExportRequest(r *http.Request) (service.AdminExportRequest, error) {
	claims := ClaimsFromContext(r.Context())
	q := r.URL.Query()

	startDate, err := parseDate(q.Get("start_date"))
	if err != nil {
		return service.AdminExportRequest{}, service.NewInvalidError("start_date must be YYYY-MM-DD")
	}
	endDate, err := parseDate(q.Get("end_date"))
	if err != nil {
		return service.AdminExportRequest{}, service.NewInvalidError("end_date must be YYYY-MM-DD")
	}
	return service.AdminExportRequest{
		AdminID:    claims.Subject,
		OperatorID: q.Get("operator_id"),
		TestType:   q.Get("test_type"),
		StartDate:  startDate,
		EndDate:    endDate,
	}, nil
}

// ExportSessions GET /api/v1/export/sessions?format=csv|xlsx
func (h *ExportHandler) ExportSessions(w http.ResponseWriter, r *http.Request) {
	req, err := h.adminExportRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var file *service.ExportFile
	switch r.URL.Query().Get("format") {
	case "", "csv":
		file, err = h.exportService.ExportSessionsCSV(r.Context(), req)
	case "xlsx":
		file, err = h.exportService.ExportSessionsXLSX(r.Context(), req)
	default:
		writeError(w, service.NewInvalidError("format must be csv or xlsx"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	serveExport(w, file)
}

// ExportOperatorPerformance GET /api/v1/export/operator-performance
func (h *ExportHandler) ExportOperatorPerformance(w http.ResponseWriter, r *http.Request) {
	req, err := h.adminExportRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	file, err := h.exportService.ExportOperatorPerformanceCSV(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	serveExport(w, file)
}
