package httpapi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"ergoquipt-data/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody the uniform error payload: {"error": {"code": ..., "message": ...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the service error taxonomy onto HTTP statuses. Anything that
// is not a ServiceError is a 500 with a generic message.
func writeError(w http.ResponseWriter, err error) {
	se, ok := service.AsServiceError(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: errorDetail{Code: "internal", Message: "internal server error"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch se.Code {
	case service.ErrorInvalid, service.ErrorWeakPassword,
		service.ErrorConfirmationMismatch, service.ErrorInvalidState:
		status = http.StatusBadRequest
	case service.ErrorInvalidCredentials, service.ErrorUnauthenticated:
		status = http.StatusUnauthorized
	case service.ErrorUnauthorized:
		status = http.StatusForbidden
	case service.ErrorNotFound:
		status = http.StatusNotFound
	case service.ErrorConflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: string(se.Code), Message: se.Message}})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// clientIP best-effort client address for audit entries: first X-Forwarded-For
// hop when present, else the connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
