package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/tnr/internal/attachments"
	"github.com/mesh-intelligence/tnr/internal/auth"
	"github.com/mesh-intelligence/tnr/internal/overview"
	"github.com/mesh-intelligence/tnr/pkg/types"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
	Path    string `json:"path,omitempty"`
}

// httpError carries an explicit status, for failures detected by the
// handlers themselves.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func unprocessable(format string, args ...any) error {
	return &httpError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

// statusFor maps an error to the HTTP status of the response.
func statusFor(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, types.ErrUnauthenticated),
		errors.Is(err, types.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, auth.ErrGoogleDisabled):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, types.ErrInvalidAxes),
		errors.Is(err, types.ErrDuplicateEmail),
		errors.Is(err, types.ErrAlreadyMember),
		errors.Is(err, overview.ErrBadSelection),
		errors.Is(err, overview.ErrUnknownLevel),
		errors.Is(err, attachments.ErrTooLarge),
		errors.Is(err, attachments.ErrEmptyFile),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrUnverifiedEmail):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("writing response")
	}
}

// writeError answers with {"message": ...}. Causes of 5xx responses are
// logged and not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.WithError(err).
			WithField("request_id", requestID(r.Context())).
			Errorf("%s %s failed", r.Method, r.URL.Path)
		msg = "internal server error"
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		msg = attachments.ErrTooLarge.Error()
	}
	writeJSON(w, status, errorResponse{Message: msg})
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Message: "endpoint not found",
		Method:  r.Method,
		Path:    r.URL.Path,
	})
}

func success(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
