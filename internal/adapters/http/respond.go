package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"hireflow/internal/domain"
	"hireflow/internal/services/accounts"
	"hireflow/internal/services/analytics"
	"hireflow/internal/services/importer"
	"hireflow/internal/services/messaging"
	"hireflow/internal/services/pipeline"
)

const maxBodyBytes = 1 << 20

type runtimeError struct {
	code int
	msg  string
}

func (e *runtimeError) Error() string { return e.msg }

type errorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &runtimeError{code: http.StatusBadRequest, msg: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCandidateNotFound)
}

// fail maps service errors to status codes. Anything unrecognised is logged
// and reported as a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rt      *runtimeError
		invalid *domain.ValidationError
		unknown *domain.UnknownStageError
		noRows  *importer.NoValidRowsError
	)
	switch {
	case errors.As(err, &rt):
		writeJSON(w, rt.code, errorBody{Error: rt.msg})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Details: invalid.Problems})
	case errors.As(err, &noRows), errors.As(err, &unknown):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case isNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, pipeline.ErrReasonTooShort),
		errors.Is(err, pipeline.ErrConfirmationMismatch),
		errors.Is(err, pipeline.ErrEmptySelection),
		errors.Is(err, pipeline.ErrNoPendingChange),
		errors.Is(err, messaging.ErrEmptyMessage),
		errors.Is(err, messaging.ErrUnknownTemplate),
		errors.Is(err, importer.ErrTooFewRows):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, accounts.ErrInvalidToken),
		errors.Is(err, accounts.ErrWrongAudience),
		errors.Is(err, accounts.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, analytics.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
