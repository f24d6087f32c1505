package web

// errors.go is the single exit point for handler failures. The technical
// error is logged with the request id for correlation, the client gets a
// sanitized message with a support code, and the HTTP status derives from
// the error taxonomy rather than per-handler guesswork.

import (
	"errors"
	"net/http"

	"github.com/forkful/backoffice/internal/logging"
	"github.com/forkful/backoffice/internal/quality"
	"github.com/forkful/backoffice/internal/registry"
	"github.com/forkful/backoffice/internal/statement"
)

// ErrorResponse is the JSON body for failed requests. Error carries the
// same text as Message for clients that only read the short form.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusForError sorts the error taxonomy into HTTP statuses: bad input is
// 400, optimistic-concurrency conflicts are 409, import capacity is 503,
// everything else is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnsupportedResourceType),
		errors.Is(err, statement.ErrUnsupportedLookupType),
		errors.Is(err, statement.ErrNoValidColumns),
		errors.Is(err, quality.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, quality.ErrStaleChange):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyImports):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and answers with the mapped user
// message, deriving the status from the error kind.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusForError(err))
}

// respondErrorStatus is respondError for callers that know the status
// already, such as import decoding where every failure is the client's.
func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := mapMessage(err)

	logging.FromContext(r.Context()).Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSONStatus(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
