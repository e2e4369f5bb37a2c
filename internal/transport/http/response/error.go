package response

import (
	"errors"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

var kindStatus = map[domain.ErrKind]int{
	domain.KindValidation:     http.StatusBadRequest,
	domain.KindAuth:           http.StatusUnauthorized,
	domain.KindNotFound:       http.StatusNotFound,
	domain.KindConflict:       http.StatusConflict,
	domain.KindRateLimited:    http.StatusTooManyRequests,
	domain.KindInfrastructure: http.StatusServiceUnavailable,
	domain.KindInternal:       http.StatusInternalServerError,
}

// Status is the HTTP status a JSON endpoint answers err with.
func Status(err error) int {
	if domain.Is(err, domain.CodeMethodNotAllowed) {
		return http.StatusMethodNotAllowed
	}
	if st, ok := kindStatus[domain.KindOf(err)]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// WriteError renders err as {"error": {...}}. Anything that is not a
// *domain.Error is reported as a bare internal_error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	p := ErrorPayload{
		Code:      domain.CodeInternal,
		Message:   "internal error",
		RequestID: RequestIDFromContext(r),
	}
	var de *domain.Error
	if errors.As(err, &de) {
		p.Code, p.Message, p.Meta = de.Code, de.Message, de.Meta
	}
	WriteJSON(w, Status(err), ErrorBody{Error: p})
}

// NotFound and MethodNotAllowed are installed as the router's fallbacks.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, domain.ErrRouteNotFound(r.URL.Path))
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, domain.ErrMethodNotAllowed(r.Method))
}
