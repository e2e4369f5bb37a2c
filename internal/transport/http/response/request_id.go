package response

import (
	"net/http"

	pkgctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

// RequestIDFromContext extracts the request id set by the RequestID middleware.
func RequestIDFromContext(r *http.Request) string {
	return pkgctx.GetRequestID(r.Context())
}
