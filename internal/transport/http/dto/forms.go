package dto

import (
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// maxFormBytes bounds the urlencoded body of the login / create-account forms.
const maxFormBytes = 16 << 10

// CredentialsForm is the body of POST /login and POST /create-account.
// Policy checks happen in the service so login never reveals which field
// was wrong.
type CredentialsForm struct {
	Email    string
	Password string
}

func ParseCredentialsForm(w http.ResponseWriter, r *http.Request) (CredentialsForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return CredentialsForm{}, domain.ErrInvalidField("form", "malformed form body")
	}
	return CredentialsForm{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}, nil
}

// EmailHint is the ?email= pre-fill for the login and create-account pages.
func EmailHint(r *http.Request) string {
	e := strings.TrimSpace(r.URL.Query().Get("email"))
	if len(e) > 254 {
		return ""
	}
	return e
}
