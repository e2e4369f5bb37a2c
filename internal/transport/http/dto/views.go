package dto

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/flash"
)

type UserView struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	EmailVerified         bool       `json:"email_verified"`
	EmailVerificationDate *time.Time `json:"email_verification_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func NewUserView(u domain.User) *UserView {
	return &UserView{
		ID:                    u.ID,
		Email:                 u.Email,
		EmailVerified:         u.EmailVerified,
		EmailVerificationDate: u.EmailVerificationDate,
		CreatedAt:             u.CreatedAt,
	}
}

// PageView is the view model behind every GET page.
type PageView struct {
	Title          string         `json:"title"`
	SpecialMessage string         `json:"special_message,omitempty"`
	Email          string         `json:"email,omitempty"`
	Flash          *flash.Message `json:"flash,omitempty"`
	User           *UserView      `json:"user,omitempty"`
}
