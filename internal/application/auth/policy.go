package auth

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused
// instead of being silently truncated.
const maxPasswordBytes = 72

type credentials struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
}

type credentialPolicy struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newCredentialPolicy() *credentialPolicy {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(v, trans)

	return &credentialPolicy{validate: v, trans: trans}
}

// Check returns domain.ErrCredentialPolicy for the first violated rule.
func (p *credentialPolicy) Check(email, password string) error {
	err := p.validate.Struct(credentials{Email: email, Password: password})
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return domain.ErrInternal(err)
		}
		fe := verrs[0]
		if fe.Tag() == "required" {
			return domain.ErrCredentialPolicy(fe.Field(), "No "+fe.Field()+" was given")
		}
		return domain.ErrCredentialPolicy(fe.Field(), fe.Translate(p.trans))
	}

	if len(password) > maxPasswordBytes {
		return domain.ErrCredentialPolicy("password", "password must be at most 72 bytes long")
	}
	return nil
}
