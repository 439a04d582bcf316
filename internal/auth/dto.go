package auth

import (
	"regexp"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
)

const MinPasswordLength = 8

// LoginDTO is the transport shape of the login form.
type LoginDTO struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
	Next     string `schema:"next"`
}

func (d LoginDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// SetPasswordDTO is used wherever a new password is chosen without the old one.
type SetPasswordDTO struct {
	Password1 string `schema:"new_password1"`
	Password2 string `schema:"new_password2"`
}

func (d SetPasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	addPasswordRules(v, d.Password1, d.Password2)
	return v.Validate()
}

type PasswordChangeDTO struct {
	OldPassword string `schema:"old_password"`
	SetPasswordDTO
}

func (d PasswordChangeDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("old_password", d.OldPassword).Required()
	addPasswordRules(v, d.Password1, d.Password2)
	return v.Validate()
}

type ResetRequestDTO struct {
	Email string `schema:"email"`
}

func (d ResetRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Validate()
}

var numericOnly = regexp.MustCompile(`^\d+$`)

func addPasswordRules(v *validation.ValidationBuilder, p1, p2 string) {
	v.Field("new_password1", p1).Required().MinLength(MinPasswordLength).Custom(func(value interface{}) *internal.AppError {
		if s, _ := value.(string); numericOnly.MatchString(s) {
			return internal.NewValidationFieldError("new_password1", "This password is entirely numeric.", internal.ErrCodeInvalidFormat)
		}
		return nil
	})
	v.Field("new_password2", p2).Required()
	if p1 != "" && p2 != "" && p1 != p2 {
		v.AddError("new_password2", "The two password fields didn’t match.", internal.ErrCodePasswordMismatch)
	}
}

// ValidatePasswordPair applies the password rules to a pair of fields with
// custom names, as the user create form does.
func ValidatePasswordPair(field1, field2, p1, p2 string) *internal.AppError {
	err := SetPasswordDTO{Password1: p1, Password2: p2}.Validate()
	if err == nil {
		return nil
	}
	details, ok := err.Details.(internal.ValidationErrors)
	if !ok {
		return err
	}
	renamed := make([]internal.ValidationError, len(details.Errors))
	for i, fe := range details.Errors {
		switch fe.Field {
		case "new_password1":
			fe.Field = field1
		case "new_password2":
			fe.Field = field2
		}
		renamed[i] = fe
	}
	return internal.NewValidationError(err.Message, err.Code).WithDetails(internal.ValidationErrors{Errors: renamed})
}
