package user

import (
	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
)

// DTO is the staff-side user form.
type DTO struct {
	Email       string   `schema:"email"`
	Name        string   `schema:"name"`
	Phone       string   `schema:"phone"`
	Address     string   `schema:"address"`
	ExtraDetail string   `schema:"extra_detail"`
	Designation string   `schema:"designation"`
	Groups      []string `schema:"groups"`
	Permissions []string `schema:"user_permissions"`
	IsActive    bool     `schema:"is_active"`
	IsStaff     bool     `schema:"is_staff"`
	IsSuperuser bool     `schema:"is_superuser"`
	Password1   string   `schema:"password1"`
	Password2   string   `schema:"password2"`
}

func (d DTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	addContactRules(v, d.Email, d.Name, d.Phone)
	return v.Validate()
}

// ValidatePassword checks the optional password pair of the create form.
func (d DTO) ValidatePassword() *internal.AppError {
	if d.Password1 == "" && d.Password2 == "" {
		return nil
	}
	return auth.ValidatePasswordPair("password1", "password2", d.Password1, d.Password2)
}

type InviteDTO struct {
	Email       string   `schema:"email"`
	Name        string   `schema:"name"`
	Designation string   `schema:"designation"`
	Groups      []string `schema:"groups"`
	IsStaff     bool     `schema:"is_staff"`
}

func (d InviteDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	addContactRules(v, d.Email, d.Name, "")
	return v.Validate()
}

type RegisterDTO struct {
	Email     string `schema:"email"`
	Name      string `schema:"name"`
	Password1 string `schema:"password1"`
	Password2 string `schema:"password2"`
	Agree     bool   `schema:"agree"`
}

func (d RegisterDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(254).Email()
	v.Field("name", d.Name).Required().MaxLength(150)
	v.Field("agree", d.Agree).Required()
	return internal.MergeValidation(v.Validate(), auth.ValidatePasswordPair("password1", "password2", d.Password1, d.Password2))
}

type ProfileDTO struct {
	Name        string `schema:"name"`
	Phone       string `schema:"phone"`
	Address     string `schema:"address"`
	ExtraDetail string `schema:"extra_detail"`
}

func (d ProfileDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	v.Field("phone", d.Phone).MaxLength(20)
	return v.Validate()
}

type DeleteAccountDTO struct {
	Password string `schema:"password"`
}

func (d DeleteAccountDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

func addContactRules(v *validation.ValidationBuilder, email, name, phone string) {
	v.Field("email", email).Required().MaxLength(254).Email()
	v.Field("name", name).MaxLength(150)
	v.Field("phone", phone).MaxLength(20)
}
