package catalog

import (
	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/core/common/validation"
)

type CategoryDTO struct {
	Title       string `schema:"title"`
	Description string `schema:"description"`
	IsActive    bool   `schema:"is_active"`
}

func (d CategoryDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(50)
	return v.Validate()
}

// DepartmentDTO has the same fields and limits as CategoryDTO.
type DepartmentDTO = CategoryDTO

type SupplierDTO struct {
	Title    string `schema:"title"`
	Email    string `schema:"email"`
	Phone    string `schema:"phone"`
	Address  string `schema:"address"`
	Extra    string `schema:"extra"`
	IsActive bool   `schema:"is_active"`
}

func (d SupplierDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(70)
	v.Field("email", d.Email).MaxLength(254).Email()
	v.Field("phone", d.Phone).MaxLength(20)
	return v.Validate()
}

type StatusDTO struct {
	Title    string `schema:"title"`
	Color    string `schema:"color"`
	Request  bool   `schema:"request"`
	IsActive bool   `schema:"is_active"`
}

func (d StatusDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(30)
	v.Field("color", d.Color).Pattern(validation.HexColor(), "Enter a valid color such as #15a362.")
	return v.Validate()
}
