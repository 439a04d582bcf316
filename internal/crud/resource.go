// Package crud serves the list, create, update and delete pages shared by
// every administered entity.
package crud

import (
	"context"
	"fmt"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	"github.com/frahmantamala/asset-management/internal/auth"
	"github.com/frahmantamala/asset-management/internal/redirect"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meta names an entity for permissions, routes and messages.
type Meta struct {
	Entity   string
	Path     string
	Singular string
	Plural   string
}

func (m Meta) Codename(action string) string {
	return auth.Codename(m.Entity, action)
}

func (m Meta) Routes(id string) redirect.Routes {
	return redirect.Routes{Base: m.Path, ID: id}
}

// Resource is what an entity provides to be served by Handler.
type Resource[T any] interface {
	Meta() Meta
	New() *T
	ID(item *T) string
	Title(item *T) string
	Target(item *T) redirect.Target

	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id string) (*T, error)

	// Bind copies the submitted input onto item and validates it. It fills
	// item even when validation fails so the form can be shown again.
	Bind(ctx context.Context, item *T, in forms.Input, actor *internal.User, creating bool) error
	Save(tx *gorm.DB, item *T, creating bool) error
	Delete(tx *gorm.DB, item *T) error

	// Snapshot lists the form-editable values used to detect changes.
	Snapshot(item *T) audit.Snapshot
	Form(ctx context.Context, item *T, creating bool) (*forms.Form, error)
	Table(ctx context.Context, items []*T) (columns []string, rows [][]string)
}

type Exister interface {
	Exists(ctx context.Context, column, value string, exclude uuid.UUID) (bool, error)
}

// Unique returns a duplicate error on field when another row holds value.
func Unique(ctx context.Context, store Exister, meta Meta, field, label, value string, exclude uuid.UUID) (*internal.AppError, error) {
	if value == "" {
		return nil, nil
	}
	taken, err := store.Exists(ctx, field, value, exclude)
	if err != nil {
		return nil, err
	}
	if !taken {
		return nil, nil
	}
	return internal.NewValidationFieldError(field,
		fmt.Sprintf("%s with this %s already exists.", meta.Singular, label), internal.ErrCodeDuplicate), nil
}

// ParseIDs turns submitted option values into ids, skipping blanks and junk.
func ParseIDs(values []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		if id, err := uuid.Parse(v); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// ParseID returns nil for an empty or malformed value.
func ParseID(value string) *uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	return &id
}

func IDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
