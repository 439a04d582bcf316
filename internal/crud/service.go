package crud

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// Step runs inside the mutation's transaction after the row is written.
type Step[T any] func(tx *gorm.DB, item *T) error

// Service writes rows and their audit entries in one transaction.
type Service[T any] struct {
	db       *gorm.DB
	resource Resource[T]
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService[T any](db *gorm.DB, resource Resource[T], recorder *audit.Recorder, logger *slog.Logger) *Service[T] {
	return &Service[T]{db: db, resource: resource, recorder: recorder, logger: logger}
}

func (s *Service[T]) Create(ctx context.Context, item *T, actor *internal.User, steps ...Step[T]) error {
	meta := s.resource.Meta()
	var entry *auditDatamodel.LogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resource.Save(tx, item, true); err != nil {
			return err
		}
		for _, step := range steps {
			if err := step(tx, item); err != nil {
				return err
			}
		}
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID:  actor.ID,
			Entity:   meta.Entity,
			ObjectID: s.resource.ID(item),
			Action:   audit.Addition,
			Title:    s.resource.Title(item),
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Create: transaction failed", "entity", meta.Entity, "error", err)
		return wrap(err, "failed to create "+meta.Singular)
	}
	s.recorder.Announce(ctx, entry)
	s.logger.InfoContext(ctx, "Create: row created", "entity", meta.Entity, "id", s.resource.ID(item), "actor_id", actor.ID)
	return nil
}

// Update saves item only when changed is not empty. It reports whether
// anything was written.
func (s *Service[T]) Update(ctx context.Context, item *T, changed []string, actor *internal.User, steps ...Step[T]) (bool, error) {
	if len(changed) == 0 {
		return false, nil
	}
	meta := s.resource.Meta()
	var entry *auditDatamodel.LogEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resource.Save(tx, item, false); err != nil {
			return err
		}
		for _, step := range steps {
			if err := step(tx, item); err != nil {
				return err
			}
		}
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID:       actor.ID,
			Entity:        meta.Entity,
			ObjectID:      s.resource.ID(item),
			Action:        audit.Change,
			Title:         s.resource.Title(item),
			ChangedFields: changed,
		})
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Update: transaction failed", "entity", meta.Entity, "error", err)
		return false, wrap(err, "failed to update "+meta.Singular)
	}
	s.recorder.Announce(ctx, entry)
	return true, nil
}

// Delete removes the row with the given id and returns its title.
func (s *Service[T]) Delete(ctx context.Context, id string, actor *internal.User) (string, error) {
	meta := s.resource.Meta()
	item, err := s.resource.Get(ctx, id)
	if err != nil {
		return "", wrap(err, "failed to load "+meta.Singular)
	}
	if item == nil {
		return "", internal.NewNotFoundError("No "+meta.Singular+" matches the given query.", internal.ErrCodeObjectNotFound)
	}

	title := s.resource.Title(item)
	var entry *auditDatamodel.LogEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.recorder.Record(tx, audit.Entry{
			ActorID: actor.ID,
			Entity:  meta.Entity,
			Action:  audit.Deletion,
			Title:   title,
		})
		if err != nil {
			return err
		}
		return s.resource.Delete(tx, item)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Delete: transaction failed", "entity", meta.Entity, "id", id, "error", err)
		return "", wrap(err, "failed to delete "+meta.Singular)
	}
	s.recorder.Announce(ctx, entry)
	s.logger.InfoContext(ctx, "Delete: row deleted", "entity", meta.Entity, "id", id, "actor_id", actor.ID)
	return title, nil
}

// wrap keeps application errors as they are and turns anything else into an
// internal error.
func wrap(err error, message string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(message, err)
}
