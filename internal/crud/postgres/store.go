package postgres

import (
	"context"
	"errors"
	"reflect"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm repository shared by every CRUD entity.
type Store[T any] struct {
	db       *gorm.DB
	order    string
	preloads []string
}

func NewStore[T any](db *gorm.DB, order string, preloads ...string) *Store[T] {
	return &Store[T]{db: db, order: order, preloads: preloads}
}

func (s *Store[T]) DB() *gorm.DB {
	return s.db
}

func (s *Store[T]) query(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, p := range s.preloads {
		q = q.Preload(p)
	}
	return q
}

func (s *Store[T]) List(ctx context.Context) ([]*T, error) {
	var items []*T
	q := s.query(ctx)
	if s.order != "" {
		q = q.Order(s.order)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns nil, nil when id is malformed or unknown.
func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	var item T
	err = s.query(ctx).First(&item, "id = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Save writes the row itself. Associations are left to ReplaceAssociation so
// related rows are never upserted by accident.
func (s *Store[T]) Save(tx *gorm.DB, item *T, creating bool) error {
	if creating {
		return tx.Omit(clause.Associations).Create(item).Error
	}
	return tx.Omit(clause.Associations).Save(item).Error
}

// ReplaceAssociation sets the many-to-many links of item to values, a slice.
func (s *Store[T]) ReplaceAssociation(tx *gorm.DB, item *T, name string, values interface{}) error {
	assoc := tx.Model(item).Association(name)
	if v := reflect.ValueOf(values); v.Kind() == reflect.Slice && v.Len() == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func (s *Store[T]) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]T, error) {
	items := []T{}
	if len(ids) == 0 {
		return items, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

// Delete removes the row together with its many-to-many links.
func (s *Store[T]) Delete(tx *gorm.DB, item *T) error {
	return tx.Select(clause.Associations).Delete(item).Error
}

// Exists reports whether another row already holds value in column.
func (s *Store[T]) Exists(ctx context.Context, column, value string, exclude uuid.UUID) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(new(T)).Where(column+" = ?", value)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}
