package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Exists(tx *gorm.DB, token string) (bool, error) {
	var count int64
	if err := tx.Model(&identity.UserToken{}).Where("token = ?", token).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Replace(tx *gorm.DB, row *identity.UserToken) error {
	if err := tx.Where("user_id = ?", row.UserID).Delete(&identity.UserToken{}).Error; err != nil {
		return err
	}
	return tx.Create(row).Error
}

func (r *Repository) Find(ctx context.Context, token string, typ identity.TokenType) (*identity.UserToken, error) {
	var row identity.UserToken
	err := r.db.WithContext(ctx).Preload("User").
		Where("token = ? AND type = ?", token, typ).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes the token and reports how many rows went with it.
func (r *Repository) Delete(tx *gorm.DB, id uuid.UUID) (int64, error) {
	res := tx.Delete(&identity.UserToken{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
