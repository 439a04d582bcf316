package postgres

import (
	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct{}

func NewUserRepository() *Repository {
	return &Repository{}
}

func (r *Repository) SetPassword(tx *gorm.DB, userID uuid.UUID, hash string, activate bool) error {
	updates := map[string]interface{}{"password_hash": hash}
	if activate {
		updates["is_active"] = true
	}
	return tx.Model(&identity.User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *Repository) Activate(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&identity.User{}).Where("id = ?", userID).Update("is_active", true).Error
}
