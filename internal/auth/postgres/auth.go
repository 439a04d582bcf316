package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Permissions returns the codenames granted directly or through a group.
func (r *Repository) Permissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT p.codename
	          FROM permissions p
	          JOIN user_permissions up ON p.id = up.permission_id
	          WHERE up.user_id = ?
	          UNION
	          SELECT p.codename
	          FROM permissions p
	          JOIN group_permissions gp ON p.id = gp.permission_id
	          JOIN user_groups ug ON ug.group_id = gp.group_id
	          WHERE ug.user_id = ?`

	rows, err := r.db.WithContext(ctx).Raw(query, userID, userID).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var codename string
		if err := rows.Scan(&codename); err != nil {
			return nil, err
		}
		permissions = append(permissions, codename)
	}
	return permissions, rows.Err()
}

func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&identity.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error
}

func (r *Repository) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&identity.User{}).
		Where("id = ?", userID).
		Update("last_login", at).Error
}

// AllPermissions lists the seeded permissions by entity, then action.
func (r *Repository) AllPermissions(ctx context.Context) ([]identity.Permission, error) {
	var perms []identity.Permission
	err := r.db.WithContext(ctx).Order("entity ASC, id ASC").Find(&perms).Error
	return perms, err
}

func (r *Repository) PermissionsByIDs(ctx context.Context, ids []int64) ([]identity.Permission, error) {
	perms := []identity.Permission{}
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&perms).Error
	return perms, err
}
