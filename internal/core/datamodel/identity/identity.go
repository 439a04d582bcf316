package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenType int

const (
	TokenTypeInvite     TokenType = 1
	TokenTypeActivation TokenType = 2
)

type User struct {
	ID            uuid.UUID    `gorm:"primaryKey;size:36" json:"id"`
	Email         string       `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Name          string       `gorm:"size:150" json:"name"`
	Phone         string       `gorm:"size:20" json:"phone"`
	Address       string       `json:"address"`
	ExtraDetail   string       `json:"extra_detail"`
	Avatar        string       `json:"avatar"`
	PasswordHash  string       `gorm:"size:128" json:"-"`
	IsStaff       bool         `json:"is_staff"`
	IsSuperuser   bool         `json:"is_superuser"`
	IsActive      bool         `json:"is_active"`
	Agree         bool         `json:"agree"`
	DesignationID *uuid.UUID   `gorm:"size:36" json:"designation_id"`
	Designation   *Designation `gorm:"constraint:OnDelete:SET NULL" json:"designation,omitempty"`
	Groups        []Group      `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE" json:"groups,omitempty"`
	Permissions   []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	DateJoined    time.Time    `json:"date_joined"`
	LastLogin     *time.Time   `json:"last_login"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	return nil
}

func (u User) String() string {
	if u.Name == "" {
		return "Unknown"
	}
	return u.Name
}

// Role is the label shown in user lists.
func (u User) Role() string {
	switch {
	case u.IsSuperuser:
		return "Admin"
	case u.IsStaff:
		return "Staff"
	default:
		return "Active User"
	}
}

type Group struct {
	ID          uuid.UUID    `gorm:"primaryKey;size:36" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Group) TableName() string {
	return "groups"
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (g Group) String() string {
	if g.Name == "" {
		return "Unknown"
	}
	return g.Name
}

// Permission is a seeded (entity, action) pair; Codename is "entity.action".
type Permission struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Entity   string `gorm:"size:100;not null;index:idx_permission_entity_action,unique" json:"entity"`
	Action   string `gorm:"size:20;not null;index:idx_permission_entity_action,unique" json:"action"`
	Codename string `gorm:"uniqueIndex;size:150;not null" json:"codename"`
	Name     string `gorm:"size:255" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}

func (p Permission) String() string {
	return p.Name
}

type Designation struct {
	ID          uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"uniqueIndex;size:50;not null" json:"title"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Designation) TableName() string {
	return "designations"
}

func (d *Designation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d Designation) String() string {
	return d.Title
}

type UserToken struct {
	ID        uuid.UUID `gorm:"primaryKey;size:36" json:"id"`
	UserID    uuid.UUID `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Type      TokenType `gorm:"not null" json:"type"`
	Expires   time.Time `gorm:"index" json:"expires"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserToken) TableName() string {
	return "user_tokens"
}

func (t *UserToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
