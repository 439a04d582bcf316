package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	Token     string         `gorm:"primaryKey;size:64"`
	UserID    *uuid.UUID     `gorm:"size:36;index"`
	Data      datatypes.JSON
	Expires   time.Time      `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Session) TableName() string {
	return "sessions"
}
