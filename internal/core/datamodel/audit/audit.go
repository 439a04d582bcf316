package audit

import (
	"time"

	"github.com/frahmantamala/asset-management/internal/core/datamodel/identity"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Action int

const (
	ActionAddition Action = 1
	ActionChange   Action = 2
	ActionDeletion Action = 3
)

func (a Action) String() string {
	switch a {
	case ActionAddition:
		return "Add"
	case ActionChange:
		return "Change"
	case ActionDeletion:
		return "Delete"
	default:
		return "Unknown"
	}
}

// LogEntry is append-only; ObjectID is nil for deletions. ActorID turns nil
// once the acting user is deleted, the entry itself stays.
type LogEntry struct {
	ID            uuid.UUID      `gorm:"primaryKey;size:36" json:"id"`
	ActorID       *uuid.UUID     `gorm:"size:36;index" json:"actor_id"`
	Actor         *identity.User `gorm:"constraint:OnDelete:SET NULL" json:"actor,omitempty"`
	Entity        string         `gorm:"size:100;not null;index" json:"entity"`
	ObjectID      *string        `gorm:"size:36" json:"object_id"`
	Action        Action         `gorm:"not null" json:"action"`
	Message       string         `json:"message"`
	ChangedFields datatypes.JSON `json:"changed_fields"`
	ActionTime    time.Time      `gorm:"not null;index" json:"action_time"`
}

func (LogEntry) TableName() string {
	return "user_logs"
}

// ActorName is the acting user's display name, or "Unknown" after that user
// was deleted.
func (e *LogEntry) ActorName() string {
	if e.Actor == nil {
		return "Unknown"
	}
	return e.Actor.String()
}

func (e *LogEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ActionTime.IsZero() {
		e.ActionTime = time.Now()
	}
	return nil
}
