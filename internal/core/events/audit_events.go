package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAuditRecorded = "audit.recorded"
)

type AuditRecordedEvent struct {
	BaseEvent
	EntryID  string `json:"entry_id"`
	ActorID  string `json:"actor_id"`
	Entity   string `json:"entity"`
	ObjectID string `json:"object_id,omitempty"`
	Action   int    `json:"action"`
	Message  string `json:"message"`
}

func NewAuditRecordedEvent(entryID, actorID, entity, objectID string, action int, message string, at time.Time) *AuditRecordedEvent {
	return &AuditRecordedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditRecorded,
			Timestamp: at,
			Data: map[string]interface{}{
				"entry_id":  entryID,
				"actor_id":  actorID,
				"entity":    entity,
				"object_id": objectID,
				"action":    action,
				"message":   message,
			},
		},
		EntryID:  entryID,
		ActorID:  actorID,
		Entity:   entity,
		ObjectID: objectID,
		Action:   action,
		Message:  message,
	}
}
