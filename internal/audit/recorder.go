package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/asset-management/internal/core/events"
	"github.com/frahmantamala/asset-management/pkg/clock"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ListFilter struct {
	Limit  int
	Offset int
}

type RepositoryAPI interface {
	Create(tx *gorm.DB, entry *auditDatamodel.LogEntry) error
	List(ctx context.Context, filter ListFilter) ([]*auditDatamodel.LogEntry, error)
	Count(ctx context.Context) (int64, error)
}

type Recorder struct {
	repo      RepositoryAPI
	publisher events.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

func NewRecorder(repo RepositoryAPI, publisher events.Publisher, clk clock.Clock, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, publisher: publisher, clock: clk, logger: logger}
}

// Record writes entry with tx so it commits or rolls back together with the
// mutation it describes. A change without changed fields writes nothing and
// returns a nil entry.
func (r *Recorder) Record(tx *gorm.DB, entry Entry) (*auditDatamodel.LogEntry, error) {
	if entry.Action == Change && len(entry.ChangedFields) == 0 {
		return nil, nil
	}

	row := &auditDatamodel.LogEntry{
		Entity:     entry.Entity,
		Action:     entry.Action,
		Message:    Message(entry.Action, entry.Title, entry.ChangedFields),
		ActionTime: r.clock.Now(),
	}
	if entry.ActorID != uuid.Nil {
		actor := entry.ActorID
		row.ActorID = &actor
	}
	if entry.Action != Deletion && entry.ObjectID != "" {
		id := entry.ObjectID
		row.ObjectID = &id
	}
	if len(entry.ChangedFields) > 0 {
		b, err := json.Marshal(entry.ChangedFields)
		if err != nil {
			return nil, fmt.Errorf("encode changed fields: %w", err)
		}
		row.ChangedFields = datatypes.JSON(b)
	}

	if err := r.repo.Create(tx, row); err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}
	return row, nil
}

// Announce publishes committed entries. Call it after the transaction that
// recorded them has committed.
func (r *Recorder) Announce(ctx context.Context, entries ...*auditDatamodel.LogEntry) {
	if r.publisher == nil {
		return
	}
	for _, e := range entries {
		if e == nil {
			continue
		}
		objectID, actorID := "", ""
		if e.ObjectID != nil {
			objectID = *e.ObjectID
		}
		if e.ActorID != nil {
			actorID = e.ActorID.String()
		}
		event := events.NewAuditRecordedEvent(e.ID.String(), actorID, e.Entity, objectID, int(e.Action), e.Message, e.ActionTime)
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.WarnContext(ctx, "Announce: failed to publish audit event", "entry_id", e.ID, "error", err)
		}
	}
}

func (r *Recorder) List(ctx context.Context, filter ListFilter) ([]*auditDatamodel.LogEntry, error) {
	return r.repo.List(ctx, filter)
}

func (r *Recorder) Count(ctx context.Context) (int64, error) {
	return r.repo.Count(ctx)
}
