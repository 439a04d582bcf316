package audit

import (
	"fmt"
	"strings"

	auditDatamodel "github.com/frahmantamala/asset-management/internal/core/datamodel/audit"
	"github.com/google/uuid"
)

const (
	Addition = auditDatamodel.ActionAddition
	Change   = auditDatamodel.ActionChange
	Deletion = auditDatamodel.ActionDeletion
)

// Entry describes one mutation to record. Title is the string form of the
// target, taken before a deletion removes it.
type Entry struct {
	ActorID       uuid.UUID
	Entity        string
	ObjectID      string
	Action        auditDatamodel.Action
	Title         string
	ChangedFields []string
}

// Message renders the human-readable line shown in the log viewer.
func Message(action auditDatamodel.Action, title string, changed []string) string {
	if title == "" {
		title = "Unknown"
	}
	if action == Change {
		return fmt.Sprintf("[%s] on %s", strings.Join(changed, ", "), title)
	}
	return title
}

type Field struct {
	Name  string
	Value string
}

// Snapshot is the ordered list of form-editable values of a row.
type Snapshot []Field

// Diff returns the names of fields whose value differs, in snapshot order.
// Fields present on only one side count as changed.
func Diff(before, after Snapshot) []string {
	old := make(map[string]string, len(before))
	for _, f := range before {
		old[f.Name] = f.Value
	}
	var changed []string
	seen := make(map[string]struct{}, len(after))
	for _, f := range after {
		seen[f.Name] = struct{}{}
		if prev, ok := old[f.Name]; !ok || prev != f.Value {
			changed = append(changed, f.Name)
		}
	}
	for _, f := range before {
		if _, ok := seen[f.Name]; !ok {
			changed = append(changed, f.Name)
		}
	}
	return changed
}
