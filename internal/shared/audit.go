package shared

import "time"

// AuditEntry represents a record stored in audit_logs. Entries are immutable
// and append-only; nothing in the system updates or deletes them.
type AuditEntry struct {
	Actor      string
	Action     string
	Entity     string
	EntityID   string
	Meta       map[string]any
	OccurredAt time.Time
}
