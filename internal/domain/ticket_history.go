package domain

import "time"

// TicketChangeType captures which field a history entry tracks.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "status"
	ChangeTypePriority   TicketChangeType = "priority"
	ChangeTypeAssignment TicketChangeType = "assignment"
)

// TicketChange is an immutable audit trail entry. A change is recorded
// only when the tracked field actually transitions; no-op writes leave
// the history untouched.
type TicketChange struct {
	ID         string
	TicketID   string
	ChangeType TicketChangeType
	OldValue   *string
	NewValue   *string
	ChangedBy  string
	Reason     string
	ChangedAt  time.Time
}

// TicketHistory groups a ticket's audit trail by tracked field.
type TicketHistory struct {
	Status     []TicketChange
	Priority   []TicketChange
	Assignment []TicketChange
}

// GroupChanges splits a flat, chronologically ordered change list into
// per-field sequences.
func GroupChanges(changes []TicketChange) TicketHistory {
	var h TicketHistory
	for _, c := range changes {
		switch c.ChangeType {
		case ChangeTypeStatus:
			h.Status = append(h.Status, c)
		case ChangeTypePriority:
			h.Priority = append(h.Priority, c)
		case ChangeTypeAssignment:
			h.Assignment = append(h.Assignment, c)
		}
	}
	return h
}
