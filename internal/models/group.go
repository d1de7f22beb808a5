package models

import "time"

// Group represents a shared tally session.
// A group exists for the lifetime of the process once created; there is no delete.
type Group struct {
	// Code is the 6-character join code. Assigned at creation, never changes.
	Code string `json:"code"`

	// FoodType is the category label shown with the tally (e.g. "pizza").
	FoodType FoodType `json:"foodType"`

	// CreatedAt is when the group was created (UTC).
	CreatedAt time.Time `json:"createdAt"`

	// Participants maps participant ID to participant.
	Participants map[string]Participant `json:"participants"`

	// AuditLog is the bounded trail of counter changes, oldest first.
	// Diagnostic only.
	AuditLog []AuditEntry `json:"auditLog,omitempty"`
}

// Participant is one member of a group.
type Participant struct {
	// ID is unique within the group.
	ID string `json:"id"`

	// Name is the trimmed display name, at most MaxNameLength runes.
	Name string `json:"name"`

	// Slices is the counter. Never negative.
	Slices int64 `json:"slices"`

	JoinedAt  time.Time `json:"joinedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuditEntry records one accepted counter adjustment.
type AuditEntry struct {
	At            time.Time `json:"at"`
	ParticipantID string    `json:"participantId"`
	Delta         int64     `json:"delta"`
	// Slices is the counter value after the adjustment was applied.
	Slices int64 `json:"slices"`
}

// MaxNameLength caps participant display names, in runes.
const MaxNameLength = 30

// Clone returns a deep copy of the group.
func (g Group) Clone() Group {
	out := g
	out.Participants = make(map[string]Participant, len(g.Participants))
	for id, p := range g.Participants {
		out.Participants[id] = p
	}
	if g.AuditLog != nil {
		out.AuditLog = make([]AuditEntry, len(g.AuditLog))
		copy(out.AuditLog, g.AuditLog)
	}
	return out
}

// State is the full persisted document: every group keyed by code.
type State struct {
	Groups map[string]Group `json:"groups"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Groups: make(map[string]Group)}
}
