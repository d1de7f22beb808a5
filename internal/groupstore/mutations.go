package groupstore

import (
	"strings"

	"github.com/mmynk/slicetally/internal/apperr"
	"github.com/mmynk/slicetally/internal/leaderboard"
	"github.com/mmynk/slicetally/internal/models"
)

// DefaultName is given to participants that subscribe without a name.
const DefaultName = "Anonymous"

// CreateInput describes a new group. Name and ParticipantID seed the first
// participant and must be given together or not at all.
type CreateInput struct {
	Name          string
	ParticipantID string
	FoodType      string
}

// JoinResult is returned by JoinGroup.
type JoinResult struct {
	Participant models.Participant
	Projection  models.Projection
}

// CreateGroup creates a group under a freshly generated code.
func (s *Store) CreateGroup(in CreateInput) (models.Group, error) {
	name := NormalizeName(in.Name)
	pid := strings.TrimSpace(in.ParticipantID)
	seeded := strings.TrimSpace(in.Name) != "" || pid != ""
	if seeded && (name == "" || pid == "") {
		return models.Group{}, apperr.InvalidInput("name and participantId are required together")
	}

	now := s.clock()
	g := models.Group{
		FoodType:     models.ParseFoodType(in.FoodType),
		CreatedAt:    now,
		Participants: make(map[string]models.Participant),
	}
	if seeded {
		g.Participants[pid] = models.Participant{
			ID:        pid,
			Name:      name,
			JoinedAt:  now,
			UpdatedAt: now,
		}
	}

	s.mu.Lock()
	code, err := s.codes.Generate(func(c string) bool {
		_, taken := s.groups[c]
		return taken
	})
	if err != nil {
		s.mu.Unlock()
		return models.Group{}, apperr.Wrap(apperr.CodeInternal, "generate group code", err)
	}
	g.Code = code
	e := &entry{group: g}
	proj := e.commit()
	s.groups[code] = e
	s.mu.Unlock()

	s.notify(Change{Op: OpCreate, Code: code, ParticipantID: pid, Projection: proj})
	return g.Clone(), nil
}

// JoinGroup adds a participant to a group or resolves the caller to an
// existing one.
//
// Resolution order:
//  1. A participant whose name matches case-insensitively is reused, unless
//     participantID names a different existing participant.
//  2. The participant named by participantID is reused if its stored name
//     matches.
//  3. Otherwise a new participant is minted, keeping participantID when it
//     is free and generating one when it is absent or already taken.
//
// When several participants share the name, the earliest joiner wins.
func (s *Store) JoinGroup(code, name, participantID string) (JoinResult, error) {
	name = NormalizeName(name)
	if name == "" {
		return JoinResult{}, apperr.InvalidInput("name is required")
	}
	participantID = strings.TrimSpace(participantID)

	e, err := s.lookup(code)
	if err != nil {
		return JoinResult{}, err
	}

	e.mu.Lock()
	now := s.clock()
	g := &e.group

	byName, nameOK := findByName(g.Participants, name)
	byID, idOK := g.Participants[participantID]
	if participantID == "" {
		idOK = false
	}

	var p models.Participant
	switch {
	case nameOK && (!idOK || byID.ID == byName.ID):
		p = byName
	case idOK && strings.EqualFold(byID.Name, name):
		p = byID
	default:
		id := participantID
		if id == "" || idOK {
			id = s.freshID(g.Participants)
		}
		p = models.Participant{ID: id, Name: name, JoinedAt: now}
	}
	p.Name = name
	p.UpdatedAt = later(p.UpdatedAt, now)
	g.Participants[p.ID] = p
	proj := e.commit()
	groupCode := g.Code
	e.mu.Unlock()

	s.notify(Change{Op: OpJoin, Code: groupCode, ParticipantID: p.ID, Projection: proj})
	return JoinResult{Participant: p, Projection: proj}, nil
}

// RenameParticipant changes a participant's display name.
func (s *Store) RenameParticipant(code, participantID, name string) (models.Participant, error) {
	name = NormalizeName(name)
	if name == "" {
		return models.Participant{}, apperr.InvalidInput("name is required")
	}
	if strings.TrimSpace(participantID) == "" {
		return models.Participant{}, apperr.InvalidInput("participantId is required")
	}

	e, err := s.lookup(code)
	if err != nil {
		return models.Participant{}, err
	}

	e.mu.Lock()
	p, ok := e.group.Participants[participantID]
	if !ok {
		e.mu.Unlock()
		return models.Participant{}, apperr.NotFound("participant not found")
	}
	p.Name = name
	p.UpdatedAt = later(p.UpdatedAt, s.clock())
	e.group.Participants[p.ID] = p
	proj := e.commit()
	groupCode := e.group.Code
	e.mu.Unlock()

	s.notify(Change{Op: OpRename, Code: groupCode, ParticipantID: p.ID, Projection: proj})
	return p, nil
}

// AdjustSlices adds delta to a participant's counter. The result is clamped
// at zero; over-decrementing is not an error.
func (s *Store) AdjustSlices(code, participantID string, delta int64) (models.Participant, error) {
	if delta == 0 {
		return models.Participant{}, apperr.InvalidInput("delta must be a non-zero integer")
	}
	if strings.TrimSpace(participantID) == "" {
		return models.Participant{}, apperr.InvalidInput("participantId is required")
	}

	e, err := s.lookup(code)
	if err != nil {
		return models.Participant{}, err
	}

	e.mu.Lock()
	p, ok := e.group.Participants[participantID]
	if !ok {
		e.mu.Unlock()
		return models.Participant{}, apperr.NotFound("participant not found")
	}
	now := s.clock()
	p.Slices = leaderboard.Apply(p.Slices, delta)
	p.UpdatedAt = later(p.UpdatedAt, now)
	e.group.Participants[p.ID] = p
	e.appendAudit(models.AuditEntry{At: p.UpdatedAt, ParticipantID: p.ID, Delta: delta, Slices: p.Slices}, s.auditLimit)
	proj := e.commit()
	groupCode := e.group.Code
	e.mu.Unlock()

	s.notify(Change{Op: OpAdjust, Code: groupCode, ParticipantID: p.ID, Projection: proj})
	return p, nil
}

// RemoveParticipant deletes a participant. Removing an absent participant,
// or from an unknown group, is a no-op. It reports whether anything changed.
func (s *Store) RemoveParticipant(code, participantID string) bool {
	e, err := s.lookup(code)
	if err != nil {
		return false
	}

	e.mu.Lock()
	if _, ok := e.group.Participants[participantID]; !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.group.Participants, participantID)
	proj := e.commit()
	groupCode := e.group.Code
	e.mu.Unlock()

	s.notify(Change{Op: OpLeave, Code: groupCode, ParticipantID: participantID, Projection: proj})
	return true
}

// EnsureParticipant makes sure participantID is present before its owner
// starts watching the group.
//
// An unknown ID is added under name, or DefaultName when name is empty. A
// known ID whose stored name matches name case-insensitively takes the new
// casing. A known ID with a different name is left alone.
func (s *Store) EnsureParticipant(code, participantID, name string) (models.Participant, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return models.Participant{}, apperr.InvalidInput("participantId is required")
	}
	name = NormalizeName(name)

	e, err := s.lookup(code)
	if err != nil {
		return models.Participant{}, err
	}

	e.mu.Lock()
	now := s.clock()
	p, ok := e.group.Participants[participantID]
	switch {
	case !ok:
		if name == "" {
			name = DefaultName
		}
		p = models.Participant{ID: participantID, Name: name, JoinedAt: now, UpdatedAt: now}
	case name != "" && p.Name != name && strings.EqualFold(p.Name, name):
		p.Name = name
		p.UpdatedAt = later(p.UpdatedAt, now)
	default:
		e.mu.Unlock()
		return p, nil
	}
	e.group.Participants[p.ID] = p
	proj := e.commit()
	groupCode := e.group.Code
	e.mu.Unlock()

	s.notify(Change{Op: OpPresence, Code: groupCode, ParticipantID: p.ID, Projection: proj})
	return p, nil
}

// appendAudit records a, evicting the oldest beyond limit. e.mu must be held.
func (e *entry) appendAudit(a models.AuditEntry, limit int) {
	e.group.AuditLog = append(e.group.AuditLog, a)
	if n := len(e.group.AuditLog); n > limit {
		trimmed := make([]models.AuditEntry, limit)
		copy(trimmed, e.group.AuditLog[n-limit:])
		e.group.AuditLog = trimmed
	}
}

// freshID mints an ID not used in participants.
func (s *Store) freshID(participants map[string]models.Participant) string {
	for {
		id := s.newID()
		if _, taken := participants[id]; !taken && id != "" {
			return id
		}
	}
}

// findByName returns the earliest joiner whose name matches case-insensitively.
func findByName(participants map[string]models.Participant, name string) (models.Participant, bool) {
	var (
		best  models.Participant
		found bool
	)
	for _, p := range participants {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if !found || p.JoinedAt.Before(best.JoinedAt) ||
			(p.JoinedAt.Equal(best.JoinedAt) && p.ID < best.ID) {
			best, found = p, true
		}
	}
	return best, found
}
