// Package groupstore owns every group and participant in memory and exposes
// the atomic mutations on them.
//
// Locking: the store-wide lock guards the code → group map and is held only
// to find or insert a group. Each group has its own mutex guarding its
// participants, audit trail and version. Observers run after every lock is
// released and receive the projection taken while the group lock was held.
package groupstore

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/slicetally/internal/apperr"
	"github.com/mmynk/slicetally/internal/codes"
	"github.com/mmynk/slicetally/internal/leaderboard"
	"github.com/mmynk/slicetally/internal/models"
)

// DefaultAuditLimit is the number of audit entries kept per group when no
// limit is configured.
const DefaultAuditLimit = 1000

// Op names the kind of mutation that produced a Change.
type Op string

const (
	OpCreate   Op = "create"
	OpJoin     Op = "join"
	OpRename   Op = "rename"
	OpAdjust   Op = "adjust"
	OpLeave    Op = "leave"
	OpPresence Op = "presence"
)

// Change describes one accepted mutation.
type Change struct {
	Op            Op
	Code          string
	ParticipantID string
	// Projection is the group as it was when the mutation's lock was released.
	Projection models.Projection
}

// Observer is notified after every accepted mutation.
// GroupChanged runs on the mutating caller's goroutine and must not block.
type Observer interface {
	GroupChanged(Change)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Change)

// GroupChanged calls f(c).
func (f ObserverFunc) GroupChanged(c Change) { f(c) }

type entry struct {
	mu      sync.Mutex
	group   models.Group
	version uint64
}

// Store is the in-memory source of truth for groups.
type Store struct {
	mu     sync.RWMutex
	groups map[string]*entry

	obsMu     sync.RWMutex
	observers []Observer

	codes      *codes.Generator
	now        func() time.Time
	newID      func() string
	auditLimit int
	initial    *models.State
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how fresh participant IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithCodeGenerator overrides the group code generator.
func WithCodeGenerator(g *codes.Generator) Option {
	return func(s *Store) { s.codes = g }
}

// WithAuditLimit sets how many audit entries each group keeps.
func WithAuditLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.auditLimit = n
		}
	}
}

// WithState seeds the store, typically with the state loaded at startup.
func WithState(state *models.State) Option {
	return func(s *Store) { s.initial = state }
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		groups:     make(map[string]*entry),
		codes:      codes.New(),
		now:        time.Now,
		newID:      uuid.NewString,
		auditLimit: DefaultAuditLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.initial != nil {
		s.load(s.initial)
		s.initial = nil
	}
	return s
}

// load copies a persisted state into the store, repairing anything that
// would break an invariant.
func (s *Store) load(state *models.State) {
	for key, g := range state.Groups {
		g = g.Clone()
		if g.Code == "" {
			g.Code = key
		}
		g.Code = normalizeCode(g.Code)
		g.FoodType = models.ParseFoodType(string(g.FoodType))
		for id, p := range g.Participants {
			if p.ID == "" {
				p.ID = id
			}
			if p.Slices < 0 {
				p.Slices = 0
			}
			g.Participants[id] = p
		}
		if n := len(g.AuditLog); n > s.auditLimit {
			g.AuditLog = g.AuditLog[n-s.auditLimit:]
		}
		s.groups[g.Code] = &entry{group: g}
	}
}

// Observe registers o to be notified of every accepted mutation.
func (s *Store) Observe(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

func (s *Store) notify(c Change) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, o := range observers {
		o.GroupChanged(c)
	}
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func (s *Store) lookup(code string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.groups[normalizeCode(code)]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.NotFound("group not found")
	}
	return e, nil
}

// commit bumps the version and returns the projection. e.mu must be held.
func (e *entry) commit() models.Projection {
	e.version++
	return leaderboard.Project(e.group, e.version)
}

// GroupCount returns the number of groups.
func (s *Store) GroupCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// GetGroup returns a copy of the group.
func (s *Store) GetGroup(code string) (models.Group, error) {
	e, err := s.lookup(code)
	if err != nil {
		return models.Group{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.group.Clone(), nil
}

// Projection returns the current ranked view of the group.
func (s *Store) Projection(code string) (models.Projection, error) {
	e, err := s.lookup(code)
	if err != nil {
		return models.Projection{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return leaderboard.Project(e.group, e.version), nil
}

// ListParticipants returns the group's participants ranked by slices
// descending, earlier joiners first on ties.
func (s *Store) ListParticipants(code string) ([]models.ParticipantView, error) {
	p, err := s.Projection(code)
	if err != nil {
		return nil, err
	}
	return p.Participants, nil
}

// Snapshot returns a deep copy of every group.
func (s *Store) Snapshot() *models.State {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.groups))
	for _, e := range s.groups {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	state := &models.State{Groups: make(map[string]models.Group, len(entries))}
	for _, e := range entries {
		e.mu.Lock()
		g := e.group.Clone()
		e.mu.Unlock()
		state.Groups[g.Code] = g
	}
	return state
}

// NormalizeName trims a display name and caps it at models.MaxNameLength runes.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > models.MaxNameLength {
		name = strings.TrimSpace(string(r[:models.MaxNameLength]))
	}
	return name
}

// normalizeCode makes user-typed codes match generated ones.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// later keeps per-field timestamps non-decreasing when the clock steps back.
func later(prev, now time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
