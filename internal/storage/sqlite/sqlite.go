// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/slicetally/internal/models"
	"github.com/mmynk/slicetally/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveState replaces every stored group with the groups in state, in one
// transaction.
func (s *SQLiteStore) SaveState(ctx context.Context, state *models.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM groups"); err != nil {
		return fmt.Errorf("failed to clear groups: %w", err)
	}

	for _, g := range state.Groups {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO groups (code, food_type, created_at) VALUES (?, ?, ?)",
			g.Code, string(g.FoodType), toUnix(g.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert group %s: %w", g.Code, err)
		}

		for _, p := range g.Participants {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO participants (group_code, id, name, slices, joined_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				g.Code, p.ID, p.Name, p.Slices, toUnix(p.JoinedAt), toUnix(p.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		for i, a := range g.AuditLog {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO audit_log (group_code, seq, at, participant_id, delta, slices)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				g.Code, i, toUnix(a.At), a.ParticipantID, a.Delta, a.Slices,
			)
			if err != nil {
				return fmt.Errorf("failed to insert audit entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LoadState reads every stored group.
func (s *SQLiteStore) LoadState(ctx context.Context) (*models.State, error) {
	state := models.NewState()

	rows, err := s.db.QueryContext(ctx, "SELECT code, food_type, created_at FROM groups")
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g         models.Group
			foodType  string
			createdAt int64
		)
		if err := rows.Scan(&g.Code, &foodType, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.FoodType = models.FoodType(foodType)
		g.CreatedAt = fromUnix(createdAt)
		g.Participants = make(map[string]models.Participant)
		state.Groups[g.Code] = g
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	if err := s.loadParticipants(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadAuditLog(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *SQLiteStore) loadParticipants(ctx context.Context, state *models.State) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_code, id, name, slices, joined_at, updated_at FROM participants",
	)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code                string
			p                   models.Participant
			joinedAt, updatedAt int64
		)
		if err := rows.Scan(&code, &p.ID, &p.Name, &p.Slices, &joinedAt, &updatedAt); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		p.JoinedAt = fromUnix(joinedAt)
		p.UpdatedAt = fromUnix(updatedAt)
		if g, ok := state.Groups[code]; ok {
			g.Participants[p.ID] = p
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadAuditLog(ctx context.Context, state *models.State) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_code, at, participant_id, delta, slices FROM audit_log ORDER BY group_code, seq",
	)
	if err != nil {
		return fmt.Errorf("failed to get audit log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code string
			a    models.AuditEntry
			at   int64
		)
		if err := rows.Scan(&code, &at, &a.ParticipantID, &a.Delta, &a.Slices); err != nil {
			return fmt.Errorf("failed to scan audit entry: %w", err)
		}
		a.At = fromUnix(at)
		if g, ok := state.Groups[code]; ok {
			g.AuditLog = append(g.AuditLog, a)
			state.Groups[code] = g
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate audit log: %w", err)
	}
	return nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
