package sqlite

import "database/sql"

// schema sets up the snapshot tables. It runs on startup to ensure tables exist.
// Timestamps are stored as Unix nanoseconds (UTC).
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    code TEXT PRIMARY KEY,
    food_type TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    group_code TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    slices INTEGER NOT NULL CHECK (slices >= 0),
    joined_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (group_code, id),
    FOREIGN KEY (group_code) REFERENCES groups(code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit_log (
    group_code TEXT NOT NULL,
    seq INTEGER NOT NULL,
    at INTEGER NOT NULL,
    participant_id TEXT NOT NULL,
    delta INTEGER NOT NULL,
    slices INTEGER NOT NULL,
    PRIMARY KEY (group_code, seq),
    FOREIGN KEY (group_code) REFERENCES groups(code) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_participants_group_code ON participants(group_code);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
