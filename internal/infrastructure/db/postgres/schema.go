package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id           TEXT PRIMARY KEY,
	phone        TEXT UNIQUE NOT NULL,
	display_name TEXT NOT NULL,
	role         TEXT NOT NULL CHECK (role IN ('admin', 'candidate', 'member')) DEFAULT 'member',
	approved     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- One row per phone: issuing a new code overwrites the previous one.
CREATE TABLE IF NOT EXISTS verification_codes (
	issuance_id TEXT PRIMARY KEY,
	phone       TEXT UNIQUE NOT NULL,
	code_hash   TEXT NOT NULL,
	issued_at   TIMESTAMP WITH TIME ZONE NOT NULL,
	expires_at  TIMESTAMP WITH TIME ZONE NOT NULL,
	consumed    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_verification_codes_expires_at ON verification_codes(expires_at);

CREATE TABLE IF NOT EXISTS ballots (
	voter_id     TEXT PRIMARY KEY REFERENCES identities(id),
	candidate_id TEXT NOT NULL,
	cast_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ballots_candidate_id ON ballots(candidate_id);
`

// AutoMigrate creates the tables if they don't exist.
func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
