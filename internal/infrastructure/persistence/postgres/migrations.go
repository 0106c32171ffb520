package postgres

// Embedded schema migrations. Each migration is idempotent-safe through the
// schema_migrations tracking table; the SQL itself assumes a clean slate.

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_progression_states",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_session_records",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS progression_states (
	user_id UUID NOT NULL,
	domain TEXT NOT NULL,
	current_level INTEGER NOT NULL DEFAULT 1,
	completed_levels INTEGER[] NOT NULL DEFAULT '{}',
	badges TEXT[] NOT NULL DEFAULT '{}',
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	PRIMARY KEY (user_id, domain),
	CONSTRAINT chk_current_level CHECK (current_level >= 1),
	CONSTRAINT chk_version CHECK (version >= 1)
);

CREATE INDEX IF NOT EXISTS idx_progression_states_domain
	ON progression_states (domain);
`

const migration001Down = `
DROP TABLE IF EXISTS progression_states;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS session_records (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	domain TEXT NOT NULL,
	level_number INTEGER NOT NULL DEFAULT 0,
	metrics JSONB NOT NULL DEFAULT '{}',
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	passed BOOLEAN NOT NULL DEFAULT FALSE,
	finalized BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

	CONSTRAINT chk_score CHECK (score >= 0 AND score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_session_records_user_domain
	ON session_records (user_id, domain, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_session_records_domain_passed
	ON session_records (domain, created_at)
	WHERE passed;

-- One in-progress record per (user, domain).
CREATE UNIQUE INDEX IF NOT EXISTS idx_session_records_active
	ON session_records (user_id, domain)
	WHERE NOT finalized;
`

const migration002Down = `
DROP TABLE IF EXISTS session_records;
`
