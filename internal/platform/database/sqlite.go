package database

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"omnihook/internal/platform/config"
)

func Open(cfg config.StorageConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Schema holds the DDL for the unified records. cmd/migrate applies it;
// repository tests apply it against :memory: databases.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	platform_message_id TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	sender_id TEXT NOT NULL,
	sender_name TEXT,
	sender_username TEXT,
	recipient_id TEXT NOT NULL,
	message_type TEXT NOT NULL,
	text TEXT,
	media_url TEXT,
	mime_type TEXT,
	reply_to TEXT,
	context TEXT,
	status TEXT NOT NULL,
	direction TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_platform_mid ON messages (platform_message_id);

CREATE TABLE IF NOT EXISTS engagements (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	platform_engagement_id TEXT NOT NULL,
	engagement_type TEXT NOT NULL,
	content_id TEXT NOT NULL,
	content_type TEXT,
	user_id TEXT NOT NULL,
	username TEXT,
	text TEXT,
	reaction TEXT,
	rating INTEGER,
	parent_id TEXT,
	timestamp TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engagements_content ON engagements (content_id);

CREATE TABLE IF NOT EXISTS opt_outs (
	platform TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (platform, user_id)
);
`

func Migrate(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
