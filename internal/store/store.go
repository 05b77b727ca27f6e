package store

import (
	"errors"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/elicheradice/support-platform/pkg/logger"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                TEXT PRIMARY KEY,
	customer_id       TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'active',
	priority          TEXT NOT NULL DEFAULT 'normal',
	created_at        INTEGER NOT NULL,
	last_message_at   INTEGER NOT NULL,
	assigned_operator TEXT,
	customer_name     TEXT,
	customer_phone    TEXT
);

CREATE INDEX IF NOT EXISTS idx_conversations_status_recency
	ON conversations (status, last_message_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       INTEGER NOT NULL,
	"read"          INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_time
	ON messages (conversation_id, timestamp);
`

// Store is the durable home of conversations and messages. It owns a
// connection pool whose lifecycle is explicit: opened once by the
// composition root, closed at shutdown.
type Store struct {
	pool   *Pool
	logger *logger.Logger
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. Tests use a file under
	// t.TempDir(); the pool rejects a plain ":memory:" path.
	Path string

	// PoolSize is the connection pool size. Defaults to 4 if zero or
	// negative.
	PoolSize int

	// Logger receives operational messages. Required.
	Logger *logger.Logger
}

// Open creates the store and applies the schema. The schema uses
// CREATE ... IF NOT EXISTS throughout and is safe to run on every
// startup.
func Open(cfg Config) (*Store, error) {
	pool, err := OpenPool(PoolConfig{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Store{pool: pool, logger: cfg.Logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
