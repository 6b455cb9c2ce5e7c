package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - sessions table
const currentSchemaVersion = 1

// SQLite is a Cache backed by a SQLite database. With ":memory:" the
// database is private to the process and lives as long as its single
// connection.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and
	// SQLite allows one writer at a time anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = OFF",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

const selectSession = `
	SELECT sender_id, chat_id, message_id, group_id, has_caption, caption,
	       commands, image, seq, created_at, consumed
	FROM sessions WHERE sender_id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s         Session
		commands  string
		image     string
		createdAt int64
	)
	err := row.Scan(&s.SenderID, &s.ChatID, &s.MessageID, &s.GroupID, &s.HasCaption,
		&s.Caption, &commands, &image, &s.Seq, &createdAt, &s.Consumed)
	if err != nil {
		return Session{}, err
	}
	if s.Commands, err = decodeCommands([]byte(commands)); err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(image), &s.Image); err != nil {
		return Session{}, fmt.Errorf("decode image ref: %w", err)
	}
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	return s, nil
}

// Get implements Cache.
func (c *SQLite) Get(ctx context.Context, senderID int64) (Session, bool, error) {
	s, err := scanSession(c.db.QueryRowContext(ctx, selectSession, senderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return s, true, nil
}

// Put implements Cache.
func (c *SQLite) Put(ctx context.Context, s Session) error {
	commands, err := encodeCommands(s.Commands)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	image, err := json.Marshal(s.Image)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO sessions
		(sender_id, chat_id, message_id, group_id, has_caption, caption, commands, image, seq, created_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sender_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			message_id = excluded.message_id,
			group_id = excluded.group_id,
			has_caption = excluded.has_caption,
			caption = excluded.caption,
			commands = excluded.commands,
			image = excluded.image,
			seq = excluded.seq,
			created_at = excluded.created_at,
			consumed = excluded.consumed
	`,
		s.SenderID, s.ChatID, s.MessageID, s.GroupID, s.HasCaption, s.Caption,
		string(commands), string(image), s.Seq, s.CreatedAt.UnixNano(), s.Consumed,
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Claim implements Cache. The lookup and the consumed update share one
// transaction.
func (c *SQLite) Claim(ctx context.Context, senderID int64, groupID string) (Session, ClaimResult, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, ClaimMissing, fmt.Errorf("claim session: %w", err)
	}
	defer tx.Rollback()

	s, err := scanSession(tx.QueryRowContext(ctx, selectSession, senderID))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ClaimMissing, nil
	}
	if err != nil {
		return Session{}, ClaimMissing, fmt.Errorf("claim session: %w", err)
	}
	if !s.pairs(groupID) {
		return Session{}, ClaimMissing, nil
	}
	if s.Consumed {
		return s, ClaimConsumed, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET consumed = 1 WHERE sender_id = ? AND consumed = 0`, senderID); err != nil {
		return Session{}, ClaimMissing, fmt.Errorf("claim session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, ClaimMissing, fmt.Errorf("claim session: %w", err)
	}
	s.Consumed = true
	return s, ClaimOK, nil
}

// Sweep implements Cache.
func (c *SQLite) Sweep(ctx context.Context, now time.Time, timeout time.Duration) (int, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE created_at < ?`, now.Add(-timeout).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}

// Len implements Cache.
func (c *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

// Close implements Cache.
func (c *SQLite) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
