package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Davincible/ecoswitch-go/internal/providers"
)

// PostgresStore keeps conversations in PostgreSQL. Message content is
// stored as JSONB so text, single-block and block-list shapes survive a
// round trip unchanged.
type PostgresStore struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ Store = (*PostgresStore)(nil)

// PostgresOption configures PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTablePrefix sets the table name prefix (default "ecoswitch_").
func WithTablePrefix(prefix string) PostgresOption {
	return func(s *PostgresStore) { s.tablePrefix = prefix }
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:        pool,
		tablePrefix: "ecoswitch_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("conversation/postgres: ping: %w", err)
	}

	s := NewPostgresStore(pool, opts...)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) conversationsTable() string { return s.tablePrefix + "conversations" }
func (s *PostgresStore) messagesTable() string      { return s.tablePrefix + "messages" }
func (s *PostgresStore) linksTable() string         { return s.tablePrefix + "conversation_messages" }

// EnsureSchema creates the required tables if they don't exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS %[2]s (
			id BIGSERIAL PRIMARY KEY,
			role TEXT NOT NULL,
			content JSONB NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS %[3]s (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
			message_id BIGINT NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS %[3]s_conversation_idx ON %[3]s (conversation_id, id);
	`, s.conversationsTable(), s.messagesTable(), s.linksTable())
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("conversation/postgres: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, title, model string) (*Conversation, error) {
	c := &Conversation{Title: title, Model: model}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO %s (title, model) VALUES ($1, $2) RETURNING id, created_at`, s.conversationsTable()),
		title, model,
	).Scan(&c.ID, &c.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: create: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	c := &Conversation{}
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT id, title, model, created_at FROM %s WHERE id = $1`, s.conversationsTable()),
		id,
	).Scan(&c.ID, &c.Title, &c.Model, &c.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get conversation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: get: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT m.id, m.role, m.content, m.provider, m.model, m.created_at
			FROM %s cm JOIN %s m ON m.id = cm.message_id
			WHERE cm.conversation_id = $1
			ORDER BY cm.id`, s.linksTable(), s.messagesTable()),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: list messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m        Message
			raw      []byte
			provider string
		)
		if err := rows.Scan(&m.ID, &m.Role, &raw, &provider, &m.Model, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation/postgres: scan message: %w", err)
		}
		if err := json.Unmarshal(raw, &m.Content); err != nil {
			return nil, fmt.Errorf("conversation/postgres: decode message %d: %w", m.ID, err)
		}
		m.Provider = providers.Kind(provider)
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation/postgres: list messages: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, title, model, created_at FROM %s ORDER BY created_at DESC, id DESC`, s.conversationsTable()),
	)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: list: %w", err)
	}
	defer rows.Close()

	list := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.Model, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("conversation/postgres: scan: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation/postgres: list: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID int64, msg Message) (*Message, error) {
	if err := validateMessage(msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: encode content: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT true FROM %s WHERE id = $1 FOR SHARE`, s.conversationsTable()),
		conversationID,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("append message to %d: %w", conversationID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: lookup: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO %s (role, content, provider, model) VALUES ($1, $2::jsonb, $3, $4) RETURNING id, created_at`,
		s.messagesTable())
	args := []any{msg.Role, string(content), string(msg.Provider), msg.Model}
	if !msg.Timestamp.IsZero() {
		insert = fmt.Sprintf(`INSERT INTO %s (role, content, provider, model, created_at) VALUES ($1, $2::jsonb, $3, $4, $5) RETURNING id, created_at`,
			s.messagesTable())
		args = append(args, msg.Timestamp)
	}
	if err := tx.QueryRow(ctx, insert, args...).Scan(&msg.ID, &msg.Timestamp); err != nil {
		return nil, fmt.Errorf("conversation/postgres: insert message: %w", err)
	}

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (conversation_id, message_id) VALUES ($1, $2)`, s.linksTable()),
		conversationID, msg.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation/postgres: link message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("conversation/postgres: commit: %w", err)
	}
	return &msg, nil
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conversation/postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id IN (SELECT message_id FROM %s WHERE conversation_id = $1)`,
			s.messagesTable(), s.linksTable()),
		id,
	)
	if err != nil {
		return fmt.Errorf("conversation/postgres: delete messages: %w", err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.conversationsTable()), id)
	if err != nil {
		return fmt.Errorf("conversation/postgres: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete conversation %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("conversation/postgres: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearConversations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`TRUNCATE %s, %s, %s`, s.linksTable(), s.messagesTable(), s.conversationsTable()),
	)
	if err != nil {
		return fmt.Errorf("conversation/postgres: clear: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
