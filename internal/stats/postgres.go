package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists usage statistics in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS play_events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			platform TEXT NOT NULL,
			chat_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_play_events_chat_created ON play_events (chat_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS command_usage (
			name TEXT PRIMARY KEY,
			uses BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS active_chats (
			chat_id BIGINT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			added_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) RecordPlay(ctx context.Context, event PlayEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO play_events (id, title, platform, chat_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID,
		event.Title,
		event.Platform,
		event.ChatID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record play: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordCommandUse(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO command_usage (name, uses) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET uses = command_usage.uses + 1`,
		name,
	)
	if err != nil {
		return fmt.Errorf("record command use: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddChat(ctx context.Context, chatID int64, title string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO active_chats (chat_id, title) VALUES ($1, $2)
		 ON CONFLICT (chat_id) DO UPDATE SET title = EXCLUDED.title`,
		chatID,
		title,
	)
	if err != nil {
		return fmt.Errorf("add chat: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveChat(ctx context.Context, chatID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM active_chats WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("remove chat: %w", err)
	}
	return nil
}

func (s *PostgresStore) Summary(ctx context.Context) (Summary, error) {
	out := Summary{CommandCounts: make(map[string]int64)}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM play_events`).Scan(&out.TotalPlays); err != nil {
		return Summary{}, fmt.Errorf("count plays: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT name, uses FROM command_usage`)
	if err != nil {
		return Summary{}, fmt.Errorf("query command usage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var uses int64
		if err := rows.Scan(&name, &uses); err != nil {
			return Summary{}, fmt.Errorf("scan command usage row: %w", err)
		}
		out.CommandCounts[name] = uses
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate command usage rows: %w", err)
	}

	chatRows, err := s.pool.Query(ctx, `SELECT chat_id FROM active_chats ORDER BY chat_id`)
	if err != nil {
		return Summary{}, fmt.Errorf("query active chats: %w", err)
	}
	defer chatRows.Close()
	for chatRows.Next() {
		var id int64
		if err := chatRows.Scan(&id); err != nil {
			return Summary{}, fmt.Errorf("scan active chat row: %w", err)
		}
		out.ActiveChats = append(out.ActiveChats, id)
	}
	if err := chatRows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate active chat rows: %w", err)
	}

	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
