package stats

import (
	"context"
	"time"
)

// PlayEvent records one successfully started playback.
type PlayEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	ChatID    int64     `json:"chat_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the aggregate view served by the stats endpoint.
type Summary struct {
	TotalPlays    int64            `json:"total_plays"`
	CommandCounts map[string]int64 `json:"command_counts"`
	ActiveChats   []int64          `json:"active_chats"`
}

// Store persists usage statistics and the active-chat roster.
type Store interface {
	RecordPlay(ctx context.Context, event PlayEvent) error
	RecordCommandUse(ctx context.Context, name string) error
	AddChat(ctx context.Context, chatID int64, title string) error
	RemoveChat(ctx context.Context, chatID int64) error
	Summary(ctx context.Context) (Summary, error)
	Close() error
}
