// Package media abstracts turning a free-text query into a playable source.
package media

import (
	"context"
	"strings"
)

// Track is a resolved, playable piece of media.
type Track struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Platform string `json:"platform"`
}

// Resolver looks up a query with an external catalog. A (nil, nil) return
// means the query had no result; that is a soft failure for callers.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Track, error)
}

// EchoResolver is a stand-in resolver for local runs: it fabricates a track
// whose source names the query, so the playback path can be exercised end to
// end without a real catalog.
type EchoResolver struct{}

func NewEchoResolver() *EchoResolver { return &EchoResolver{} }

func (r *EchoResolver) Resolve(_ context.Context, query string) (*Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return &Track{
		Title:    query,
		Source:   "local:" + strings.ReplaceAll(query, " ", "-"),
		Platform: "local",
	}, nil
}
