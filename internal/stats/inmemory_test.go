package stats

import (
	"context"
	"testing"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.RecordPlay(ctx, PlayEvent{Title: "foo", Platform: "local", ChatID: 42}); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}
	if err := s.RecordCommandUse(ctx, "assiststart"); err != nil {
		t.Fatalf("RecordCommandUse() error = %v", err)
	}
	if err := s.RecordCommandUse(ctx, "assiststart"); err != nil {
		t.Fatalf("RecordCommandUse() error = %v", err)
	}
	if err := s.AddChat(ctx, 42, "music lounge"); err != nil {
		t.Fatalf("AddChat() error = %v", err)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.TotalPlays != 1 {
		t.Fatalf("TotalPlays = %d, want 1", sum.TotalPlays)
	}
	if sum.CommandCounts["assiststart"] != 2 {
		t.Fatalf("CommandCounts[assiststart] = %d, want 2", sum.CommandCounts["assiststart"])
	}
	if len(sum.ActiveChats) != 1 || sum.ActiveChats[0] != 42 {
		t.Fatalf("ActiveChats = %v, want [42]", sum.ActiveChats)
	}
}

func TestInMemoryStoreRemoveChat(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.AddChat(ctx, 1, ""); err != nil {
		t.Fatalf("AddChat() error = %v", err)
	}
	if err := s.RemoveChat(ctx, 1); err != nil {
		t.Fatalf("RemoveChat() error = %v", err)
	}
	// Removing an absent chat is a no-op.
	if err := s.RemoveChat(ctx, 1); err != nil {
		t.Fatalf("RemoveChat() on absent chat error = %v", err)
	}

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(sum.ActiveChats) != 0 {
		t.Fatalf("ActiveChats = %v, want empty", sum.ActiveChats)
	}
}
