package voice

import (
	"context"
	"log"

	"github.com/antoniostano/melodia/internal/calls"
	"github.com/antoniostano/melodia/internal/session"
	"github.com/antoniostano/melodia/internal/stats"
)

const (
	minVolume = 0
	maxVolume = 100
)

// Dispatch interprets a structured voice command against the chat's session.
// A command for a chat with no session is dropped: the supervisor producing
// it cannot exist without one, so this only happens when teardown won a
// race, and the command is stale by definition.
func (a *Assistant) Dispatch(ctx context.Context, chatID int64, cmd *Command) {
	if cmd == nil {
		return
	}
	if _, err := a.registry.Get(chatID); err != nil {
		return
	}
	if err := a.registry.TouchCommand(chatID); err != nil {
		log.Printf("voice: touch session for chat %d: %v", chatID, err)
	}
	a.metrics.VoiceCommands.WithLabelValues(string(cmd.Action)).Inc()

	switch cmd.Action {
	case ActionPlay:
		a.handlePlay(ctx, chatID, cmd.Query)
	case ActionPause:
		if err := a.transport.Pause(ctx, chatID); err != nil {
			log.Printf("voice: pause chat %d: %v", chatID, err)
		}
	case ActionResume:
		if err := a.transport.Resume(ctx, chatID); err != nil {
			log.Printf("voice: resume chat %d: %v", chatID, err)
		}
	case ActionSkip:
		if err := a.transport.Skip(ctx, chatID); err != nil {
			log.Printf("voice: skip chat %d: %v", chatID, err)
		}
	case ActionVolume:
		// Out-of-range levels are clamped into [0,100] rather than rejected:
		// "volume 150" means "as loud as possible", not "do nothing".
		level := cmd.Level
		if level < minVolume {
			level = minVolume
		}
		if level > maxVolume {
			level = maxVolume
		}
		if err := a.transport.SetVolume(ctx, chatID, level); err != nil {
			log.Printf("voice: set volume for chat %d: %v", chatID, err)
		}
	case ActionStop:
		// Teardown must not run inline: a stop spoken into the call reaches
		// here on the supervisor goroutine, and Stop blocks on that same
		// supervisor's termination.
		go func() {
			if err := a.Stop(context.Background(), chatID); err != nil {
				log.Printf("voice: stop chat %d: %v", chatID, err)
			}
		}()
	default:
		log.Printf("voice: unknown action %q for chat %d", cmd.Action, chatID)
	}
}

// handlePlay resolves the query and points the call at the resolved source.
// Resolution and transport failures are soft: they are logged and the
// session keeps listening.
func (a *Assistant) handlePlay(ctx context.Context, chatID int64, query string) {
	track, err := a.resolver.Resolve(ctx, query)
	if err != nil {
		log.Printf("voice: resolve %q for chat %d: %v", query, chatID, err)
		return
	}
	if track == nil {
		log.Printf("voice: no result for %q in chat %d", query, chatID)
		return
	}

	s, err := a.registry.Get(chatID)
	if err != nil {
		return
	}

	if s.CallHandle != "" {
		if err := a.transport.Attach(ctx, calls.Handle(s.CallHandle), track.Source); err != nil {
			log.Printf("voice: attach %q to chat %d: %v", track.Source, chatID, err)
			return
		}
	} else {
		handle, err := a.transport.Join(ctx, chatID, track.Source)
		if err != nil {
			log.Printf("voice: join chat %d for %q: %v", chatID, track.Source, err)
			return
		}
		if err := a.registry.SetCallHandle(chatID, string(handle)); err != nil {
			log.Printf("voice: set call handle for chat %d: %v", chatID, err)
		}
	}

	if s.State == session.StateJoining {
		if err := a.registry.Transition(chatID, session.StateActive, session.StateJoining); err != nil {
			log.Printf("voice: activate chat %d on play: %v", chatID, err)
		}
	}

	if err := a.store.RecordPlay(ctx, stats.PlayEvent{
		Title:    track.Title,
		Platform: track.Platform,
		ChatID:   chatID,
	}); err != nil {
		log.Printf("voice: record play %q for chat %d: %v", track.Title, chatID, err)
	}
	log.Printf("voice: now playing %q (%s) in chat %d", track.Title, track.Platform, chatID)
}
