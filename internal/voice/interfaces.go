package voice

import (
	"context"

	"github.com/antoniostano/melodia/internal/audio"
)

// Recognizer converts one bounded audio segment to text. An empty transcript
// with a nil error means the engine heard nothing usable; both that and an
// error are transient from the session's point of view.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []byte, format audio.Format) (string, error)
}
