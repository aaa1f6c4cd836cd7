package voice

import (
	"regexp"
	"strconv"
	"strings"
)

// Action is the playback operation extracted from recognized speech.
type Action string

const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
	ActionSkip   Action = "skip"
	ActionVolume Action = "volume"
)

// Command is a structured voice command. Query is set only for play,
// Level only for volume. Level carries whatever integer was spoken;
// range validation is the dispatcher's job.
type Command struct {
	Action Action
	Query  string
	Level  int
}

// defaultWakePhrases are checked in order; the first phrase found in the
// transcript wins and only its first occurrence is removed.
var defaultWakePhrases = []string{
	"assistant",
	"hey assistant",
	"ok assistant",
	"hello assistant",
}

// intentPatterns are matched against the post-wake-word remainder in order;
// earlier patterns take priority over later, broader ones. The order is
// behavior, not style: "play despacito" must hit the play pattern before the
// bare "stop"-style alternations get a chance.
var intentPatterns = []struct {
	re     *regexp.Regexp
	action Action
}{
	{regexp.MustCompile(`play\s+(.+)`), ActionPlay},
	{regexp.MustCompile(`search\s+(.+)`), ActionPlay},
	{regexp.MustCompile(`start\s+(.+)`), ActionPlay},
	{regexp.MustCompile(`put\s+on\s+(.+)`), ActionPlay},
	{regexp.MustCompile(`listen\s+to\s+(.+)`), ActionPlay},
	{regexp.MustCompile(`pause|hold`), ActionPause},
	{regexp.MustCompile(`resume|continue|unpause`), ActionResume},
	{regexp.MustCompile(`stop|end|quit|close`), ActionStop},
	{regexp.MustCompile(`skip|next`), ActionSkip},
	{regexp.MustCompile(`volume\s+(\d+)`), ActionVolume},
}

// Extractor turns a recognized transcript into an optional Command. It is a
// pure function over its configured wake phrases and holds no state.
type Extractor struct {
	wakePhrases []string
}

// NewExtractor builds an extractor with the given wake phrases, falling back
// to the defaults when none are provided.
func NewExtractor(wakePhrases []string) *Extractor {
	if len(wakePhrases) == 0 {
		wakePhrases = defaultWakePhrases
	}
	return &Extractor{wakePhrases: wakePhrases}
}

// Extract returns the command addressed to the assistant, or nil when the
// speech is not addressed to it (no wake phrase) or carries no content after
// the wake phrase. Unrecognized phrasing after the wake phrase falls back to
// a play request with the full remainder as the query.
func (e *Extractor) Extract(text string) *Command {
	text = strings.ToLower(strings.TrimSpace(text))

	found := false
	for _, phrase := range e.wakePhrases {
		if strings.Contains(text, phrase) {
			text = strings.TrimSpace(strings.Replace(text, phrase, "", 1))
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	for _, p := range intentPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		switch p.action {
		case ActionPlay:
			return &Command{Action: ActionPlay, Query: strings.TrimSpace(m[1])}
		case ActionVolume:
			level, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return &Command{Action: ActionVolume, Level: level}
		default:
			return &Command{Action: p.action}
		}
	}

	if text != "" {
		return &Command{Action: ActionPlay, Query: text}
	}
	return nil
}
