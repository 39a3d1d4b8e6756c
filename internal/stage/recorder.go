package stage

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/signal"
)

// ChangeKind identifies a presentation effect.
type ChangeKind string

const (
	ChangeSpeakerShown   ChangeKind = "SPEAKER_SHOWN"
	ChangeSpeakerHidden  ChangeKind = "SPEAKER_HIDDEN"
	ChangeDialogueText   ChangeKind = "DIALOGUE_TEXT"
	ChangeDialogueToggle ChangeKind = "DIALOGUE_VISIBLE"
)

// Change records one presentation effect.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Speaker *Speaker   `json:"speaker,omitempty"`
	Name    string     `json:"name,omitempty"`
	Text    string     `json:"text,omitempty"`
	Visible bool       `json:"visible,omitempty"`
}

// Recorder is an in-memory Stage. It keeps the current presentation state,
// an ordered history of changes, and republishes every change on Changes.
type Recorder struct {
	logger *zap.Logger

	mu       sync.RWMutex
	speakers map[string]Speaker
	text     string
	visible  bool
	history  []Change

	// Changes is raised after each effect is applied.
	Changes *signal.Signal[Change]
}

// NewRecorder creates an empty stage.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:   logger,
		speakers: make(map[string]Speaker),
		history:  make([]Change, 0, 32),
		Changes:  signal.New[Change](),
	}
}

// ShowSpeaker places or replaces a speaker.
func (r *Recorder) ShowSpeaker(s Speaker) {
	r.mu.Lock()
	r.speakers[s.Name] = s
	r.mu.Unlock()

	r.logger.Debug("speaker shown",
		zap.String("speaker", s.Name),
		zap.Float64("position", s.Position),
		zap.Stringer("orientation", s.Orientation),
	)
	sp := s
	r.record(Change{Kind: ChangeSpeakerShown, Speaker: &sp, Name: s.Name})
}

// HideSpeaker removes a speaker. Hiding an absent speaker is a no-op.
func (r *Recorder) HideSpeaker(name string) {
	r.mu.Lock()
	_, present := r.speakers[name]
	delete(r.speakers, name)
	r.mu.Unlock()

	if !present {
		r.logger.Debug("hide of absent speaker ignored", zap.String("speaker", name))
		return
	}
	r.logger.Debug("speaker hidden", zap.String("speaker", name))
	r.record(Change{Kind: ChangeSpeakerHidden, Name: name})
}

// SetDialogueText replaces the dialogue box contents.
func (r *Recorder) SetDialogueText(text string) {
	r.mu.Lock()
	r.text = text
	r.mu.Unlock()

	r.logger.Info("dialogue", zap.String("text", text))
	r.record(Change{Kind: ChangeDialogueText, Text: text})
}

// SetDialogueVisible shows or hides the dialogue box.
func (r *Recorder) SetDialogueVisible(visible bool) {
	r.mu.Lock()
	r.visible = visible
	r.mu.Unlock()

	r.logger.Debug("dialogue box visibility", zap.Bool("visible", visible))
	r.record(Change{Kind: ChangeDialogueToggle, Visible: visible})
}

// Speakers returns the visible speakers ordered left to right.
func (r *Recorder) Speakers() []Speaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Speaker, 0, len(r.speakers))
	for _, s := range r.speakers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Dialogue returns the dialogue text and whether the box is visible.
func (r *Recorder) Dialogue() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text, r.visible
}

// History returns a copy of every change applied so far.
func (r *Recorder) History() []Change {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Change, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Recorder) record(c Change) {
	r.mu.Lock()
	r.history = append(r.history, c)
	if len(r.history) > 500 {
		r.history = r.history[len(r.history)-500:]
	}
	r.mu.Unlock()
	r.Changes.Publish(c)
}
