package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("Right")
	require.NoError(t, err)
	assert.Equal(t, OrientationRight, o)

	o, err = ParseOrientation("")
	require.NoError(t, err)
	assert.Equal(t, OrientationLeft, o)

	_, err = ParseOrientation("up")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", Orientation(7).String())
}

func TestSpeakerPlacement(t *testing.T) {
	s := Speaker{Name: "elder", Position: 0.25, Orientation: OrientationRight}
	assert.Equal(t, -100.0, s.ScreenX(400))
	assert.True(t, s.Flipped())
	assert.Equal(t, 200.0, Speaker{Position: 1}.ScreenX(400))
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(zap.NewNop())

	var published []Change
	r.Changes.Subscribe(func(c Change) { published = append(published, c) })

	r.ShowSpeaker(Speaker{Name: "b", Position: 0.8})
	r.ShowSpeaker(Speaker{Name: "a", Position: 0.2, Orientation: OrientationRight})
	r.SetDialogueVisible(true)
	r.SetDialogueText("Hello.")

	speakers := r.Speakers()
	require.Len(t, speakers, 2)
	assert.Equal(t, "a", speakers[0].Name)
	assert.Equal(t, "b", speakers[1].Name)

	text, visible := r.Dialogue()
	assert.Equal(t, "Hello.", text)
	assert.True(t, visible)

	r.HideSpeaker("a")
	r.HideSpeaker("nobody")
	assert.Len(t, r.Speakers(), 1)

	history := r.History()
	require.Len(t, history, 5)
	assert.Equal(t, ChangeSpeakerShown, history[0].Kind)
	assert.Equal(t, ChangeDialogueText, history[3].Kind)
	assert.Equal(t, ChangeSpeakerHidden, history[4].Kind)
	assert.Equal(t, history, published)
}

func TestRecorderNilLogger(t *testing.T) {
	r := NewRecorder(nil)
	r.SetDialogueText("ok")
	text, _ := r.Dialogue()
	assert.Equal(t, "ok", text)
}
