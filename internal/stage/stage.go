// Package stage is the presentation surface scripts draw on: talking-head
// speakers along the bottom of the screen and the dialogue box.
package stage

import (
	"fmt"
	"strings"
)

// Orientation is the side a speaker faces.
type Orientation int

const (
	// OrientationLeft is the natural facing of speaker art.
	OrientationLeft Orientation = iota
	// OrientationRight mirrors the speaker horizontally.
	OrientationRight
)

func (o Orientation) String() string {
	switch o {
	case OrientationLeft:
		return "LEFT"
	case OrientationRight:
		return "RIGHT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the orientation as "left" or "right".
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(o.String())), nil
}

// ParseOrientation accepts "left" or "right" in any case.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return OrientationLeft, nil
	case "right":
		return OrientationRight, nil
	default:
		return OrientationLeft, fmt.Errorf("unknown orientation %q", s)
	}
}

// Speaker is a labelled talking head.
type Speaker struct {
	Name string `json:"name"`
	// Position runs from 0 at the left edge of the screen to 1 at the right.
	Position    float64     `json:"position"`
	Orientation Orientation `json:"orientation"`
}

// ScreenX returns the horizontal offset of the speaker from the centre of a
// screen of the given width.
func (s Speaker) ScreenX(width float64) float64 {
	return width*s.Position - width/2
}

// Flipped returns true if the speaker art is drawn mirrored.
func (s Speaker) Flipped() bool {
	return s.Orientation == OrientationRight
}

// Stage receives presentation effects from running scripts. Calls are
// fire-and-forget; waiting is expressed by the script itself.
type Stage interface {
	ShowSpeaker(s Speaker)
	HideSpeaker(name string)
	SetDialogueText(text string)
	SetDialogueVisible(visible bool)
}
