// Package input carries pointer notifications from the host into the engine.
package input

// PointerEvent is a click delivered by the host's pointer layer.
type PointerEvent struct {
	// X and Y are the planar world position of the click.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Button is the pressed button; 0 is the primary button.
	Button int `json:"button"`
	// Dragging is set when the pointer moved while pressed.
	Dragging bool `json:"dragging"`
}

// IsPrimaryTap returns true for a primary-button click that was not a drag.
func (e PointerEvent) IsPrimaryTap() bool {
	return e.Button == 0 && !e.Dragging
}
