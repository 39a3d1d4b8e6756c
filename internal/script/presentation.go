package script

import (
	"slices"
	"strings"

	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/script/command"
	"github.com/tsani/sixteen-fifty/internal/stage"
)

// Dialogue shows lines of text one at a time in the dialogue box. Each line
// stays up until the player clicks the main panel.
//
// The dialogue claims exclusive pointer input before the first line and
// releases it, along with the dialogue box, before completing.
type Dialogue struct {
	Lines []string
}

func (d Dialogue) Kind() Kind { return KindDialogue }

func (d Dialogue) Equal(other Script) bool {
	o, ok := other.(Dialogue)
	return ok && slices.Equal(d.Lines, o.Lines)
}

func (d Dialogue) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if len(d.Lines) == 0 {
		return nil, invalid(KindDialogue, "no lines")
	}
	if ctx.Stage == nil {
		return nil, missing(KindDialogue, "stage")
	}
	if ctx.Host == nil {
		return nil, missing(KindDialogue, "host")
	}
	host, st := ctx.Host, ctx.Stage

	steps := make([]command.Command[any], 0, 2*len(d.Lines)+2)
	steps = append(steps, command.Effect(func() any {
		host.SetBlocksRaycasts(true)
		st.SetDialogueVisible(true)
		return nil
	}))
	for _, line := range d.Lines {
		line := line
		steps = append(steps,
			command.Effect(func() any {
				st.SetDialogueText(line)
				return nil
			}),
			command.Erase(command.WaitSignal[input.PointerEvent](host.OnMainPanelClicked)),
		)
	}
	steps = append(steps, command.Effect(func() any {
		st.SetDialogueText("")
		st.SetDialogueVisible(false)
		host.SetBlocksRaycasts(false)
		return nil
	}))
	return command.Sequence(steps...), nil
}

// ShowSpeaker puts a talking head on stage.
type ShowSpeaker struct {
	Name        string
	Position    float64
	Orientation stage.Orientation
}

func (s ShowSpeaker) Kind() Kind { return KindShowSpeaker }

func (s ShowSpeaker) Equal(other Script) bool {
	o, ok := other.(ShowSpeaker)
	return ok && o == s
}

func (s ShowSpeaker) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if strings.TrimSpace(s.Name) == "" {
		return nil, invalid(KindShowSpeaker, "speaker name is empty")
	}
	if s.Position < 0 || s.Position > 1 {
		return nil, invalid(KindShowSpeaker, "position %v outside [0, 1]", s.Position)
	}
	if ctx.Stage == nil {
		return nil, missing(KindShowSpeaker, "stage")
	}
	st := ctx.Stage
	speaker := stage.Speaker{Name: s.Name, Position: s.Position, Orientation: s.Orientation}
	return command.Effect(func() any {
		st.ShowSpeaker(speaker)
		return nil
	}), nil
}

// HideSpeaker removes a talking head from the stage.
type HideSpeaker struct {
	Name string
}

func (h HideSpeaker) Kind() Kind { return KindHideSpeaker }

func (h HideSpeaker) Equal(other Script) bool {
	o, ok := other.(HideSpeaker)
	return ok && o == h
}

func (h HideSpeaker) Compile(ctx *Context) (command.Command[any], error) {
	ctx = orEmpty(ctx)
	if strings.TrimSpace(h.Name) == "" {
		return nil, invalid(KindHideSpeaker, "speaker name is empty")
	}
	if ctx.Stage == nil {
		return nil, missing(KindHideSpeaker, "stage")
	}
	st, name := ctx.Stage, h.Name
	return command.Effect(func() any {
		st.HideSpeaker(name)
		return nil
	}), nil
}
