// Package replay drives a drawing session from a JSON script of mode selections
// and pointer events.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/terrasketch/drawtool/internal/input"
	"github.com/terrasketch/drawtool/pkg/core"
)

// Action names accepted in a script.
const (
	ActionMode       = "mode"
	ActionClick      = "click"
	ActionRightClick = "rightclick"
	ActionMove       = "move"
	ActionClear      = "clear"
	ActionWait       = "wait"
)

// ErrUnknownAction is returned for a step whose action is not recognised.
var ErrUnknownAction = errors.New("unknown action")

// Step is one scripted interaction. X and Y are canvas pixels.
type Step struct {
	Action string  `json:"action"`
	Mode   string  `json:"mode,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

// Script is an ordered list of steps.
type Script struct {
	Steps []Step `json:"steps"`
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (Script, error) {
	var s Script
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decoding script: %w", err)
	}
	for i, st := range s.Steps {
		switch st.Action {
		case ActionMode:
			if _, err := core.ParseMode(st.Mode); err != nil {
				return Script{}, fmt.Errorf("step %d: %w", i, err)
			}
		case ActionClick, ActionRightClick, ActionMove, ActionClear, ActionWait:
		default:
			return Script{}, fmt.Errorf("step %d: %w: %q", i, ErrUnknownAction, st.Action)
		}
	}
	return s, nil
}

// Target is the part of a session a script drives.
type Target interface {
	SetMode(m core.Mode) error
	ClearAll() error
	Wait()
}

// Runner plays scripts against a session.
type Runner struct {
	Target     Target
	Dispatcher *input.Dispatcher

	step atomic.Int64
}

// Step returns the index of the step being played, or -1 before the first.
func (r *Runner) Step() int {
	return int(r.step.Load()) - 1
}

// Run plays every step in order and waits for pending measurements at the end.
// Handler errors abort the run.
func (r *Runner) Run(s Script) error {
	for i, st := range s.Steps {
		r.step.Store(int64(i) + 1)
		if err := r.play(st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Action, err)
		}
	}
	r.Target.Wait()
	return nil
}

func (r *Runner) play(st Step) error {
	pos := core.ScreenPosition{X: st.X, Y: st.Y}
	switch st.Action {
	case ActionMode:
		m, err := core.ParseMode(st.Mode)
		if err != nil {
			return err
		}
		return r.Target.SetMode(m)
	case ActionClick:
		return r.Dispatcher.Dispatch(input.Event{Kind: input.PrimaryClick, Position: pos})
	case ActionRightClick:
		return r.Dispatcher.Dispatch(input.Event{Kind: input.SecondaryClick, Position: pos})
	case ActionMove:
		return r.Dispatcher.Dispatch(input.Event{Kind: input.PointerMove, Position: pos})
	case ActionClear:
		return r.Target.ClearAll()
	case ActionWait:
		r.Target.Wait()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, st.Action)
	}
}
