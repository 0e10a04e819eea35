package playback

import (
	errs "github.com/matzehuels/novella/pkg/errors"
	"github.com/matzehuels/novella/pkg/story"
)

// Next is the transition function of playback. Choosing a choice of the
// current scene moves to its target; a choice without a target, or whose
// target no longer exists, leaves the state on currentID.
//
// Next fails with NotFound when currentID names no scene or the choice does
// not belong to the current scene. It never modifies p.
func Next(p *story.Project, currentID, choiceID string) (string, error) {
	sc := p.Scene(currentID)
	if sc == nil {
		return currentID, errs.NotFound("scene", currentID)
	}
	for _, c := range sc.Choices {
		if c.ID != choiceID {
			continue
		}
		if c.HasTarget() && p.Scene(c.Target) != nil {
			return c.Target, nil
		}
		return currentID, nil
	}
	return currentID, errs.NotFound("choice", choiceID)
}

// Player walks a project one choice at a time. It holds only the current
// scene id; the project is read on every call, so edits made between calls
// are visible immediately.
type Player struct {
	p       *story.Project
	start   string
	current string
}

// New returns a player positioned at start when it names a scene, otherwise
// at the project's first scene.
func New(p *story.Project, start string) *Player {
	if p == nil {
		p = story.NewProject()
	}
	pl := &Player{p: p, start: start}
	pl.Restart()
	return pl
}

// Restart returns to the starting scene.
func (pl *Player) Restart() {
	pl.current = pl.entry()
}

func (pl *Player) entry() string {
	if pl.p.Scene(pl.start) != nil {
		return pl.start
	}
	if first := pl.p.First(); first != nil {
		return first.ID
	}
	return ""
}

// At returns the current scene id, or "" for an empty project.
func (pl *Player) At() string { return pl.current }

// Current renders the current scene. When the scene has been deleted since
// the last step, the player first moves back to the entry scene.
func (pl *Player) Current() View {
	if pl.p.Scene(pl.current) == nil {
		pl.Restart()
	}
	return Render(pl.p, pl.current)
}

// Choose follows a choice of the current scene and reports whether the
// current scene changed. Dead choices are valid and leave the player where
// it is.
func (pl *Player) Choose(choiceID string) (bool, error) {
	next, err := Next(pl.p, pl.current, choiceID)
	if err != nil {
		return false, err
	}
	moved := next != pl.current
	pl.current = next
	return moved, nil
}
