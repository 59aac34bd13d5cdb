package textlayer

import (
	"sync"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// GestureState is the state of a GestureGuard.
type GestureState int

const (
	Idle GestureState = iota
	Armed
)

func (s GestureState) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// GestureGuard keeps a text selection drag from being read as a page flip.
// A press on a span is stopped and arms the guard; the next release is
// stopped too and disarms it. Presses on background pass through untouched.
type GestureGuard struct {
	mu    sync.Mutex
	state GestureState
}

// Install registers the guard's listeners on c.
func (g *GestureGuard) Install(c scene.Container) {
	c.OnPress(g.HandlePress)
	c.OnRelease(g.HandleRelease)
}

func (g *GestureGuard) HandlePress(ev *scene.Event) {
	if ev.Target == nil || ev.Target.Kind() != scene.KindSpan {
		return
	}
	ev.StopPropagation()

	g.mu.Lock()
	g.state = Armed
	g.mu.Unlock()
}

func (g *GestureGuard) HandleRelease(ev *scene.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Armed {
		return
	}
	ev.StopPropagation()
	g.state = Idle
}

// State returns the current state.
func (g *GestureGuard) State() GestureState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
