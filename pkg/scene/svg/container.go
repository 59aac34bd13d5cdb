package svg

import (
	"sync"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// Container is an in-memory page container. It holds at most one text layer
// and dispatches pointer events to its listeners before the host sees them.
type Container struct {
	index int

	mu      sync.Mutex
	layer   *Element
	press   []scene.Listener
	release []scene.Listener
}

func NewContainer(pageIndex int) *Container {
	return &Container{index: pageIndex}
}

// PageIndex is the index of the page this container displays.
func (c *Container) PageIndex() int { return c.index }

func (c *Container) HasTextLayer() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layer != nil
}

func (c *Container) AttachTextLayer(canvas scene.Node) bool {
	el, ok := canvas.(*Element)
	if !ok || el.Kind() != scene.KindCanvas {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.layer != nil {
		return false
	}
	c.layer = el
	return true
}

// TextLayer returns the attached canvas or nil.
func (c *Container) TextLayer() *Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layer
}

func (c *Container) OnPress(l scene.Listener) {
	c.mu.Lock()
	c.press = append(c.press, l)
	c.mu.Unlock()
}

func (c *Container) OnRelease(l scene.Listener) {
	c.mu.Lock()
	c.release = append(c.release, l)
	c.mu.Unlock()
}

// DispatchPress runs the press listeners and reports whether the event
// should continue to the host's handlers.
func (c *Container) DispatchPress(target scene.Node) bool {
	c.mu.Lock()
	ls := append([]scene.Listener(nil), c.press...)
	c.mu.Unlock()
	return dispatch(ls, target)
}

// DispatchRelease is DispatchPress for pointer releases.
func (c *Container) DispatchRelease(target scene.Node) bool {
	c.mu.Lock()
	ls := append([]scene.Listener(nil), c.release...)
	c.mu.Unlock()
	return dispatch(ls, target)
}

func dispatch(ls []scene.Listener, target scene.Node) bool {
	ev := &scene.Event{Target: target}
	for _, l := range ls {
		l(ev)
		if ev.Stopped() {
			return false
		}
	}
	return true
}

// HitTest returns the span under p, given in canvas coordinates, or nil when
// p is over background. Spans are hit by their x range and their run's
// line box (baseline minus font size up to baseline).
func (c *Container) HitTest(p scene.Point) scene.Node {
	layer := c.TextLayer()
	if layer == nil {
		return nil
	}
	for _, run := range layer.FindAll(scene.KindTextRun) {
		baseline := run.FloatAttr("y")
		top := baseline - run.FloatAttr("font-size")
		if p.Y < top || p.Y > baseline {
			continue
		}
		for _, span := range run.Children {
			x := span.FloatAttr("x")
			if p.X >= x && p.X <= x+span.FloatAttr("textLength") {
				return span
			}
		}
	}
	return nil
}
