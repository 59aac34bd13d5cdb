// Package scene describes the rendering capabilities the text layer needs
// from a vector backend and from the host's page containers.
package scene

// Kind tells apart the nodes a text layer is made of.
type Kind int

const (
	KindOther Kind = iota
	KindCanvas
	KindTextRun
	KindSpan
)

func (k Kind) String() string {
	switch k {
	case KindCanvas:
		return "canvas"
	case KindTextRun:
		return "text-run"
	case KindSpan:
		return "span"
	default:
		return "other"
	}
}

// Node is an element of the scene graph.
type Node interface {
	Kind() Kind
}

// Point is a position in canvas coordinates.
type Point struct {
	X, Y float64
}

// Viewport is the canvas coordinate system, [MinX, MinY, Width, Height].
type Viewport struct {
	MinX, MinY    float64
	Width, Height float64
}

// RunStyle controls how a text run is painted.
type RunStyle struct {
	// Fill is a CSS color; FillOpacity 0 makes the run invisible while
	// leaving it selectable.
	Fill        string
	FillOpacity float64
}

// Builder creates scene-graph nodes for one backend. Lengths passed in are
// never negative.
type Builder interface {
	// CreateCanvas returns a canvas that is stretched to fill its container
	// in both directions, ignoring the aspect ratio of viewport.
	CreateCanvas(viewport Viewport) Node
	// CreateTextRun returns a run whose baseline starts at pos and whose
	// rendered width is forced to forcedLength.
	CreateTextRun(pos Point, fontSize, forcedLength float64, style RunStyle) Node
	// CreateSpan returns a piece of a run starting at x = pos.X with its
	// width forced to forcedLength.
	CreateSpan(text string, pos Point, forcedLength float64) Node
	AppendChild(parent, child Node)
}

// Event is a pointer event dispatched to a container.
type Event struct {
	// Target is the innermost node under the pointer, nil for background.
	Target  Node
	stopped bool
}

// StopPropagation keeps the event from reaching the host's own handlers.
func (e *Event) StopPropagation() { e.stopped = true }

// Stopped reports whether a listener stopped the event.
func (e *Event) Stopped() bool { return e.stopped }

// Listener handles a pointer event.
type Listener func(*Event)

// Container is a page container owned by the host. It may hold at most one
// text layer.
type Container interface {
	// HasTextLayer reports whether a text layer was already attached.
	HasTextLayer() bool
	// AttachTextLayer appends canvas as the container's text layer. It
	// returns false, leaving the container untouched, if a layer is present.
	AttachTextLayer(canvas Node) bool
	// OnPress and OnRelease register listeners that run before the host's
	// gesture handling.
	OnPress(l Listener)
	OnRelease(l Listener)
}
