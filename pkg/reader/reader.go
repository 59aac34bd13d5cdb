// Package reader is a small paging host: it opens book sessions, creates one
// container per displayed page and turns pages on press/release gestures.
package reader

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene/svg"
	"github.com/lehigh-university-libraries/textlayer/pkg/textselection"
)

// pageContainer is what the reader needs from the containers it hands out.
type pageContainer interface {
	scene.Container
	DispatchPress(target scene.Node) bool
	DispatchRelease(target scene.Node) bool
	HitTest(p scene.Point) scene.Node
}

// Reader implements textselection.Host.
type Reader struct {
	mu         sync.Mutex
	hooks      []func(ctx context.Context, s textselection.Session)
	factory    textselection.ContainerFactory
	session    textselection.Session
	pageCount  int
	current    int
	containers map[int]pageContainer

	pressAt *scene.Point
}

// New creates a reader. pageCount 0 means the number of pages is unknown and
// any non-negative index is accepted.
func New(pageCount int) *Reader {
	r := &Reader{
		pageCount:  pageCount,
		containers: make(map[int]pageContainer),
	}
	r.factory = func(ctx context.Context, pageIndex int) (scene.Container, error) {
		return svg.NewContainer(pageIndex), nil
	}
	return r
}

func (r *Reader) OnSessionStart(fn func(ctx context.Context, s textselection.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *Reader) WrapContainerFactory(wrap func(next textselection.ContainerFactory) textselection.ContainerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory = wrap(r.factory)
}

// Open starts a new book session. Containers of the previous book are
// discarded together with their text layers.
func (r *Reader) Open(ctx context.Context, s textselection.Session) {
	r.mu.Lock()
	r.session = s
	r.current = 0
	r.pressAt = nil
	r.containers = make(map[int]pageContainer)
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	slog.Info("Opened book", "book", s.BookID, "text_selection", s.TextSelection)
	for _, fn := range hooks {
		fn(ctx, s)
	}
}

// Session returns the current session.
func (r *Reader) Session() textselection.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Container returns the container for pageIndex, creating it on first use.
func (r *Reader) Container(ctx context.Context, pageIndex int) (scene.Container, error) {
	r.mu.Lock()
	if c, ok := r.containers[pageIndex]; ok {
		r.mu.Unlock()
		return c, nil
	}
	if pageIndex < 0 || (r.pageCount > 0 && pageIndex >= r.pageCount) {
		r.mu.Unlock()
		return nil, fmt.Errorf("page %d out of range", pageIndex)
	}
	factory := r.factory
	r.mu.Unlock()

	c, err := factory(ctx, pageIndex)
	if err != nil {
		return nil, fmt.Errorf("create container for page %d: %w", pageIndex, err)
	}
	pc, ok := c.(pageContainer)
	if !ok {
		return nil, fmt.Errorf("container for page %d does not support pointer events", pageIndex)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.containers[pageIndex]; ok {
		return existing, nil
	}
	r.containers[pageIndex] = pc
	return pc, nil
}

// SetPageCount bounds the page range once the number of pages is known and
// drops containers past the end. n <= 0 leaves the range open.
func (r *Reader) SetPageCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 {
		return
	}
	r.pageCount = n
	for idx := range r.containers {
		if idx >= n {
			delete(r.containers, idx)
		}
	}
	if r.current >= n {
		r.current = n - 1
	}
}

// ContainerCount is the number of live page containers.
func (r *Reader) ContainerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.containers)
}

// Discard drops the container of pageIndex; a later Container call creates a
// fresh one.
func (r *Reader) Discard(pageIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.containers, pageIndex)
}

// CurrentPage returns the index of the displayed page.
func (r *Reader) CurrentPage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Reader) currentContainer() (pageContainer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[r.current]
	return c, ok
}

// Press delivers a pointer press at p (page coordinates) on the current
// page. The container's listeners see it first; if they let it through the
// reader starts a flip gesture.
func (r *Reader) Press(p scene.Point) {
	c, ok := r.currentContainer()
	if !ok {
		return
	}
	if !c.DispatchPress(c.HitTest(p)) {
		return
	}
	r.mu.Lock()
	r.pressAt = &p
	r.mu.Unlock()
}

// Release completes a gesture. A release that follows an unsuppressed press
// flips the page: dragging right goes back, anything else goes forward.
func (r *Reader) Release(p scene.Point) {
	c, ok := r.currentContainer()
	if !ok {
		return
	}
	if !c.DispatchRelease(c.HitTest(p)) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pressAt == nil {
		return
	}
	dx := p.X - r.pressAt.X
	r.pressAt = nil

	switch {
	case dx > 0 && r.current > 0:
		r.current--
	case dx <= 0 && (r.pageCount == 0 || r.current < r.pageCount-1):
		r.current++
	}
}
