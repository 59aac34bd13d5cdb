// Package textselection wires OCR text layers into a paging host through two
// extension points: session start and page container creation.
package textselection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// Session describes one opened book.
type Session struct {
	BookID string
	// TextSelection is the feature toggle; when false no OCR work happens
	// for the session.
	TextSelection bool
}

// ContainerFactory creates the container for a page.
type ContainerFactory func(ctx context.Context, pageIndex int) (scene.Container, error)

// Host is the capability a paging host exposes to extensions.
type Host interface {
	// OnSessionStart registers fn to run once whenever a book is opened.
	OnSessionStart(fn func(ctx context.Context, s Session))
	// WrapContainerFactory replaces the host's container factory with
	// wrap(current). Wrappers must call through to current.
	WrapContainerFactory(wrap func(next ContainerFactory) ContainerFactory)
}

// Initializer starts resolving a book's OCR document.
type Initializer interface {
	Initialize(ctx context.Context, bookID string)
}

// Attacher attaches a text layer to a container.
type Attacher interface {
	Attach(ctx context.Context, pageIndex int, container scene.Container) bool
}

// Plugin connects an OCR provider and a text layer synthesizer to a host.
// Containers handed to it must be comparable (pointer types in practice).
type Plugin struct {
	provider Initializer
	synth    Attacher

	mu      sync.Mutex
	enabled bool
	pending map[scene.Container]chan struct{}
}

func New(provider Initializer, synth Attacher) *Plugin {
	return &Plugin{
		provider: provider,
		synth:    synth,
		pending:  make(map[scene.Container]chan struct{}),
	}
}

// Register installs the plugin's hooks on h.
func (p *Plugin) Register(h Host) {
	h.OnSessionStart(p.startSession)
	h.WrapContainerFactory(p.wrap)
}

// Enabled reports whether the current session has text selection turned on.
func (p *Plugin) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Plugin) startSession(ctx context.Context, s Session) {
	p.mu.Lock()
	p.enabled = s.TextSelection
	p.mu.Unlock()

	if !s.TextSelection {
		slog.Debug("Text selection disabled for session", "book", s.BookID)
		return
	}
	p.provider.Initialize(ctx, s.BookID)
}

func (p *Plugin) wrap(next ContainerFactory) ContainerFactory {
	return func(ctx context.Context, pageIndex int) (scene.Container, error) {
		c, err := next(ctx, pageIndex)
		if err != nil || c == nil {
			return c, err
		}
		if p.Enabled() {
			p.schedule(ctx, pageIndex, c)
		}
		return c, nil
	}
}

// schedule runs the attach in the background so the host can render the
// page while the OCR document is still loading.
func (p *Plugin) schedule(ctx context.Context, pageIndex int, c scene.Container) {
	done := make(chan struct{})

	p.mu.Lock()
	if _, busy := p.pending[c]; busy {
		p.mu.Unlock()
		return
	}
	p.pending[c] = done
	p.mu.Unlock()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Text layer attach panicked", "page", pageIndex, "panic", rec)
			}
			p.mu.Lock()
			delete(p.pending, c)
			p.mu.Unlock()
			close(done)
		}()
		p.synth.Attach(context.WithoutCancel(ctx), pageIndex, c)
	}()
}

// Wait blocks until the attach scheduled for c, if any, has finished.
func (p *Plugin) Wait(ctx context.Context, c scene.Container) error {
	p.mu.Lock()
	done, ok := p.pending[c]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
