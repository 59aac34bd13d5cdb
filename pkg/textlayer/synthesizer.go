// Package textlayer turns OCR pages into invisible, selectable vector text
// layers that line up with the scanned page image.
package textlayer

import (
	"context"
	"log/slog"
	"math"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene"
)

// PageSource resolves a page index to its OCR record.
type PageSource interface {
	PageAt(ctx context.Context, index int) (*ocr.Page, bool)
}

var (
	invisibleStyle = scene.RunStyle{Fill: "black", FillOpacity: 0}
	debugStyle     = scene.RunStyle{Fill: "red", FillOpacity: 1}
)

// Synthesizer builds text layers and attaches them to page containers.
type Synthesizer struct {
	pages   PageSource
	builder scene.Builder
	style   scene.RunStyle
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithDebug paints runs in solid red so alignment can be checked by eye.
func WithDebug(debug bool) Option {
	return func(s *Synthesizer) {
		if debug {
			s.style = debugStyle
		} else {
			s.style = invisibleStyle
		}
	}
}

func New(pages PageSource, builder scene.Builder, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		pages:   pages,
		builder: builder,
		style:   invisibleStyle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach adds a text layer for pageIndex to container and installs the
// gesture guard. It does nothing when the container already has a layer or
// no OCR page is available, and reports whether a layer was attached.
func (s *Synthesizer) Attach(ctx context.Context, pageIndex int, container scene.Container) bool {
	if container.HasTextLayer() {
		return false
	}

	page, ok := s.pages.PageAt(ctx, pageIndex)
	if !ok {
		layerOps.WithLabelValues("absent").Inc()
		slog.Debug("No OCR page, leaving container without text layer", "page", pageIndex)
		return false
	}

	canvas := s.Build(page)
	// Another attach for the same container may have won while we waited.
	if !container.AttachTextLayer(canvas) {
		return false
	}

	guard := &GestureGuard{}
	guard.Install(container)

	layerOps.WithLabelValues("attached").Inc()
	slog.Debug("Attached text layer", "page", pageIndex, "lines", len(page.Lines))
	return true
}

// Build creates the canvas for page: one text run per line with at least one
// boxed word, one span per word and one space span between adjacent words.
func (s *Synthesizer) Build(page *ocr.Page) scene.Node {
	b := s.builder
	canvas := b.CreateCanvas(scene.Viewport{Width: page.Width, Height: page.Height})

	for _, line := range page.Lines {
		words := line.BoxedWords()
		if len(words) == 0 {
			continue
		}
		extent, _ := line.Extent()

		run := b.CreateTextRun(
			scene.Point{X: extent.Left, Y: extent.Bottom},
			clamp(extent.Height()),
			clamp(extent.Width()),
			s.style,
		)

		for i, w := range words {
			b.AppendChild(run, b.CreateSpan(w.Text, scene.Point{X: w.Box.Left, Y: extent.Bottom}, clamp(w.Box.Width())))
			if i == len(words)-1 {
				break
			}
			next := words[i+1]
			gap := next.Box.Left - w.Box.Right
			b.AppendChild(run, b.CreateSpan(" ", scene.Point{X: w.Box.Right, Y: extent.Bottom}, clamp(gap)))
		}

		b.AppendChild(canvas, run)
	}

	return canvas
}

// clamp keeps inverted or overlapping geometry from producing negative
// lengths.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
