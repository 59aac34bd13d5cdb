// Package session composes the text selection pieces for one opened book and
// keeps recently used books alive for a while.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/reader"
	"github.com/lehigh-university-libraries/textlayer/pkg/scene/svg"
	"github.com/lehigh-university-libraries/textlayer/pkg/source"
	"github.com/lehigh-university-libraries/textlayer/pkg/textlayer"
	"github.com/lehigh-university-libraries/textlayer/pkg/textselection"
)

type Options struct {
	Fetcher       source.Fetcher
	Decode        ocr.DecodeFunc
	TextSelection bool
	Debug         bool
	// PageCount bounds the reader's page range; 0 leaves it open.
	PageCount int
}

// Book is one opened book: a reader host with the text selection plugin
// registered on it.
type Book struct {
	ID       string
	Reader   *reader.Reader
	Plugin   *textselection.Plugin
	Provider *source.Provider

	mu sync.Mutex
}

// Open wires provider, synthesizer and plugin onto a new reader and starts
// the book session. The OCR fetch, if any, runs in the background.
func Open(ctx context.Context, bookID string, opts Options) *Book {
	prov := source.New(opts.Fetcher, opts.Decode)
	synth := textlayer.New(prov, svg.NewBuilder(), textlayer.WithDebug(opts.Debug))
	plugin := textselection.New(prov, synth)

	r := reader.New(opts.PageCount)
	plugin.Register(r)
	r.Open(ctx, textselection.Session{BookID: bookID, TextSelection: opts.TextSelection})

	return &Book{
		ID:       bookID,
		Reader:   r,
		Plugin:   plugin,
		Provider: prov,
	}
}

// TextLayer returns the text layer attached to the container of pageIndex,
// waiting for a pending attach. It returns nil when the page has no layer.
func (b *Book) TextLayer(ctx context.Context, pageIndex int) (*svg.Element, error) {
	// No container is created for pages that can never get a layer: text
	// selection off, OCR unavailable or an index past the document.
	if b.Provider.BookID() != b.ID {
		return nil, nil
	}
	if err := b.Provider.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, nil
	}
	n := b.Provider.PageCount()
	b.Reader.SetPageCount(n)
	if pageIndex >= n {
		return nil, nil
	}

	c, err := b.Reader.Container(ctx, pageIndex)
	if err != nil {
		return nil, err
	}
	if err := b.Plugin.Wait(ctx, c); err != nil {
		return nil, err
	}
	sc, ok := c.(*svg.Container)
	if !ok {
		return nil, fmt.Errorf("page %d container is %T, not an svg container", pageIndex, c)
	}
	return sc.TextLayer(), nil
}

// Page returns the OCR page at pageIndex for export. Unlike the text layer
// this starts the OCR fetch when the session had text selection off.
func (b *Book) Page(ctx context.Context, pageIndex int) (*ocr.Page, bool) {
	b.mu.Lock()
	if b.Provider.BookID() != b.ID {
		b.Provider.Initialize(context.WithoutCancel(ctx), b.ID)
	}
	b.mu.Unlock()

	return b.Provider.PageAt(ctx, pageIndex)
}
