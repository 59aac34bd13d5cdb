package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/textlayer/internal/utils"
	"github.com/lehigh-university-libraries/textlayer/pkg/ocr"
)

var (
	// ErrNotInitialized is reported by Err before the first Initialize.
	ErrNotInitialized = errors.New("ocr source not initialized")
	// ErrEmptyDocument means the transport succeeded but returned no data.
	ErrEmptyDocument = errors.New("ocr source returned no data")
)

// resolution is the outcome of one fetch+decode. done is closed once doc or
// err is set; neither changes afterwards.
type resolution struct {
	bookID string
	done   chan struct{}
	doc    *ocr.Document
	err    error
}

// Provider resolves a book identifier to its OCR document once and serves
// per-page lookups from it.
type Provider struct {
	fetcher Fetcher
	decode  ocr.DecodeFunc

	mu      sync.Mutex
	current *resolution
}

// New creates a provider that fetches with fetcher and parses with decode.
func New(fetcher Fetcher, decode ocr.DecodeFunc) *Provider {
	return &Provider{
		fetcher: fetcher,
		decode:  decode,
	}
}

// Initialize starts fetching and decoding the OCR document for bookID and
// returns immediately. It supersedes any earlier pending or resolved
// document; an earlier fetch still in flight is left to finish unobserved.
func (p *Provider) Initialize(ctx context.Context, bookID string) {
	r := &resolution{
		bookID: bookID,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.current = r
	p.mu.Unlock()

	go p.resolve(ctx, r)
}

func (p *Provider) resolve(ctx context.Context, r *resolution) {
	defer close(r.done)
	defer func() {
		if rec := recover(); rec != nil {
			r.doc, r.err = nil, fmt.Errorf("decode ocr document: panic: %v", rec)
		}
		if r.err != nil {
			fetchOps.WithLabelValues("error").Inc()
			slog.Warn("OCR document unavailable, pages will have no text layer",
				"book", r.bookID,
				"err", utils.MaskSensitiveError(r.err))
		}
	}()

	data, err := p.fetcher.Fetch(ctx, r.bookID)
	if err != nil {
		r.err = err
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		r.err = ErrEmptyDocument
		return
	}

	doc, err := p.decode(bytes.NewReader(data))
	if err != nil {
		r.err = fmt.Errorf("decode ocr document: %w", err)
		return
	}

	r.doc = doc
	fetchOps.WithLabelValues("ok").Inc()
	slog.Info("Loaded OCR document", "book", r.bookID, "pages", len(doc.Pages), "bytes", len(data))
}

func (p *Provider) pending() *resolution {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// PageAt waits for the current book's document and returns the page at
// index. It reports false when nothing was initialized, the document could
// not be obtained, index is out of range or ctx ends first.
func (p *Provider) PageAt(ctx context.Context, index int) (*ocr.Page, bool) {
	r := p.pending()
	if r == nil {
		return nil, false
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, false
	}

	if r.err != nil {
		return nil, false
	}
	return r.doc.Page(index)
}

// Wait blocks until the current document resolved and returns the
// book-level error, if any.
func (p *Provider) Wait(ctx context.Context) error {
	r := p.pending()
	if r == nil {
		return ErrNotInitialized
	}
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BookID returns the identifier of the current session, if any.
func (p *Provider) BookID() string {
	if r := p.pending(); r != nil {
		return r.bookID
	}
	return ""
}

// PageCount returns the number of pages of the resolved document, or 0
// while pending or on failure.
func (p *Provider) PageCount() int {
	r := p.pending()
	if r == nil {
		return 0
	}
	select {
	case <-r.done:
		if r.doc != nil {
			return len(r.doc.Pages)
		}
	default:
	}
	return 0
}
