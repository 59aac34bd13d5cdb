package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lehigh-university-libraries/textlayer/internal/utils"
)

// DefaultURLTemplate is the Internet Archive DjVu XML endpoint.
const DefaultURLTemplate = "https://cors.archive.org/cors/{id}/{id}_djvu.xml"

// Placeholder is replaced by the escaped book identifier in templates.
const Placeholder = "{id}"

// maxDocumentBytes bounds a single OCR document download.
const maxDocumentBytes = 256 << 20

// Fetcher retrieves the raw OCR document for a book.
type Fetcher interface {
	Fetch(ctx context.Context, bookID string) ([]byte, error)
}

// HTTPFetcher performs a GET against a URL template. Concurrent fetches of
// the same URL share one request.
type HTTPFetcher struct {
	template   string
	httpClient *http.Client
	group      singleflight.Group
}

// NewHTTPFetcher creates a fetcher for template, which must contain {id}.
// A zero timeout means 60 seconds.
func NewHTTPFetcher(template string, timeout time.Duration) *HTTPFetcher {
	if template == "" {
		template = DefaultURLTemplate
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{
		template:   template,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the document URL for bookID.
func (f *HTTPFetcher) URL(bookID string) string {
	return strings.ReplaceAll(f.template, Placeholder, url.PathEscape(bookID))
}

func (f *HTTPFetcher) Fetch(ctx context.Context, bookID string) ([]byte, error) {
	u := f.URL(bookID)
	v, err, _ := f.group.Do(u, func() (any, error) {
		return f.get(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *HTTPFetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", utils.MaskSensitiveError(err))
	}
	req.Header.Set("Accept", "application/xml, text/xml, text/html;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ocr document: %w", utils.MaskSensitiveError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s",
			utils.MaskSensitiveData(u), resp.StatusCode, bytes.TrimSpace(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read ocr document: %w", err)
	}
	return data, nil
}

// FetcherFor returns an HTTPFetcher for http(s) templates and a FileFetcher
// for anything else, with an optional file:// prefix stripped.
func FetcherFor(template string, timeout time.Duration) Fetcher {
	lower := strings.ToLower(template)
	switch {
	case template == "", strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPFetcher(template, timeout)
	case strings.HasPrefix(lower, "file://"):
		return NewFileFetcher(template[len("file://"):])
	}
	return NewFileFetcher(template)
}

// FileFetcher reads OCR documents from disk. The path template uses the same
// {id} placeholder, e.g. "/data/{id}/{id}_djvu.xml".
type FileFetcher struct {
	template string
}

func NewFileFetcher(template string) *FileFetcher {
	return &FileFetcher{template: template}
}

func (f *FileFetcher) Fetch(ctx context.Context, bookID string) ([]byte, error) {
	if strings.ContainsAny(bookID, `/\`) || bookID == ".." {
		return nil, fmt.Errorf("invalid book identifier %q", bookID)
	}
	path := filepath.Clean(strings.ReplaceAll(f.template, Placeholder, bookID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ocr document: %w", err)
	}
	return data, ctx.Err()
}
