package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textlayer/internal/config"
	"github.com/lehigh-university-libraries/textlayer/internal/session"
	"github.com/lehigh-university-libraries/textlayer/pkg/hocr"
	"github.com/lehigh-university-libraries/textlayer/pkg/source"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the text layer of one book page",
	Long: `Render the selectable text layer for one page of a book.

The book's OCR document is fetched from the configured URL template (or a local
directory), the page is opened in a reader session with text selection enabled
and the resulting SVG text layer is written out. With --format hocr the OCR page
is exported as hOCR instead.`,
	RunE: runRender,
}

type renderOptions struct {
	BookID      string
	Page        int
	Dir         string
	URLTemplate string
	Input       string
	Format      string
	Debug       bool
}

var (
	renderOpts renderOptions
	renderOut  string
)

func init() {
	RootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderOpts.BookID, "book", "", "Book identifier (required)")
	renderCmd.Flags().IntVar(&renderOpts.Page, "page", 0, "Zero-based page index")
	renderCmd.Flags().StringVar(&renderOpts.Dir, "dir", "", "Read OCR documents from this directory instead of the URL template")
	renderCmd.Flags().StringVar(&renderOpts.URLTemplate, "url", "", "OCR document URL template with an {id} placeholder (overrides config)")
	renderCmd.Flags().StringVar(&renderOpts.Input, "input", "", "OCR document format: djvu or hocr (overrides config)")
	renderCmd.Flags().StringVar(&renderOpts.Format, "format", "svg", "Output format: svg or hocr")
	renderCmd.Flags().BoolVar(&renderOpts.Debug, "debug", false, "Render the text visibly for alignment checks")
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "Output file (prints to stdout if not specified)")

	err := renderCmd.MarkFlagRequired("book")
	if err != nil {
		slog.Error("Unable to mark book as required", "err", err)
		os.Exit(1)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if renderOut != "" {
		f, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := renderPage(cmd.Context(), out, cfg, renderOpts); err != nil {
		return err
	}
	if renderOut != "" {
		slog.Info("Wrote page", "book", renderOpts.BookID, "page", renderOpts.Page, "format", renderOpts.Format, "output", renderOut)
	}
	return nil
}

func renderPage(ctx context.Context, w io.Writer, cfg config.Config, opts renderOptions) error {
	if opts.Page < 0 {
		return fmt.Errorf("invalid page index %d", opts.Page)
	}
	if opts.Input != "" {
		cfg.Format = opts.Input
	}
	decode, err := cfg.Decoder()
	if err != nil {
		return err
	}

	var fetcher source.Fetcher
	switch {
	case opts.Dir != "":
		name := "{id}_djvu.xml"
		if cfg.Format == config.FormatHOCR {
			name = "{id}.hocr"
		}
		fetcher = source.NewFileFetcher(filepath.Join(opts.Dir, name))
	case opts.URLTemplate != "":
		fetcher = source.FetcherFor(opts.URLTemplate, cfg.FetchTimeout)
	default:
		fetcher = source.FetcherFor(cfg.OCRURLTemplate, cfg.FetchTimeout)
	}

	book := session.Open(ctx, opts.BookID, session.Options{
		Fetcher:       fetcher,
		Decode:        decode,
		TextSelection: true,
		Debug:         cfg.Debug || opts.Debug,
	})

	switch opts.Format {
	case "svg", "":
		layer, err := book.TextLayer(ctx, opts.Page)
		if err != nil {
			return err
		}
		if layer == nil {
			return fmt.Errorf("no OCR text for book %s page %d", opts.BookID, opts.Page)
		}
		if _, err := layer.WriteTo(w); err != nil {
			return fmt.Errorf("write text layer: %w", err)
		}
		_, err = io.WriteString(w, "\n")
		return err
	case "hocr":
		page, ok := book.Page(ctx, opts.Page)
		if !ok {
			return fmt.Errorf("no OCR text for book %s page %d", opts.BookID, opts.Page)
		}
		_, err := io.WriteString(w, hocr.EncodePage(*page, opts.Page+1))
		return err
	}
	return fmt.Errorf("unsupported output format: %s", opts.Format)
}
