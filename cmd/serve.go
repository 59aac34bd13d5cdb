package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/textlayer/internal/config"
	"github.com/lehigh-university-libraries/textlayer/internal/server"
	"github.com/lehigh-university-libraries/textlayer/internal/session"
	"github.com/lehigh-university-libraries/textlayer/pkg/source"
)

var (
	servePort string
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve text layers over HTTP",
	Long: `Start an HTTP server that opens book sessions on demand and serves the
text layer of each page as SVG, or the page's OCR as hOCR. Sessions that are not
used for session_ttl are closed.`,
	RunE: runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to run the web server on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind the web server to (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveHost != "" {
		cfg.Host = serveHost
	}

	books, err := newBookStore(cfg)
	if err != nil {
		return err
	}
	go books.Start()
	defer books.Stop()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server.New(books, slog.Default()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting textlayer server",
		"addr", cfg.Addr(),
		"text_selection", cfg.TextSelection,
		"format", cfg.Format,
		"session_ttl", cfg.SessionTTL,
		"max_sessions", cfg.MaxSessions)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newBookStore(cfg config.Config) (*session.Store, error) {
	decode, err := cfg.Decoder()
	if err != nil {
		return nil, err
	}
	fetcher := source.FetcherFor(cfg.OCRURLTemplate, cfg.FetchTimeout)

	return session.NewStore(cfg.SessionTTL, cfg.MaxSessions, func(ctx context.Context, bookID string) *session.Book {
		return session.Open(ctx, bookID, session.Options{
			Fetcher:       fetcher,
			Decode:        decode,
			TextSelection: cfg.TextSelection,
			Debug:         cfg.Debug,
		})
	}), nil
}
