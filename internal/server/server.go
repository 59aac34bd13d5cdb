package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lehigh-university-libraries/textlayer/internal/session"
	"github.com/lehigh-university-libraries/textlayer/pkg/hocr"
)

// Server serves text layers and hOCR exports for open book sessions.
type Server struct {
	router chi.Router
	books  *session.Store
	log    *slog.Logger
}

func New(books *session.Store, log *slog.Logger) *Server {
	s := &Server{
		books: books,
		log:   log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/books/{bookID}/pages/{index}", func(r chi.Router) {
		r.Get("/textlayer.svg", s.handleTextLayer)
		r.Get("/hocr", s.handleHOCR)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleTextLayer(w http.ResponseWriter, r *http.Request) {
	bookID, index, err := pageParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book := s.books.Get(r.Context(), bookID)
	layer, err := book.TextLayer(r.Context(), index)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if layer == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := layer.WriteTo(w); err != nil {
		s.log.Warn("Unable to write text layer", "book", bookID, "page", index, "err", err)
	}
}

func (s *Server) handleHOCR(w http.ResponseWriter, r *http.Request) {
	bookID, index, err := pageParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book := s.books.Get(r.Context(), bookID)
	page, ok := book.Page(r.Context(), index)
	if !ok {
		http.Error(w, "no OCR text for page", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(hocr.EncodePage(*page, index+1)))
}

func pageParams(r *http.Request) (string, int, error) {
	bookID := chi.URLParam(r, "bookID")
	if bookID == "" {
		return "", 0, errors.New("missing book id")
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("invalid page index %q", chi.URLParam(r, "index"))
	}
	return bookID, index, nil
}
