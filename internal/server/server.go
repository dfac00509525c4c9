// Package server exposes walkthroughs and their audio blobs over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/blobstore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/transport"
)

// Walkthroughs is the subset of the transport the API serves.
type Walkthroughs interface {
	Load(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context, f datastore.Filter) ([]datastore.Record, error)
	Import(ctx context.Context, w codec.WireRecord) (transport.SaveResult, error)
	Delete(ctx context.Context, id string) error
}

// Options configures a Server.
type Options struct {
	// AdminToken authorizes writes. Empty rejects every write.
	AdminToken string
	// Blobs, when set, mounts the blob routes on the same mux.
	Blobs     *blobstore.FS
	Signer    *blobstore.Signer
	MaxUpload int64
}

// Server represents the codecast HTTP API.
type Server struct {
	walkthroughs Walkthroughs
	opts         Options
}

// New creates a server over the given walkthrough transport.
func New(w Walkthroughs, opts Options) *Server {
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = blobstore.DefaultMaxUpload
	}
	return &Server{walkthroughs: w, opts: opts}
}

// Handler returns the instrumented route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/walkthroughs", s.handleList)
	mux.HandleFunc("POST /api/walkthroughs", s.handleCreate)
	mux.HandleFunc("GET /api/walkthroughs/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/walkthroughs/{id}", s.handleDelete)

	if s.opts.Blobs != nil {
		h := &blobstore.Handler{
			Store:     s.opts.Blobs,
			Signer:    s.opts.Signer,
			Authorize: s.authorized,
			MaxUpload: s.opts.MaxUpload,
		}
		h.Register(mux)
	}
	return otelhttp.NewHandler(mux, "codecast",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.Pattern
		}))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("starting codecast server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down codecast server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.AdminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AdminToken)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := datastore.Filter{
		CourseID:  q.Get("course"),
		ChapterID: q.Get("chapter"),
		LessonID:  q.Get("lesson"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errmodel.WriteHTTP(w, r, errmodel.E(errmodel.KindMalformedRecord, "server.list",
				fmt.Errorf("invalid limit %q", v)))
			return
		}
		f.Limit = n
	}
	recs, err := s.walkthroughs.List(r.Context(), f)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	if recs == nil {
		recs = []datastore.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"walkthroughs": recs})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		errmodel.WriteHTTP(w, r, errmodel.ErrUnauthorized)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUpload))
	if err != nil {
		errmodel.WriteHTTP(w, r, errmodel.E(errmodel.KindMalformedRecord, "server.create", err))
		return
	}
	wire, err := codec.ParseWireRecord(body)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	res, err := s.walkthroughs.Import(r.Context(), wire)
	if err != nil {
		var orphan *transport.OrphanedBlobError
		if errors.As(err, &orphan) {
			slog.Error("orphaned audio blob", "audio_key", orphan.Key, "error", orphan.Err)
		}
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.walkthroughs.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		errmodel.WriteHTTP(w, r, errmodel.ErrUnauthorized)
		return
	}
	if err := s.walkthroughs.Delete(r.Context(), r.PathValue("id")); err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
