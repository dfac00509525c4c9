package blobstore

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// DefaultMaxUpload bounds PUT bodies.
const DefaultMaxUpload = 256 << 20

// Handler serves an FS over HTTP. GET requires a valid signature; PUT and
// DELETE require Authorize to accept the request.
type Handler struct {
	Store     *FS
	Signer    *Signer
	Authorize func(*http.Request) bool
	MaxUpload int64
}

// Register mounts the blob routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /blobs/{key...}", h.get)
	mux.HandleFunc("HEAD /blobs/{key...}", h.get)
	mux.HandleFunc("PUT /blobs/{key...}", h.put)
	mux.HandleFunc("DELETE /blobs/{key...}", h.delete)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()
	if err := h.Signer.Verify(key, q.Get("expires"), q.Get("sig")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, ErrSignatureExpired) {
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}

	file, ct, modTime, err := h.Store.Open(key)
	if err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=300")
	// ServeContent handles Range requests, which players use to seek.
	http.ServeContent(w, r, key, modTime, file)
}

func (h *Handler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.Authorize != nil && h.Authorize(r) {
		return true
	}
	errmodel.WriteHTTP(w, r, errmodel.ErrUnauthorized)
	return false
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	limit := h.MaxUpload
	if limit <= 0 {
		limit = DefaultMaxUpload
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	key := r.PathValue("key")
	if err := h.Store.Put(r.Context(), key, data, r.Header.Get("Content-Type")); err != nil {
		slog.Error("blob put failed", "key", key, "error", err)
		errmodel.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	if err := h.Store.Delete(r.Context(), r.PathValue("key")); err != nil {
		errmodel.WriteHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
