// Package transport saves and loads walkthroughs through the data store and
// the blob store.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/blobstore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// OrphanedBlobError reports that audio was uploaded but the record that
// references it was not created. Key can be passed to CleanupOrphan.
type OrphanedBlobError struct {
	Key string
	Err error
}

func (e *OrphanedBlobError) Error() string {
	return fmt.Sprintf("audio uploaded as %s but walkthrough was not created: %v", e.Key, e.Err)
}

func (e *OrphanedBlobError) Unwrap() error { return e.Err }

// SaveResult identifies a saved walkthrough.
type SaveResult struct {
	ID        string    `json:"id"`
	AudioKey  string    `json:"audioKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transport moves sessions between memory and the stores. It never retries.
type Transport struct {
	data   datastore.Store
	blobs  blobstore.Store
	cache  *Cache
	opts   codec.Options
	tracer trace.Tracer
	newKey func(id, mimeType string) string
}

// Option configures a Transport.
type Option func(*Transport)

// WithCache enables load caching.
func WithCache(c *Cache) Option { return func(t *Transport) { t.cache = c } }

// WithDecodeOptions sets codec options for Load.
func WithDecodeOptions(o codec.Options) Option { return func(t *Transport) { t.opts = o } }

// New returns a Transport over the given stores.
func New(data datastore.Store, blobs blobstore.Store, opts ...Option) *Transport {
	t := &Transport{
		data:   data,
		blobs:  blobs,
		tracer: otel.Tracer("codecast/transport"),
		newKey: blobKey,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// blobKey names the audio blob of one save. Every call returns a new key, so
// saving the same session twice never makes two records share a blob.
func blobKey(id, mimeType string) string {
	name := uuid.NewString() + "." + session.Extension(mimeType)
	if id == "" {
		return "walkthroughs/" + name
	}
	return "walkthroughs/" + id + "/" + name
}

func storageErr(op string, err error) error {
	if errors.Is(err, errmodel.ErrNotFound) || errors.Is(err, errmodel.ErrMalformedRecord) {
		return err
	}
	return errmodel.E(errmodel.KindStorageUnavailable, op, err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Save uploads the audio, then creates the record. A failure after the upload
// returns an *OrphanedBlobError.
func (t *Transport) Save(ctx context.Context, s *session.Session) (SaveResult, error) {
	ctx, span := t.tracer.Start(ctx, "transport.Save",
		trace.WithAttributes(attribute.Int("codecast.steps", s.Len())))
	defer span.End()

	wire, err := codec.Encode(s)
	if err != nil {
		return SaveResult{}, fail(span, err)
	}
	audio, err := codec.DecodeAudio(wire)
	if err != nil {
		return SaveResult{}, fail(span, err)
	}

	key := t.newKey(s.ID(), wire.AudioMimeType)
	span.SetAttributes(attribute.String("codecast.audio_key", key), attribute.Int("codecast.audio_bytes", len(audio)))
	if err := t.blobs.Put(ctx, key, audio, wire.AudioMimeType); err != nil {
		return SaveResult{}, fail(span, storageErr("transport.save", err))
	}

	created, err := t.data.Create(ctx, wire.CreateInput(key))
	if err != nil {
		slog.Error("walkthrough create failed after upload", "audio_key", key, "error", err)
		return SaveResult{}, fail(span, &OrphanedBlobError{Key: key, Err: storageErr("transport.save", err)})
	}
	span.SetAttributes(attribute.String("codecast.id", created.ID))
	slog.Info("walkthrough saved", "id", created.ID, "audio_key", key, "steps", len(wire.Steps))
	return SaveResult{ID: created.ID, AudioKey: key, CreatedAt: created.CreatedAt}, nil
}

// CleanupOrphan deletes an orphaned audio blob.
func (t *Transport) CleanupOrphan(ctx context.Context, key string) error {
	if err := t.blobs.Delete(ctx, key); err != nil {
		return storageErr("transport.cleanup", err)
	}
	return nil
}

// Load fetches a walkthrough and resolves its audio to a URL.
func (t *Transport) Load(ctx context.Context, id string) (*session.Session, error) {
	ctx, span := t.tracer.Start(ctx, "transport.Load", trace.WithAttributes(attribute.String("codecast.id", id)))
	defer span.End()

	if s, ok := t.cache.Get(id); ok {
		span.SetAttributes(attribute.Bool("codecast.cache_hit", true))
		return s, nil
	}

	rec, err := t.data.Get(ctx, id)
	if err != nil {
		return nil, fail(span, storageErr("transport.load", err))
	}
	url := ""
	if rec.AudioKey != "" {
		if url, err = t.blobs.Resolve(ctx, rec.AudioKey); err != nil {
			return nil, fail(span, storageErr("transport.load", err))
		}
	}
	s, err := codec.Decode(rec, url, t.opts)
	if err != nil {
		return nil, fail(span, err)
	}
	t.cache.Put(id, s)
	return s, nil
}

// FetchAudio downloads the audio of a stored walkthrough and returns the
// session with in-memory audio.
func (t *Transport) FetchAudio(ctx context.Context, id string) (*session.Session, error) {
	rec, err := t.data.Get(ctx, id)
	if err != nil {
		return nil, storageErr("transport.fetch_audio", err)
	}
	data, ct, err := t.blobs.Get(ctx, rec.AudioKey)
	if err != nil {
		return nil, storageErr("transport.fetch_audio", err)
	}
	if rec.AudioMimeType != "" {
		ct = rec.AudioMimeType
	}
	s, err := codec.Decode(rec, "", t.opts)
	if err != nil {
		return nil, err
	}
	return s.WithAudio(session.InMemory{Data: data, ContentType: ct}), nil
}

// Export returns a self-contained wire record for a stored walkthrough.
func (t *Transport) Export(ctx context.Context, id string) (codec.WireRecord, datastore.Record, error) {
	rec, err := t.data.Get(ctx, id)
	if err != nil {
		return codec.WireRecord{}, datastore.Record{}, storageErr("transport.export", err)
	}
	data, _, err := t.blobs.Get(ctx, rec.AudioKey)
	if err != nil {
		return codec.WireRecord{}, datastore.Record{}, storageErr("transport.export", err)
	}
	return codec.FromRecord(rec, data), rec, nil
}

// Import stores a wire record as a new walkthrough.
func (t *Transport) Import(ctx context.Context, w codec.WireRecord) (SaveResult, error) {
	s, err := codec.DecodeWire("", w, t.opts)
	if err != nil {
		return SaveResult{}, err
	}
	return t.Save(ctx, s.WithID(uuid.NewString()))
}

// List returns walkthrough summaries, newest first.
func (t *Transport) List(ctx context.Context, f datastore.Filter) ([]datastore.Record, error) {
	ctx, span := t.tracer.Start(ctx, "transport.List")
	defer span.End()
	recs, err := t.data.List(ctx, f)
	if err != nil {
		return nil, fail(span, storageErr("transport.list", err))
	}
	return recs, nil
}

// Delete removes the record, then its audio. Missing ids succeed.
func (t *Transport) Delete(ctx context.Context, id string) error {
	ctx, span := t.tracer.Start(ctx, "transport.Delete", trace.WithAttributes(attribute.String("codecast.id", id)))
	defer span.End()
	t.cache.Invalidate(id)

	rec, err := t.data.Get(ctx, id)
	if errors.Is(err, errmodel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fail(span, storageErr("transport.delete", err))
	}
	if err := t.data.Delete(ctx, id); err != nil {
		return fail(span, storageErr("transport.delete", err))
	}
	if rec.AudioKey != "" {
		if err := t.blobs.Delete(ctx, rec.AudioKey); err != nil {
			slog.Warn("audio blob not deleted", "id", id, "audio_key", rec.AudioKey, "error", err)
		}
	}
	return nil
}
