// Package errmodel defines the error kinds shared by capture, transport and
// the HTTP surface, and maps them onto HTTP responses.
package errmodel

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// Kind classifies an error for callers that need to branch on it.
type Kind string

const (
	KindDeviceUnavailable  Kind = "device_unavailable"
	KindInvalidState       Kind = "invalid_state"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindNotFound           Kind = "not_found"
	KindMalformedRecord    Kind = "malformed_record"
	KindUnauthorized       Kind = "unauthorized"
	KindInternal           Kind = "internal"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrDeviceUnavailable  = &Error{Kind: KindDeviceUnavailable, Message: "audio device unavailable"}
	ErrInvalidState       = &Error{Kind: KindInvalidState, Message: "operation not valid in current state"}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable, Message: "storage unavailable"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrMalformedRecord    = &Error{Kind: KindMalformedRecord, Message: "malformed record"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

// Error is the error value returned across package boundaries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Op      string `json:"op,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same kind, so wrapped errors compare
// equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// E wraps err with a kind and the operation that failed. If err already
// carries a kind it is kept and only the op is refreshed.
func E(kind Kind, op string, err error) *Error {
	var existing *Error
	if err != nil && errors.As(err, &existing) && existing.Kind == kind {
		return &Error{Kind: kind, Op: op, Message: existing.Error(), Err: err}
	}
	msg := ""
	if err != nil {
		msg = truncate(err.Error(), 512)
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// KindOf reports the kind carried by err, or KindInternal if it has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error onto an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindMalformedRecord:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindStorageUnavailable, KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTP writes an error envelope, including the trace id when the request
// carries one.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	payload := &Error{Kind: KindOf(err), Message: "unknown error"}
	if err != nil {
		payload.Message = truncate(err.Error(), 512)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(err))

	traceID := ""
	if r != nil {
		if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":    payload,
		"trace_id": traceID,
	})
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
