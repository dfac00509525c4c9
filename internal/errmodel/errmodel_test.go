package errmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrappedErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("saving: %w", E(KindNotFound, "datastore.get", errors.New("no rows")))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match for %v", err)
	}
	if errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("did not expect ErrStorageUnavailable match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
}

func TestEKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := E(KindStorageUnavailable, "blob.put", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if got := err.Error(); got != "blob.put: disk full" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrMalformedRecord, http.StatusBadRequest},
		{ErrInvalidState, http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrStorageUnavailable, http.StatusServiceUnavailable},
		{ErrDeviceUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestWriteHTTPEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/walkthroughs/x", nil)
	WriteHTTP(rec, req, E(KindNotFound, "transport.load", errors.New("walkthrough x")))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error Error `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Kind != KindNotFound {
		t.Fatalf("kind = %q", body.Error.Kind)
	}
}
