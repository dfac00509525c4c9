package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/blobstore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/transport"
)

const adminToken = "letmein"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	data, err := datastore.Open(ctx, "sqlite:file:"+filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { data.Close() })
	if err := data.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	signer := &blobstore.Signer{Secret: []byte("secret")}
	blobs, err := blobstore.NewFS(filepath.Join(dir, "blobs"), signer)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(transport.New(data, blobs), Options{AdminToken: adminToken, Blobs: blobs, Signer: signer})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	signer.BaseURL = ts.URL
	return ts
}

func wireJSON(t *testing.T) []byte {
	t.Helper()
	w := codec.WireRecord{
		Name:     "Slices",
		CourseID: "go101",
		Steps: []datastore.Step{
			{Code: "", Timestamp: 0},
			{Code: "s := []int{}", Timestamp: 0.5},
		},
		AudioBase64:   base64.StdEncoding.EncodeToString([]byte("RIFF-audio-bytes")),
		AudioMimeType: "audio/wav",
		DurationMs:    2000,
	}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func do(t *testing.T, method, url string, body []byte, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func create(t *testing.T, ts *httptest.Server) transport.SaveResult {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/api/walkthroughs", wireJSON(t), adminToken)
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("create status = %d: %s", resp.StatusCode, b)
	}
	var res transport.SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	for _, token := range []string{"", "wrong"} {
		resp := do(t, http.MethodPost, ts.URL+"/api/walkthroughs", wireJSON(t), token)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}
}

func TestCreateGetAndStreamAudio(t *testing.T) {
	ts := newTestServer(t)
	res := create(t, ts)

	resp := do(t, http.MethodGet, ts.URL+"/api/walkthroughs/"+res.ID, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var s session.Session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.FinalCode() != "s := []int{}" || s.Duration() != 2000 {
		t.Fatalf("unexpected session len=%d final=%q duration=%d", s.Len(), s.FinalCode(), s.Duration())
	}
	remote, ok := s.Audio().(session.Remote)
	if !ok || !strings.HasPrefix(remote.URL, ts.URL+"/blobs/") {
		t.Fatalf("audio = %#v", s.Audio())
	}

	audio := do(t, http.MethodGet, remote.URL, nil, "")
	got, _ := io.ReadAll(audio.Body)
	if audio.StatusCode != http.StatusOK || string(got) != "RIFF-audio-bytes" {
		t.Fatalf("audio status=%d body=%q", audio.StatusCode, got)
	}

	req, _ := http.NewRequest(http.MethodGet, remote.URL, nil)
	req.Header.Set("Range", "bytes=5-9")
	ranged, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer ranged.Body.Close()
	part, _ := io.ReadAll(ranged.Body)
	if ranged.StatusCode != http.StatusPartialContent || string(part) != "audio" {
		t.Fatalf("range status=%d body=%q", ranged.StatusCode, part)
	}
}

func TestUnsignedBlobRejected(t *testing.T) {
	ts := newTestServer(t)
	res := create(t, ts)
	resp := do(t, http.MethodGet, ts.URL+"/blobs/"+res.AudioKey, nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestListFilters(t *testing.T) {
	ts := newTestServer(t)
	create(t, ts)
	create(t, ts)

	var out struct {
		Walkthroughs []datastore.Record `json:"walkthroughs"`
	}
	resp := do(t, http.MethodGet, ts.URL+"/api/walkthroughs?course=go101&limit=1", nil, "")
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Walkthroughs) != 1 || out.Walkthroughs[0].StepCount != 2 {
		t.Fatalf("walkthroughs = %+v", out.Walkthroughs)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/walkthroughs?course=other", nil, "")
	out.Walkthroughs = nil
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Walkthroughs == nil || len(out.Walkthroughs) != 0 {
		t.Fatalf("want empty list, got %+v", out.Walkthroughs)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/walkthroughs?limit=abc", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", resp.StatusCode)
	}
}

func TestMalformedCreate(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodPost, ts.URL+"/api/walkthroughs", []byte(`{"name":""}`), adminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var env struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Error.Kind != "malformed_record" {
		t.Fatalf("kind = %q", env.Error.Kind)
	}
}

func TestDeleteThenNotFound(t *testing.T) {
	ts := newTestServer(t)
	res := create(t, ts)

	if resp := do(t, http.MethodDelete, ts.URL+"/api/walkthroughs/"+res.ID, nil, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated delete status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodDelete, ts.URL+"/api/walkthroughs/"+res.ID, nil, adminToken); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/walkthroughs/"+res.ID, nil, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
	// Deleting again is a no-op.
	if resp := do(t, http.MethodDelete, ts.URL+"/api/walkthroughs/"+res.ID, nil, adminToken); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
}
