package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"pgregory.net/rapid"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/bundle"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/profile"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// executeCommand runs the root command with args and returns combined output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	resetFlags(root)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so state does
// not leak between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points every codecast path at a temp dir and saves a profile.
func isolate(t testing.TB, role profile.Role) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("CODECAST_DATABASE_URL", "sqlite:file:"+filepath.Join(home, "test.db")+"?_pragma=busy_timeout(5000)")
	if role != "" {
		if err := profile.Save(&profile.Profile{Name: "Ada", Role: role}); err != nil {
			t.Fatalf("profile.Save: %v", err)
		}
	}
	return home
}

func writeBundle(t *testing.T, dir, name string) string {
	t.Helper()
	w := codec.WireRecord{
		Name:     name,
		CourseID: "go-101",
		Steps: []datastore.Step{
			{Code: "p", Timestamp: 0.5},
			{Code: "package main", Timestamp: 2.25},
		},
		AudioBase64:   base64.StdEncoding.EncodeToString([]byte("fake webm")),
		AudioMimeType: "audio/webm",
	}
	data, err := json.Marshal(bundle.New("", time.Time{}, w))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "bundle.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func listRecords(t *testing.T) []datastore.Record {
	t.Helper()
	out, err := executeCommand(rootCmd, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	var recs []datastore.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("decoding list output: %v\n%s", err, out)
	}
	return recs
}

func TestListEmpty(t *testing.T) {
	isolate(t, profile.RoleViewer)
	out, err := executeCommand(rootCmd, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "no walkthroughs") {
		t.Errorf("output = %q", out)
	}
}

func TestImportThenShow(t *testing.T) {
	home := isolate(t, profile.RoleAuthor)
	path := writeBundle(t, home, "Hello world")

	out, err := executeCommand(rootCmd, "import", path)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}

	recs := listRecords(t)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].StepCount != 2 || recs[0].CourseID != "go-101" {
		t.Errorf("record = %+v", recs[0])
	}

	out, err = executeCommand(rootCmd, "show", recs[0].ID, "--code")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Hello world", "Steps:     2", "Duration:  00:02", "expires=", "package main"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestShowUnknownID(t *testing.T) {
	isolate(t, profile.RoleViewer)
	_, err := executeCommand(rootCmd, "show", "nope")
	if err == nil {
		t.Fatal("expected an error for an unknown id")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	home := isolate(t, profile.RoleAuthor)
	if _, err := executeCommand(rootCmd, "import", writeBundle(t, home, "Round trip")); err != nil {
		t.Fatal(err)
	}
	id := listRecords(t)[0].ID

	for _, format := range []string{"markdown", "json"} {
		out := filepath.Join(home, "export", "rt."+format)
		if msg, err := executeCommand(rootCmd, "export", id, "-f", format, "-o", out); err != nil {
			t.Fatalf("export %s: %v\n%s", format, err, msg)
		}
		if msg, err := executeCommand(rootCmd, "import", out); err != nil {
			t.Fatalf("import %s: %v\n%s", format, err, msg)
		}
	}

	recs := listRecords(t)
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for _, r := range recs {
		if r.Name != "Round trip" || r.StepCount != 2 {
			t.Errorf("record = %+v", r)
		}
	}
}

func TestExportToStdout(t *testing.T) {
	home := isolate(t, profile.RoleAuthor)
	if _, err := executeCommand(rootCmd, "import", writeBundle(t, home, "Stdout")); err != nil {
		t.Fatal(err)
	}
	id := listRecords(t)[0].ID
	out, err := executeCommand(rootCmd, "export", id, "-o", "-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# Stdout") || !strings.Contains(out, "## Steps") {
		t.Errorf("markdown export = %q", out)
	}
}

func TestDeleteRequiresAuthor(t *testing.T) {
	isolate(t, profile.RoleViewer)
	_, err := executeCommand(rootCmd, "delete", "anything")
	if err == nil || !strings.Contains(err.Error(), "author role") {
		t.Fatalf("err = %v, want author role error", err)
	}
}

func TestDeleteRemovesWalkthrough(t *testing.T) {
	home := isolate(t, profile.RoleAuthor)
	if _, err := executeCommand(rootCmd, "import", writeBundle(t, home, "Doomed")); err != nil {
		t.Fatal(err)
	}
	id := listRecords(t)[0].ID
	if _, err := executeCommand(rootCmd, "delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if recs := listRecords(t); len(recs) != 0 {
		t.Errorf("got %d records after delete", len(recs))
	}
	// Deleting again is not an error.
	if _, err := executeCommand(rootCmd, "delete", id); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func draft(t testing.TB, id string) *session.Session {
	b := session.NewBuilder(id, "")
	b.SetMetadata(session.Metadata{Name: "draft " + id})
	b.AppendCode(session.CodeEvent{Timestamp: 100, Type: session.EventKeypress, Data: "x"})
	s, err := b.Seal(1500, session.InMemory{Data: []byte("audio"), ContentType: "audio/webm"})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return s
}

func TestPushUploadsDrafts(t *testing.T) {
	isolate(t, profile.RoleAuthor)
	drafts, err := session.NewDraftStore()
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"d1", "d2"} {
		if err := drafts.Save(draft(t, id)); err != nil {
			t.Fatal(err)
		}
	}

	out, err := executeCommand(rootCmd, "push")
	if err != nil {
		t.Fatalf("push: %v\n%s", err, out)
	}
	if got := strings.Count(out, "Saved walkthrough"); got != 2 {
		t.Errorf("saved %d, want 2:\n%s", got, out)
	}
	left, err := drafts.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d drafts left after push", len(left))
	}
	if recs := listRecords(t); len(recs) != 2 {
		t.Errorf("got %d records, want 2", len(recs))
	}

	out, err = executeCommand(rootCmd, "push")
	if err != nil || !strings.Contains(out, "no drafts") {
		t.Errorf("second push: %v %q", err, out)
	}
}

func TestStatusDraftCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "drafts")
		isolate(t, profile.RoleAuthor)

		drafts, err := session.NewDraftStore()
		if err != nil {
			rt.Fatalf("NewDraftStore: %v", err)
		}
		for i := 0; i < n; i++ {
			if err := drafts.Save(draft(t, fmt.Sprintf("draft-%d", i))); err != nil {
				rt.Fatalf("Save: %v", err)
			}
		}

		out, err := executeCommand(rootCmd, "status")
		if err != nil {
			rt.Fatalf("status: %v", err)
		}
		if want := fmt.Sprintf("Drafts: %d", n); !strings.Contains(out, want) {
			rt.Fatalf("status output missing %q:\n%s", want, out)
		}
		if !strings.Contains(out, "Profile: Ada (author)") || !strings.Contains(out, "Database: sqlite") {
			rt.Fatalf("status output = %q", out)
		}
	})
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	isolate(t, profile.RoleViewer)
	t.Setenv("CODECAST_BLOB_SECRET", "hunter2")
	t.Setenv("CODECAST_SERVER_ADMIN_TOKEN", "admin-secret")

	out, err := executeCommand(rootCmd, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "hunter2") || strings.Contains(out, "admin-secret") {
		t.Errorf("secrets leaked:\n%s", out)
	}
	if !strings.Contains(out, "********") || !strings.Contains(out, "database_url:") {
		t.Errorf("config show = %q", out)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Hello World":      "hello-world",
		"  --Go 1.25!-- ":  "go-1-25",
		"":                 "walkthrough",
		"???":              "walkthrough",
		"Intro: channels ": "intro-channels",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
