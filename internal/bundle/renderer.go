package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
)

const (
	versionSentinel = "<!-- codecast-bundle-version: 1 -->"
	dataPrefix      = "<!-- codecast-data: "
	commentSuffix   = " -->"
)

// BundleRenderer serializes a Bundle to bytes.
type BundleRenderer interface {
	Render(b *Bundle) ([]byte, error)
}

// RendererFor returns the renderer for a format name ("json" or "markdown").
func RendererFor(format string) (BundleRenderer, error) {
	switch format {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md", "":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown bundle format %q (want json or markdown)", format)
	}
}

// JSONRenderer renders a Bundle as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(b *Bundle) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// frontMatter is the YAML header of a Markdown bundle.
type frontMatter struct {
	Name     string `yaml:"name"`
	Author   string `yaml:"author,omitempty"`
	Course   string `yaml:"course,omitempty"`
	Chapter  string `yaml:"chapter,omitempty"`
	Lesson   string `yaml:"lesson,omitempty"`
	Steps    int    `yaml:"steps"`
	Duration string `yaml:"duration"`
	Audio    string `yaml:"audio"`
}

// MarkdownRenderer renders a Bundle as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(b *Bundle) ([]byte, error) {
	jsonBytes, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	w := b.Walkthrough
	fm, err := yaml.Marshal(frontMatter{
		Name:     w.Name,
		Author:   w.Author,
		Course:   w.CourseID,
		Chapter:  w.ChapterID,
		Lesson:   w.LessonID,
		Steps:    len(w.Steps),
		Duration: clock(durationSeconds(w)),
		Audio:    w.AudioMimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")

	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, commentSuffix)

	fmt.Fprintf(&sb, "# %s\n\n", w.Name)
	if w.Description != "" {
		sb.WriteString(w.Description + "\n\n")
	}

	// ## Steps
	sb.WriteString("## Steps\n\n")
	if len(w.Steps) == 0 {
		sb.WriteString("_No code steps recorded._\n")
	} else {
		sb.WriteString("| # | Time | Lines | Change |\n")
		sb.WriteString("|---|------|-------|--------|\n")
		prev := 0
		for i, s := range w.Steps {
			n := len([]rune(s.Code))
			fmt.Fprintf(&sb, "| %d | %s | %d | %+d |\n",
				i+1, clock(s.Timestamp), lineCount(s.Code), n-prev)
			prev = n
		}
	}
	sb.WriteString("\n")

	// ## Final Code
	sb.WriteString("## Final Code\n\n")
	if len(w.Steps) == 0 {
		sb.WriteString("_Empty._\n")
	} else {
		final := w.Steps[len(w.Steps)-1].Code
		fence := fenceFor(final)
		sb.WriteString(fence + "\n")
		sb.WriteString(final)
		if !strings.HasSuffix(final, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(fence + "\n")
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// durationSeconds is the playable length: the recorded duration or the
// last step, whichever is later.
func durationSeconds(w codec.WireRecord) float64 {
	d := codec.MillisToSeconds(w.DurationMs)
	for _, s := range w.Steps {
		if s.Timestamp > d {
			d = s.Timestamp
		}
	}
	return d
}

// clock formats seconds as mm:ss.
func clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func lineCount(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(code, "\n"), "\n") + 1
}

// fenceFor returns a backtick fence longer than any backtick run in code.
func fenceFor(code string) string {
	longest, run := 0, 0
	for _, r := range code {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}
