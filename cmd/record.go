package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/capture"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/transport"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/tui"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/watch"
)

var (
	recordMeta    session.Metadata
	recordWatch   string
	recordNoAudio bool
	recordNoSave  bool
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a walkthrough: type code while narrating",
	Long: `Record a walkthrough. Code is captured from the built-in editor, or from a
file edited in any external editor with --watch. Audio is captured with ffmpeg.

Keys: ctrl+p pause/resume, ctrl+s stop and save.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthor(); err != nil {
			return err
		}
		if !term.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("record needs an interactive terminal")
		}
		if recordMeta.Name == "" {
			return fmt.Errorf("--name is required")
		}

		meta := recordMeta
		if meta.Author == "" {
			meta.Author = activeProfile.Name
		}
		if meta.CourseID == "" {
			meta.CourseID = activeProfile.DefaultCourse
		}

		factory := capture.FFmpegFactory(capture.FFmpegConfig{
			Binary: cfg.Audio.Binary,
			Input:  cfg.Audio.Input,
			Format: cfg.Audio.Format,
		})
		if recordNoAudio {
			factory = capture.MemoryFactory(capture.NewMemoryDevice(nil, "audio/webm"))
		}

		initial := ""
		if recordWatch != "" {
			data, err := os.ReadFile(recordWatch)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			initial = string(data)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rec := capture.NewRecorder(factory)
		if err := rec.Start(ctx, initial); err != nil {
			return fmt.Errorf("starting recording: %w", err)
		}

		opts := tui.RecorderOptions{Title: meta.Name, Initial: initial}
		if recordWatch != "" {
			changes := make(chan string, 16)
			go func() {
				defer close(changes)
				err := watch.Watch(ctx, recordWatch, func(c string) {
					select {
					case changes <- c:
					case <-ctx.Done():
					}
				})
				if err != nil {
					slog.Error("file watch stopped", "path", recordWatch, "error", err)
				}
			}()
			opts.Changes = changes
			opts.Source = recordWatch
		}

		s, stopErr := tui.RunRecorder(rec, opts)
		cancel()
		if s == nil {
			return stopErr
		}
		s = s.WithMetadata(meta)

		drafts, err := session.NewDraftStore()
		if err != nil {
			return err
		}
		if err := drafts.Save(s); err != nil {
			return fmt.Errorf("saving draft: %w", err)
		}
		if stopErr != nil {
			cmd.Printf("Recording stopped with an audio error: %v\n", stopErr)
			cmd.Printf("Code was kept as draft %s.\n", s.ID())
			return stopErr
		}
		cmd.Printf("Captured %d snapshots over %s.\n", s.Len(), clock(s.Duration()))

		if recordNoSave {
			cmd.Printf("Draft %s kept locally. Upload it with 'codecast push'.\n", s.ID())
			return nil
		}
		return saveDraft(cmd, drafts, s)
	},
}

// saveDraft uploads a draft and removes it once stored. Failed saves keep
// the draft for a later push.
func saveDraft(cmd *cobra.Command, drafts session.DraftStore, s *session.Session) error {
	b, err := openBackend(cmd.Context())
	if err != nil {
		cmd.Printf("Draft %s kept locally. Retry with 'codecast push'.\n", s.ID())
		return err
	}
	defer b.Close()

	res, err := b.transport.Save(cmd.Context(), s)
	if err != nil {
		var orphan *transport.OrphanedBlobError
		if errors.As(err, &orphan) {
			if cerr := b.transport.CleanupOrphan(cmd.Context(), orphan.Key); cerr != nil {
				slog.Warn("orphaned audio blob left behind", "audio_key", orphan.Key, "error", cerr)
			}
		}
		cmd.Printf("Draft %s kept locally. Retry with 'codecast push'.\n", s.ID())
		return fmt.Errorf("saving walkthrough: %w", err)
	}
	if err := drafts.Delete(s.ID()); err != nil {
		slog.Warn("draft not removed after save", "id", s.ID(), "error", err)
	}
	cmd.Printf("Saved walkthrough %s (%q).\n", res.ID, s.Metadata().Name)
	return nil
}

func init() {
	f := recordCmd.Flags()
	f.StringVarP(&recordMeta.Name, "name", "n", "", "walkthrough name (required)")
	f.StringVarP(&recordMeta.Description, "description", "d", "", "short description")
	f.StringVar(&recordMeta.CourseID, "course", "", "course id (defaults to the profile's course)")
	f.StringVar(&recordMeta.ChapterID, "chapter", "", "chapter id")
	f.StringVar(&recordMeta.LessonID, "lesson", "", "lesson id")
	f.StringVarP(&recordWatch, "watch", "w", "", "capture code from this file as it is saved by an external editor")
	f.BoolVar(&recordNoAudio, "no-audio", false, "record code only, with silent audio")
	f.BoolVar(&recordNoSave, "no-save", false, "keep the recording as a local draft only")
	rootCmd.AddCommand(recordCmd)
}
