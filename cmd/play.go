package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/bundle"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/playback"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/tui"
)

var (
	playStream bool
	playSilent bool
)

var playCmd = &cobra.Command{
	Use:   "play <id|bundle-file>",
	Short: "Replay a walkthrough with its narration",
	Long: `Replay a stored walkthrough by id, or an exported bundle file.

Keys: space play/pause, ←/→ seek 5s, home/end, s stop, q quit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadForPlayback(cmd, args[0])
		if err != nil {
			return err
		}

		eng, err := playback.Open(s, elementFactory(s))
		if err != nil {
			return fmt.Errorf("opening audio: %w", err)
		}
		defer eng.Close()

		return tui.RunPlayer(eng, s.Metadata().Name)
	},
}

// loadForPlayback resolves arg as a bundle file when one exists at that
// path, and as a stored walkthrough id otherwise.
func loadForPlayback(cmd *cobra.Command, arg string) (*session.Session, error) {
	opts := codec.Options{DurationFloor: cfg.Playback.DurationFloor}
	if data, err := os.ReadFile(arg); err == nil {
		b, err := bundle.ParserFor(data).Parse(data)
		if err != nil {
			return nil, err
		}
		return codec.DecodeWire(b.ID, b.Walkthrough, opts)
	}

	be, err := openBackend(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer be.Close()
	if playStream {
		return be.transport.Load(cmd.Context(), arg)
	}
	return be.transport.FetchAudio(cmd.Context(), arg)
}

// elementFactory plays through ffplay or mpv when available, and falls back
// to a silent clock.
func elementFactory(s *session.Session) playback.ElementFactory {
	length := time.Duration(s.Duration()) * time.Millisecond
	silent := func(string) (playback.Element, error) { return playback.NewClockElement(length), nil }
	if playSilent {
		return silent
	}
	player := cfg.Playback.Player
	if player == "" {
		p, err := playback.FindPlayer()
		if err != nil {
			slog.Warn("no audio player found, playing silently", "error", err)
			return silent
		}
		player = p
	}
	return playback.NewProcessElementFactory(player, length)
}

func init() {
	playCmd.Flags().BoolVar(&playStream, "stream", false, "stream audio from its signed URL instead of downloading it")
	playCmd.Flags().BoolVar(&playSilent, "silent", false, "replay code without audio")
	rootCmd.AddCommand(playCmd)
}
