package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

var showCode bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a walkthrough's details and signed audio URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		s, err := b.transport.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printWalkthrough(cmd, s)
		if showCode {
			cmd.Println()
			cmd.Println(s.FinalCode())
		}
		return nil
	},
}

func printWalkthrough(cmd *cobra.Command, s *session.Session) {
	m := s.Metadata()
	cmd.Printf("ID:        %s\n", s.ID())
	cmd.Printf("Name:      %s\n", m.Name)
	if m.Description != "" {
		cmd.Printf("About:     %s\n", m.Description)
	}
	if m.Author != "" {
		cmd.Printf("Author:    %s\n", m.Author)
	}
	if m.CourseID != "" || m.ChapterID != "" || m.LessonID != "" {
		cmd.Printf("Placement: course=%s chapter=%s lesson=%s\n", m.CourseID, m.ChapterID, m.LessonID)
	}
	if !m.CreatedAt.IsZero() {
		cmd.Printf("Created:   %s\n", m.CreatedAt.Local().Format(time.RFC3339))
	}
	cmd.Printf("Steps:     %d\n", s.Len())
	cmd.Printf("Duration:  %s\n", clock(s.Duration()))
	if remote, ok := s.Audio().(session.Remote); ok {
		cmd.Printf("Audio:     %s\n", remote.URL)
		if exp, ok := urlExpiry(remote.URL); ok {
			cmd.Printf("Expires:   %s (in %s)\n", exp.Local().Format(time.RFC3339),
				time.Until(exp).Round(time.Second))
		}
	}
}

func init() {
	showCmd.Flags().BoolVar(&showCode, "code", false, "also print the final code")
	rootCmd.AddCommand(showCmd)
}
