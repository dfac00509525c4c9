package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show profile, storage and pending drafts, or one walkthrough's status",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
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
			return nil
		}

		if p := GetProfile(); p != nil {
			cmd.Printf("Profile: %s (%s)\n", p.Name, p.Role)
		} else {
			cmd.Println("Profile: none (run 'codecast setup')")
		}
		cmd.Printf("Database: %s\n", storageKind(cfg.DatabaseURL))
		if cfg.Blob.Endpoint != "" {
			cmd.Printf("Blobs: %s\n", cfg.Blob.Endpoint)
		} else {
			cmd.Printf("Blobs: %s\n", cfg.Blob.Dir)
		}

		drafts, err := session.NewDraftStore()
		if err != nil {
			return err
		}
		pending, err := drafts.List()
		if err != nil {
			return err
		}
		cmd.Printf("Drafts: %d\n", len(pending))
		for _, s := range pending {
			cmd.Printf("  %s  %s  %d steps\n", s.ID(), s.Metadata().Name, s.Len())
		}
		return nil
	},
}

// storageKind names the database engine without printing credentials.
func storageKind(url string) string {
	for _, p := range []string{"sqlite", "postgres", "duckdb"} {
		if len(url) >= len(p) && url[:len(p)] == p {
			return p
		}
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
