package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload recordings kept as local drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthor(); err != nil {
			return err
		}
		drafts, err := session.NewDraftStore()
		if err != nil {
			return err
		}
		pending, err := drafts.List()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("no drafts to push")
			return nil
		}

		var errs []error
		for _, s := range pending {
			if err := saveDraft(cmd, drafts, s); err != nil {
				errs = append(errs, fmt.Errorf("draft %s: %w", s.ID(), err))
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
