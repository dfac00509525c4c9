package cmd

import (
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a walkthrough and its audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuthor(); err != nil {
			return err
		}
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.transport.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted walkthrough %s.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
