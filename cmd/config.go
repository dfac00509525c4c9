package cmd

import (
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as YAML (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := cfg
		redact(&shown.Blob.Secret)
		redact(&shown.Blob.Token)
		redact(&shown.Server.AdminToken)

		out, err := yaml.Marshal(shown)
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	},
}

func redact(s *string) {
	if *s != "" {
		*s = "********"
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
