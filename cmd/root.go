package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/config"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	cctrace "github.com/ZohaibManzoor00/zo-lms-sub001/internal/otel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/profile"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

var (
	verboseLevel   int
	shutdownTraces func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:           "codecast",
	Short:         "Record and replay code walkthroughs in sync with narration",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		// First-run: profile missing, run the setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Println()
			fmt.Println("  Welcome to codecast! Looks like this is your first time.")
			if err := runSetup(true); err != nil {
				return err
			}
		}

		// Load profile (optional, may not exist in non-interactive environments).
		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		shutdownTraces, err = cctrace.Init(cmd.Context(), cctrace.Config{
			ServiceName: "codecast",
			Stdout:      cfg.Otel.Stdout,
			Writer:      cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTraces == nil {
			return nil
		}
		err := shutdownTraces(context.Background())
		shutdownTraces = nil
		return err
	},
}

// setupLogging configures slog based on the verbose level.
func setupLogging(level int) {
	slogLevel := slog.LevelWarn
	switch {
	case level == 1:
		slogLevel = slog.LevelInfo
	case level >= 2:
		slogLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		msg := err.Error()
		if errors.Is(err, errmodel.ErrNotFound) {
			msg = "walkthrough not found"
		}
		fmt.Fprintln(os.Stderr, "Error:", msg)
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// GetProfile returns the active user profile.
func GetProfile() *profile.Profile {
	return activeProfile
}

// requireAuthor fails unless the active profile may create or delete walkthroughs.
func requireAuthor() error {
	if activeProfile == nil {
		return fmt.Errorf("no profile configured, run 'codecast setup' first")
	}
	if !activeProfile.IsPrivileged() {
		return fmt.Errorf("profile %q has the %s role; this command needs the author role",
			activeProfile.Name, activeProfile.Role)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseLevel, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
}
