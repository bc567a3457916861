// Package cli wires the three faces of quizwire: the reference session
// service (serve), the player client (play), and the admin controller
// (control).
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	statePath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "quizwire",
		Short:         "Live quiz sessions: play them, control them, or serve them",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("QUIZWIRE_SERVER", "http://localhost:5005"), "session service base URL")
	cmd.PersistentFlags().StringVar(&statePath, "state",
		envOr("QUIZWIRE_STATE", defaultStatePath()), "path to the local state file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newControlCmd())
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quizwire.json"
	}
	return filepath.Join(home, ".quizwire.json")
}
