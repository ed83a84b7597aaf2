// Package cli implements codi-cli, an offline tool for working with signed CoDi messages:
// print the canonical string that is signed, sign a payload with an operator key,
// verify a signature against a certificate and run the webhook pipeline on a notification.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/information-sharing-networks/codi-gateway/internal/logger"
	"github.com/information-sharing-networks/codi-gateway/internal/version"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "codi-cli",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "CoDi message signing and validation CLI",
	Long: `codi-cli canonicalizes, signs and verifies CoDi messages and runs the result notification
checks locally. It does not contact the network.

Files are read from the path given, or from stdin when the path is -`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appLogger = logger.InitLogger(logger.ParseLogLevel(logLevel), "dev")
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(canonicalizeCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(validateCmd)
}

// readInput reads path, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
