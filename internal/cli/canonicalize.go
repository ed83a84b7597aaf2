package cli

import (
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/spf13/cobra"
)

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <message-file>",
	Short: "Print the canonical string of a message",
	Long: `Print the exact text that is signed for a message.

The payload is selected by key precedence (datosMC, cadenaMC, folioCodi, peticionConsulta,
resultado, cadenaInformacion). For every payload except cadenaInformacion the epoch is appended.

Example:
  codi-cli canonicalize ./notification.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCanonicalize,
}

func runCanonicalize(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	env, err := codi.ParseEnvelope(data)
	if err != nil {
		return err
	}
	if len(env.Shadowed) > 0 {
		appLogger.Warn("message carries more than one payload key",
			slog.String("payload_key", env.Payload.Key()),
			slog.Any("ignored", env.Shadowed),
		)
	}

	canonical, err := codi.Canonicalize(env)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(canonical))
	return err
}
