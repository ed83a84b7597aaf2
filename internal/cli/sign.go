package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/spf13/cobra"
)

// signCmd represents the sign command
var signCmd = &cobra.Command{
	Use:   "sign <message-file>",
	Short: "Sign a message with an operator key",
	Long: `Sign a message with a passphrase-protected RSA key (RSA-PSS, SHA-512) and print it with
its selloDigital.

A datosMC payload is sanitized before signing. When the message has no epoch the value of
--epoch is used, or the current time in milliseconds.

The passphrase is taken from --passphrase or the CODI_KEY_PASSPHRASE environment variable.

Example:
  codi-cli sign --key ./keys/operator.key ./datosmc.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

const passphraseEnvVar = "CODI_KEY_PASSPHRASE"

var (
	signKeyPath    string
	signPassphrase string
	signEpoch      int64
)

func init() {
	signCmd.Flags().StringVar(&signKeyPath, "key", "", "Path to the encrypted private key PEM file (required)")
	signCmd.Flags().StringVar(&signPassphrase, "passphrase", "", "Private key passphrase (default: $"+passphraseEnvVar+")")
	signCmd.Flags().Int64Var(&signEpoch, "epoch", 0, "Epoch in milliseconds for messages without one (default: now)")
	signCmd.MarkFlagRequired("key")
}

func runSign(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	keyPEM, err := crypto.ReadFile(signKeyPath)
	if err != nil {
		return err
	}
	passphrase := signPassphrase
	if passphrase == "" {
		passphrase = os.Getenv(passphraseEnvVar)
	}

	signed, err := signMessage(data, keyPEM, passphrase, signEpoch)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(signed))
	return err
}

// signMessage signs the payload of data and returns the signed message JSON.
func signMessage(data, keyPEM []byte, passphrase string, epoch int64) ([]byte, error) {
	parsed, err := codi.ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	if parsed.Payload == nil {
		return nil, codi.NewInvalidEnvelopeError("message has no payload key")
	}

	payload := parsed.Payload
	if datos, ok := payload.(codi.DatosMC); ok {
		if payload, err = codi.SanitizeDatosMC(datos); err != nil {
			return nil, err
		}
	}

	var env *codi.Envelope
	switch {
	case payload.Key() == codi.KeyCadenaInformacion:
		env = &codi.Envelope{Payload: payload}
	case parsed.Epoch != nil:
		env = codi.NewEnvelope(payload, *parsed.Epoch)
	case epoch != 0:
		env = codi.NewEnvelope(payload, epoch)
	default:
		env = codi.NewEnvelope(payload, time.Now().UnixMilli())
	}

	signer := codi.NewSigner(keyPEM, passphrase, appLogger)
	if err := signer.SignEnvelope(env); err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
