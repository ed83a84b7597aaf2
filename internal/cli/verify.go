package cli

import (
	"errors"
	"fmt"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/spf13/cobra"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <message-file>",
	Short: "Verify the selloDigital of a message",
	Long: `Verify the selloDigital of a message against the certificate of the party that signed it.

This command is useful for checking network responses and notifications by hand.

Example:
  codi-cli verify --certificate ./keys/network.crt ./notification.json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

// errInvalidSignature is returned so that the command exits non-zero
var errInvalidSignature = errors.New("signature is not valid")

var verifyCertificatePath string

func init() {
	verifyCmd.Flags().StringVar(&verifyCertificatePath, "certificate", "", "Path to the signer's certificate PEM file (required)")
	verifyCmd.MarkFlagRequired("certificate")
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	certPEM, err := crypto.ReadFile(verifyCertificatePath)
	if err != nil {
		return err
	}

	if err := verifyMessage(data, certPEM); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
	return err
}

func verifyMessage(data, certPEM []byte) error {
	env, err := codi.ParseEnvelope(data)
	if err != nil {
		return err
	}
	if !env.Has(codi.KeySelloDigital) {
		return codi.NewMissingFieldError(codi.KeySelloDigital)
	}

	verifier, err := codi.NewVerifier(certPEM)
	if err != nil {
		return err
	}
	ok, err := verifier.VerifyEnvelope(env)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidSignature
	}
	return nil
}
