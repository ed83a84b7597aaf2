package cli

import (
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <notification-file>",
	Short: "Run the webhook checks on a result notification",
	Long: `Run the checks the webhook applies to a result notification and print the result code
the network would receive.

Structural failures (a missing field, a certificate mismatch) are reported as errors, as the
webhook reports them with a 500 response.

Example:
  codi-cli validate --network-certificate ./keys/network.crt --operator-certificate ./keys/operator.crt ./notification.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	validateNetworkCertPath  string
	validateOperatorCertPath string
	validateInstitutionsPath string
	validateEnvironment      string
)

func init() {
	validateCmd.Flags().StringVar(&validateNetworkCertPath, "network-certificate", "", "Path to the network certificate PEM file (required)")
	validateCmd.Flags().StringVar(&validateOperatorCertPath, "operator-certificate", "", "Path to the operator certificate PEM file (required)")
	validateCmd.Flags().StringVar(&validateInstitutionsPath, "institutions", "", "Institution registry CSV, enables the institution and account type checks")
	validateCmd.Flags().StringVar(&validateEnvironment, "environment", "", "Institution registry environment (production, or non-production)")
	validateCmd.MarkFlagRequired("network-certificate")
	validateCmd.MarkFlagRequired("operator-certificate")
}

// ValidationResult is printed by the validate command.
type ValidationResult struct {
	Resultado codi.ResultCode `json:"resultado"`
	Check     string          `json:"check,omitempty"`
	Summary   *codi.Summary   `json:"summary,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	networkPEM, err := crypto.ReadFile(validateNetworkCertPath)
	if err != nil {
		return err
	}
	operatorCert, err := crypto.ReadCertificateFromPEMFile(validateOperatorCertPath)
	if err != nil {
		return fmt.Errorf("operator certificate: %w", err)
	}

	var institutions *environment.Institutions
	if validateInstitutionsPath != "" {
		registries, err := environment.LoadInstitutions(validateInstitutionsPath)
		if err != nil {
			return err
		}
		institutions = registries[environment.ParseName(validateEnvironment)]
		if institutions == nil {
			institutions = environment.NewInstitutions(nil)
		}
	}

	result, err := validateNotification(data, networkPEM, operatorCert, institutions)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// validateNotification builds a pipeline for the certificates and evaluates the notification.
// The institution checks run when institutions is not nil.
func validateNotification(data, networkPEM []byte, operatorCert *x509.Certificate, institutions *environment.Institutions) (ValidationResult, error) {
	verifier, err := codi.NewVerifier(networkPEM)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("network certificate: %w", err)
	}

	checks := codi.DefaultChecks(codi.Trust{
		OperatorCertificateSerial: crypto.CertificateSerial(operatorCert),
		NetworkCertificateSerial:  crypto.CertificateSerial(verifier.Certificate()),
	})
	if institutions != nil {
		checks = append(checks, codi.InstitutionChecks(institutions)...)
	}

	env, err := codi.ParseEnvelope(data)
	if err != nil {
		return ValidationResult{}, err
	}
	evaluation, err := codi.NewPipeline(verifier, checks, appLogger).Evaluate(env)
	if err != nil {
		return ValidationResult{}, err
	}

	result := ValidationResult{Resultado: evaluation.Code, Check: evaluation.Check}
	if evaluation.Notification != nil {
		summary := evaluation.Notification.Summary()
		result.Summary = &summary
	}
	return result, nil
}
