package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/pleskcert/internal/configurator"
	"github.com/ksyq12/pleskcert/internal/output"
)

var (
	deployCert  string
	deployKey   string
	deployChain string
)

var deployCmd = &cobra.Command{
	Use:   "deploy <domain>...",
	Short: "Install an existing certificate on Plesk sites",
	Long: `Install a PEM certificate into the Plesk certificate pool and assign it to
each given site. A www. name is covered by its bare domain.

If any site fails, every certificate installed by this run is removed again.

Examples:
  pleskcert deploy example.com www.example.com --cert cert.pem --key privkey.pem --chain chain.pem
  pleskcert deploy example.com --cert cert.pem --key privkey.pem --secure-panel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployCert, "cert", "", "Certificate PEM file (required)")
	deployCmd.Flags().StringVar(&deployKey, "key", "", "Private key PEM file (required)")
	deployCmd.Flags().StringVar(&deployChain, "chain", "", "Intermediate chain PEM file")
	_ = deployCmd.MarkFlagRequired("cert")
	_ = deployCmd.MarkFlagRequired("key")

	rootCmd.AddCommand(deployCmd)
}

// DeployResult is the JSON result of deploy and issue.
type DeployResult struct {
	Success     bool                      `json:"success"`
	Domains     []string                  `json:"domains"`
	Deployments []configurator.Deployment `json:"deployments"`
	Error       string                    `json:"error,omitempty"`
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if err := validateDomains(args); err != nil {
		return err
	}
	if deployCert == "" || deployKey == "" {
		return fmt.Errorf("--cert and --key are required")
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.configurator.Close()

	for _, domain := range args {
		if err := s.configurator.DeployCert(domain, deployCert, deployKey, deployChain, ""); err != nil {
			return err
		}
	}
	return finishDeployment(s, args)
}

// finishDeployment saves the pending deployments and reports them.
func finishDeployment(s *session, domains []string) error {
	progress("Installing certificate for %s...", strings.Join(domains, ", "))
	err := s.deploy()

	result := DeployResult{
		Success:     err == nil,
		Domains:     domains,
		Deployments: s.configurator.Deployments(),
	}
	if err != nil {
		result.Error = err.Error()
	}

	if jsonOutput {
		if jsonErr := output.JSON(result); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	output.Table(deploymentHeaders, deploymentRows(result.Deployments))
	if err != nil {
		return err
	}
	output.Success("Certificate deployed to %d site(s)", len(result.Deployments))
	return nil
}
