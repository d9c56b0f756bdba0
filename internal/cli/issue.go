package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	issueEmail     string
	issueDirectory string
)

var issueCmd = &cobra.Command{
	Use:   "issue <domain>...",
	Short: "Obtain a Let's Encrypt certificate and install it",
	Long: `Obtain one certificate covering all given domains from an ACME CA, using
HTTP-01 validation files placed through Plesk, then install and assign it.

Examples:
  pleskcert issue example.com www.example.com --email admin@example.com
  pleskcert issue example.com --email admin@example.com \
    --directory https://acme-staging-v02.api.letsencrypt.org/directory`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIssue,
}

func init() {
	issueCmd.Flags().StringVarP(&issueEmail, "email", "e", "", "ACME account email (env LE_PLESK_EMAIL)")
	issueCmd.Flags().StringVar(&issueDirectory, "directory", "", "ACME directory URL (default Let's Encrypt production)")

	rootCmd.AddCommand(issueCmd)
}

func runIssue(cmd *cobra.Command, args []string) error {
	if err := validateDomains(args); err != nil {
		return err
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.configurator.Close()

	email := issueEmail
	if email == "" {
		email = s.cfg.Email
	}
	if email == "" {
		return fmt.Errorf("an ACME account email is required (--email or LE_PLESK_EMAIL)")
	}
	directory := issueDirectory
	if directory == "" {
		directory = s.cfg.DirectoryURL
	}

	issuer, err := deps.IssuerFactory.Create(s.configurator, email, directory)
	if err != nil {
		return err
	}

	progress("Requesting certificate for %d domain(s)...", len(args))
	cert, err := issuer.Obtain(args)
	if err != nil {
		return err
	}

	for _, domain := range args {
		if err := s.configurator.DeployCertData(domain, cert.Cert, cert.Key, cert.Chain); err != nil {
			return err
		}
	}
	return finishDeployment(s, args)
}
