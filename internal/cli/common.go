package cli

import (
	"fmt"
	"strings"

	"github.com/ksyq12/pleskcert/internal/config"
	"github.com/ksyq12/pleskcert/internal/configurator"
	"github.com/ksyq12/pleskcert/internal/input"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/output"
	"github.com/ksyq12/pleskcert/internal/panel"
)

// loadSettings loads the config and applies the command-line flags on top.
func loadSettings() (*config.Config, error) {
	cfg, err := deps.ConfigLoader.Load(configPath)
	if err != nil {
		return nil, err
	}

	if secretKeyStdin {
		secret, err := input.ReadSecret(deps.StdinReader)
		if err != nil {
			return nil, err
		}
		cfg.SecretKey = secret
	}
	if secretKey != "" {
		cfg.SecretKey = secretKey
	}
	if securePanel {
		cfg.SecurePanel = true
	}
	if panelHost != "" {
		cfg.Host = panelHost
	}
	if panelPort != 0 {
		cfg.Port = panelPort
	}
	if panelScheme != "" {
		cfg.Scheme = panelScheme
	}
	if pleskRoot != "" {
		cfg.Root = pleskRoot
	}
	if targetName != "" {
		cfg.Target = targetName
	}
	return cfg, cfg.Validate()
}

// session is one prepared configurator and the transport it runs on.
type session struct {
	cfg          *config.Config
	transport    panel.Transport
	configurator *configurator.Configurator
}

// openSession resolves the target, creates the transport and prepares a
// configurator. Commands that run panel utilities pass needsRoot; the
// check is also applied whenever a secret has to be created.
func openSession(needsRoot bool) (*session, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if needsRoot || cfg.SecretKey == "" {
		if err := deps.RootChecker.RequireRoot(); err != nil {
			return nil, err
		}
	}

	target, err := deps.TargetResolver.Resolve(cfg.Target, cfg.Root)
	if err != nil {
		return nil, err
	}
	transport := deps.TransportFactory.Create(panel.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Scheme:    cfg.Scheme,
		SecretKey: cfg.SecretKey,
		Target:    target,
	})
	c := configurator.NewWithTransport(transport, configurator.Options{
		SecretKey:   cfg.SecretKey,
		SecurePanel: cfg.SecurePanel,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Scheme:      cfg.Scheme,
		Target:      target,
	})
	if err := c.Prepare(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &session{cfg: cfg, transport: transport, configurator: c}, nil
}

// deploy saves every pending deployment and reverts all of them when any
// fails.
func (s *session) deploy() error {
	err := s.configurator.Save("pleskcert", false)
	if err == nil {
		return nil
	}
	if !jsonOutput {
		output.Warn("Deployment failed, reverting installed certificates")
	}
	logger.LogError(s.configurator.RecoveryRoutine(), "Rollback failed")
	return err
}

// progress prints a status line unless JSON output is requested.
func progress(format string, args ...interface{}) {
	if !jsonOutput {
		output.Info(format, args...)
	}
}

// validateDomain checks if domain is valid
func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if strings.ContainsAny(domain, " /\\") {
		return fmt.Errorf("domain cannot contain spaces or slashes: %s", domain)
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("domain cannot start or end with hyphen: %s", domain)
	}
	if strings.HasPrefix(domain, "*.") {
		return fmt.Errorf("wildcard domains need DNS validation, which Plesk HTTP validation cannot provide: %s", domain)
	}
	return nil
}

func validateDomains(domains []string) error {
	for _, d := range domains {
		if err := validateDomain(d); err != nil {
			return err
		}
	}
	return nil
}

// deploymentRows renders deployments for a table.
func deploymentRows(ds []configurator.Deployment) [][]string {
	mark := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{
			configurator.DisplayName(d.Domain),
			d.CertName,
			d.Variant,
			mark(d.State.Installed),
			mark(d.State.Assigned),
			mark(d.State.Secured),
		})
	}
	return rows
}

var deploymentHeaders = []string{"DOMAIN", "CERTIFICATE", "VARIANT", "INSTALLED", "ASSIGNED", "PANEL"}
