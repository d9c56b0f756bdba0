package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ksyq12/pleskcert/internal/deployer"
	"github.com/ksyq12/pleskcert/internal/output"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/platform"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the Plesk installation and API access",
	Long: `Run diagnostic checks against the local Plesk panel.

Checks:
  - Plesk installation and version
  - Root privileges for the panel utilities
  - API-RPC endpoint and access
  - In-place certificate update support

Examples:
  pleskcert check
  pleskcert check --secret-key <key> --json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// Check statuses
const (
	statusOK      = "success"
	statusWarning = "warning"
	statusError   = "error"
)

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CheckReport contains all diagnostic results
type CheckReport struct {
	Platform string        `json:"platform"`
	Target   string        `json:"target"`
	Root     string        `json:"root"`
	Endpoint string        `json:"endpoint,omitempty"`
	Updating bool          `json:"certificate_update"`
	Checks   []CheckResult `json:"checks"`
}

func (r *CheckReport) add(name, status, format string, args ...interface{}) {
	r.Checks = append(r.Checks, CheckResult{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
}

func (r *CheckReport) failed() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == statusError {
			n++
		}
	}
	return n
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	target, err := deps.TargetResolver.Resolve(cfg.Target, cfg.Root)
	if err != nil {
		return err
	}

	report := &CheckReport{
		Platform: platform.Platform(),
		Target:   target.Name(),
		Root:     target.Paths().Root,
	}

	if target.Paths().Installed() {
		report.add("installation", statusOK, "Plesk found at %s", target.Paths().Root)
	} else {
		report.add("installation", statusWarning, "version marker %s not found", target.Paths().Version)
	}

	if err := deps.RootChecker.RequireRoot(); err != nil {
		status := statusError
		if cfg.SecretKey != "" {
			status = statusWarning
		}
		report.add("privileges", status, "%v", err)
	} else {
		report.add("privileges", statusOK, "running with root privileges")
	}

	transport := deps.TransportFactory.Create(panel.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Scheme:    cfg.Scheme,
		SecretKey: cfg.SecretKey,
		Target:    target,
	})
	defer transport.Close()

	if cfg.SecretKey != "" {
		report.add("version", statusWarning, "skipped, secret key supplied")
	} else if err := transport.CheckVersion(); err != nil {
		report.add("version", statusError, "%v", err)
	} else {
		report.add("version", statusOK, "supported Plesk version")
	}

	if ep, ok := transport.(interface{ Endpoint() panel.Endpoint }); ok {
		report.Endpoint = ep.Endpoint().URL()
	}

	if report.failed() == 0 {
		updating, err := deployer.Probe(transport)
		if err != nil {
			report.add("api", statusError, "%v", err)
		} else {
			report.Updating = updating
			report.add("api", statusOK, "API-RPC reachable")
			if updating {
				report.add("certificate update", statusOK, "certificate/update available")
			} else {
				report.add("certificate update", statusWarning, "not available, certificates are replaced")
			}
		}
	}

	if jsonOutput {
		if err := output.JSON(report); err != nil {
			return err
		}
	} else {
		printCheckReport(report)
	}

	if n := report.failed(); n > 0 {
		return fmt.Errorf("%d check(s) failed", n)
	}
	return nil
}

func printCheckReport(r *CheckReport) {
	pairs := [][2]string{
		{"Platform", r.Platform},
		{"Target", r.Target},
		{"Root", r.Root},
	}
	if r.Endpoint != "" {
		pairs = append(pairs, [2]string{"Endpoint", r.Endpoint})
	}
	output.KeyValues(pairs)
	output.Print("")

	for _, c := range r.Checks {
		switch c.Status {
		case statusOK:
			output.Success("%s: %s", c.Name, c.Message)
		case statusWarning:
			output.Warn("%s: %s", c.Name, c.Message)
		default:
			output.Error("%s: %s", c.Name, c.Message)
		}
	}
}
