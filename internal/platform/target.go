package platform

import (
	"fmt"
	"path"
	"strings"

	"github.com/ksyq12/pleskcert/internal/executor"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/template"
)

// CPServerConf is the sw-cp-server config holding the admin listen ports.
const CPServerConf = "/etc/sw-cp-server/conf.d/plesk.conf"

// StagingUser is the identity used for the privileged staging copy.
const StagingUser = "root"

// Target isolates the behavior that differs between panel platforms.
type Target interface {
	// Name returns the target name (posix or windows).
	Name() string

	// Paths returns the installation layout.
	Paths() Paths

	// Clean normalizes a remote path to forward slashes.
	Clean(p string) string

	// ServerRule returns the rule file written next to validation tokens
	// and its content.
	ServerRule() (name, content string, err error)

	// FileManager returns the command line running filemng as user.
	FileManager(user string, args ...string) (string, []string)

	// CopyIntoPlace copies the local file src to the remote path dst owned
	// by user.
	CopyIntoPlace(run executor.CommandExecutor, user, src, dst string) error

	// AdminCertCommand returns the command securing the panel with the
	// combined key/certificate/chain file.
	AdminCertCommand(certFile string) (string, []string)
}

type posixTarget struct {
	paths Paths
}

// NewPOSIXTarget creates the POSIX target rooted at root.
func NewPOSIXTarget(root string) Target {
	return &posixTarget{paths: NewPaths(root, CPServerConf)}
}

func (t *posixTarget) Name() string { return POSIX }

func (t *posixTarget) Paths() Paths { return t.paths }

func (t *posixTarget) Clean(p string) string {
	return path.Clean(p)
}

func (t *posixTarget) ServerRule() (string, string, error) {
	content, err := template.Render(template.RuleHtaccess, template.DefaultRuleData())
	return template.RuleHtaccess, content, err
}

func (t *posixTarget) FileManager(user string, args ...string) (string, []string) {
	return path.Join(t.paths.Bin, "filemng"), append([]string{user}, args...)
}

func (t *posixTarget) CopyIntoPlace(run executor.CommandExecutor, user, src, dst string) error {
	name, args := t.FileManager(user, "cp2perm", src, dst, "0644")
	return run.Run(name, args...)
}

func (t *posixTarget) AdminCertCommand(certFile string) (string, []string) {
	return path.Join(t.paths.Bin, "certmng"), []string{
		"--setup-cp-certificate",
		"--certificate=" + certFile,
	}
}

type windowsTarget struct {
	paths Paths
}

// NewWindowsTarget creates the Windows target rooted at root.
func NewWindowsTarget(root string) Target {
	return &windowsTarget{paths: NewPaths(root, "")}
}

func (t *windowsTarget) Name() string { return Windows }

func (t *windowsTarget) Paths() Paths { return t.paths }

func (t *windowsTarget) Clean(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

func (t *windowsTarget) ServerRule() (string, string, error) {
	content, err := template.Render(template.RuleWebConfig, template.DefaultRuleData())
	return template.RuleWebConfig, content, err
}

// extension wraps a panel tool in the letsencrypt extension runner.
func (t *windowsTarget) extension(tool string, args ...string) (string, []string) {
	argv := append([]string{"--exec", "letsencrypt", tool + ".php"}, args...)
	return path.Join(t.paths.CLI, "extension.exe"), argv
}

func (t *windowsTarget) FileManager(user string, args ...string) (string, []string) {
	return t.extension("filemng", append([]string{user}, args...)...)
}

// CopyIntoPlace stages the file through a temp file created as the
// privileged user, since the deploying identity may not write dst directly.
// The staging file is removed afterwards on a best-effort basis.
func (t *windowsTarget) CopyIntoPlace(run executor.CommandExecutor, user, src, dst string) error {
	name, args := t.FileManager(StagingUser, "--temp-file")
	out, err := run.Output(name, args...)
	if err != nil {
		return err
	}
	staging := strings.TrimSpace(out)
	if staging == "" {
		return fmt.Errorf("filemng returned no staging file for %s", dst)
	}
	defer func() {
		name, args := t.FileManager(StagingUser, "rm", staging)
		if err := run.Run(name, args...); err != nil {
			logger.Debug("Removing staging file %s failed: %v", staging, err)
		}
	}()

	name, args = t.FileManager(StagingUser, "cp", src, staging)
	if err := run.Run(name, args...); err != nil {
		return err
	}
	name, args = t.FileManager(user, "cp", staging, dst)
	return run.Run(name, args...)
}

func (t *windowsTarget) AdminCertCommand(certFile string) (string, []string) {
	return t.extension("certmng",
		"--setup-cp-certificate",
		"--certificate="+certFile,
	)
}
