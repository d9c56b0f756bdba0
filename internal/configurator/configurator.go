// Package configurator runs certificate validation and deployment for a
// set of domains on one Plesk panel.
//
// The Configurator implements the authenticator/installer contract of an
// ACME client: it places HTTP-01 validation files through per-domain
// challenge handlers and deploys issued certificates through per-domain
// deployers. All of them share one panel transport, whose API secret is
// released by Cleanup, Restart or Close.
package configurator

import (
	"errors"
	"os"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
	legochallenge "github.com/go-acme/lego/v4/challenge"
	"golang.org/x/net/idna"

	"github.com/ksyq12/pleskcert/internal/challenge"
	"github.com/ksyq12/pleskcert/internal/deployer"
	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/executor"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/platform"
)

const wwwPrefix = "www."

// domainProfile maps names like idna.Lookup but keeps labels the panel
// accepts outside strict host name syntax, such as underscores.
var domainProfile = idna.New(idna.MapForLookup(), idna.BidiRule(), idna.StrictDomainName(false))

// Options configures a Configurator.
type Options struct {
	// SecretKey is the API-RPC secret. Empty means create one per run.
	SecretKey string
	// SecurePanel also secures the panel's admin interface.
	SecurePanel bool

	Host   string
	Port   int
	Scheme string

	Target   platform.Target
	Executor executor.CommandExecutor
	// TempDir holds local staging files. Empty means os.TempDir.
	TempDir string
}

// Deployment describes the deployer of one domain.
type Deployment struct {
	Domain   string         `json:"domain"`
	CertName string         `json:"certificate"`
	Variant  string         `json:"variant"`
	State    deployer.State `json:"state"`
}

// CertKey is a certificate/key pair known to the installer.
type CertKey struct {
	Cert string
	Key  string
	Path string
}

// Configurator orchestrates handlers and deployers over one transport.
type Configurator struct {
	opts      Options
	transport panel.Transport

	handlers  map[string]*challenge.Handler
	deployers map[string]deployer.Deployer
	order     []string
	updating  *bool
}

// New creates a configurator. The transport is created by Prepare.
func New(opts Options) *Configurator {
	return &Configurator{
		opts:      opts,
		handlers:  make(map[string]*challenge.Handler),
		deployers: make(map[string]deployer.Deployer),
	}
}

// NewWithTransport creates a configurator bound to an existing transport.
func NewWithTransport(t panel.Transport, opts Options) *Configurator {
	c := New(opts)
	c.transport = t
	return c
}

// Prepare creates the transport if needed and checks the installation.
func (c *Configurator) Prepare() error {
	if c.transport == nil {
		c.transport = panel.NewClient(panel.Options{
			Host:      c.opts.Host,
			Port:      c.opts.Port,
			Scheme:    c.opts.Scheme,
			SecretKey: c.opts.SecretKey,
			Target:    c.opts.Target,
			Executor:  c.opts.Executor,
		})
	}
	return c.transport.CheckVersion()
}

// MoreInfo describes the configurator.
func (c *Configurator) MoreInfo() string {
	return "Configures Plesk to authenticate and install SSL certificate."
}

// ChallengePreference returns the supported challenge types for domain.
func (c *Configurator) ChallengePreference(domain string) []legochallenge.Type {
	return []legochallenge.Type{legochallenge.HTTP01}
}

// handlerDomain routes www. domains to the bare domain's handler.
func handlerDomain[T any](domain string, known map[string]T) string {
	if bare, ok := strings.CutPrefix(domain, wwwPrefix); ok {
		if _, exists := known[bare]; exists {
			return bare
		}
	}
	return domain
}

// Perform places validation files for every challenge and returns the
// responses in order.
func (c *Configurator) Perform(chs []challenge.Challenge) ([]string, error) {
	for _, ch := range chs {
		if _, ok := c.handlers[ch.Domain()]; !ok {
			h := challenge.NewHandler(ch.Domain(), c.transport)
			h.TempDir = c.opts.TempDir
			c.handlers[ch.Domain()] = h
		}
	}

	responses := make([]string, 0, len(chs))
	for _, ch := range chs {
		h := c.handlers[handlerDomain(ch.Domain(), c.handlers)]
		response, err := h.Perform(ch)
		if err != nil {
			return responses, err
		}
		responses = append(responses, response)
	}
	return responses, nil
}

// Cleanup removes the validation files of every challenge and releases
// the transport. It never fails.
func (c *Configurator) Cleanup(chs []challenge.Challenge) {
	c.CleanupChallenges(chs)
	c.closeTransport()
}

// CleanupChallenges removes the validation files of every challenge and
// keeps the transport open, for hosts that clean up one authorization at
// a time and deploy afterwards. The transport is released by Close.
func (c *Configurator) CleanupChallenges(chs []challenge.Challenge) {
	for _, ch := range chs {
		if h, ok := c.handlers[handlerDomain(ch.Domain(), c.handlers)]; ok {
			h.Cleanup(ch)
		}
	}
}

// AllDomainNames returns the ASCII names of all webspaces and sites.
func (c *Configurator) AllDomainNames() ([]string, error) {
	get := packet.Obj("get", packet.List(
		packet.Obj("filter", packet.Empty()),
		packet.Obj("dataset", packet.Obj("gen_info", packet.Empty())),
	))
	req := packet.Obj("packet", packet.List(
		packet.Obj("webspace", get),
		packet.Obj("site", get),
	))
	resp, err := c.transport.Request(req)
	if err != nil {
		return nil, err
	}

	names := resultNames(resp.Get("packet", "webspace", "get", "result"))
	names = append(names, resultNames(resp.Get("packet", "site", "get", "result"))...)
	return names, nil
}

// resultNames flattens results and keeps the names of successful ones.
func resultNames(result packet.Value) []string {
	var names []string
	for _, r := range result.Items() {
		if r.Kind() == packet.KindList {
			names = append(names, resultNames(r)...)
			continue
		}
		if !panel.OK(r) || !r.Has("data") {
			continue
		}
		if name := r.Get("data", "gen_info", "ascii-name").Text(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DisplayName converts an ASCII (punycode) domain to its Unicode form.
func DisplayName(domain string) string {
	if u, err := idna.Display.ToUnicode(domain); err == nil {
		return u
	}
	return domain
}

// DeployCert reads PEM files and prepares their deployment. chainPath may
// be empty; fullchainPath is not used by the panel.
func (c *Configurator) DeployCert(domain, certPath, keyPath, chainPath, fullchainPath string) error {
	cert, err := os.ReadFile(certPath)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeValidation, "cannot read certificate", err)
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeValidation, "cannot read private key", err)
	}
	var chain []byte
	if chainPath != "" {
		if chain, err = os.ReadFile(chainPath); err != nil {
			return perrors.Wrap(perrors.ErrCodeValidation, "cannot read certificate chain", err)
		}
	}
	return c.DeployCertData(domain, string(cert), string(key), string(chain))
}

// DeployCertData prepares the deployment of PEM material for domain.
// A www. domain is skipped when its bare domain is already deployed, and
// deploying a bare domain discards a pending www. deployment.
func (c *Configurator) DeployCertData(domain, cert, key, chain string) error {
	domain, err := domainProfile.ToASCII(strings.TrimSpace(domain))
	if err != nil || domain == "" {
		return perrors.Wrap(perrors.ErrCodeValidation, "invalid domain", err)
	}
	if err := validatePEM(domain, cert, key, chain); err != nil {
		return err
	}

	if bare, ok := strings.CutPrefix(domain, wwwPrefix); ok {
		if _, exists := c.deployers[bare]; exists {
			logger.Debug("Skipping %s, covered by %s", domain, bare)
			return nil
		}
	} else if _, exists := c.deployers[wwwPrefix+domain]; exists {
		c.forget(wwwPrefix + domain)
	}

	updating, err := c.certificateUpdateAvailable()
	if err != nil {
		return err
	}
	d := deployer.New(c.transport, domain, updating, deployer.WithTempDir(c.opts.TempDir))
	d.InitCert(cert, key, chain)

	if _, exists := c.deployers[domain]; !exists {
		c.order = append(c.order, domain)
	}
	c.deployers[domain] = d
	return nil
}

func (c *Configurator) forget(domain string) {
	delete(c.deployers, domain)
	for i, d := range c.order {
		if d == domain {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// validatePEM checks that the material parses before anything is sent.
func validatePEM(domain, cert, key, chain string) error {
	leaf, err := certcrypto.ParsePEMCertificate([]byte(cert))
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeValidation, "invalid certificate", err)
	}
	if _, err := certcrypto.ParsePEMPrivateKey([]byte(key)); err != nil {
		return perrors.Wrap(perrors.ErrCodeValidation, "invalid private key", err)
	}
	if strings.TrimSpace(chain) != "" {
		if _, err := certcrypto.ParsePEMBundle([]byte(chain)); err != nil {
			return perrors.Wrap(perrors.ErrCodeValidation, "invalid certificate chain", err)
		}
	}
	if err := leaf.VerifyHostname(domain); err != nil {
		logger.WarnFields("Certificate does not cover the domain", map[string]interface{}{
			"domain": domain,
			"names":  strings.Join(leaf.DNSNames, ","),
		})
	}
	return nil
}

// certificateUpdateAvailable probes the panel once per run.
func (c *Configurator) certificateUpdateAvailable() (bool, error) {
	if c.updating == nil {
		updating, err := deployer.Probe(c.transport)
		if err != nil {
			return false, err
		}
		logger.Debug("certificate/update available: %v", updating)
		c.updating = &updating
	}
	return *c.updating, nil
}

// Save deploys every pending certificate. Temporary saves do nothing.
// Every domain is attempted; failures are joined.
func (c *Configurator) Save(title string, temporary bool) error {
	if temporary {
		return nil
	}
	var errs []error
	for _, domain := range c.order {
		d := c.deployers[domain]
		if err := d.Save(c.opts.SecurePanel); err != nil {
			logger.ErrorFields("Deployment failed", map[string]interface{}{
				"domain": domain,
				"error":  err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		logger.InfoFields("Certificate deployed", map[string]interface{}{
			"domain":  domain,
			"name":    d.CertName(),
			"variant": d.Variant(),
		})
	}
	return errors.Join(errs...)
}

// RecoveryRoutine reverts every deployment.
func (c *Configurator) RecoveryRoutine() error {
	var errs []error
	for _, domain := range c.order {
		if err := c.deployers[domain].Revert(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deployments returns the deployers in deployment order.
func (c *Configurator) Deployments() []Deployment {
	out := make([]Deployment, 0, len(c.order))
	for _, domain := range c.order {
		d := c.deployers[domain]
		out = append(out, Deployment{
			Domain:   domain,
			CertName: d.CertName(),
			Variant:  d.Variant(),
			State:    d.State(),
		})
	}
	return out
}

// Enhance is not supported.
func (c *Configurator) Enhance(domain, enhancement string, options []string) error {
	return perrors.NotSupported("No enhancements are supported now.")
}

// SupportedEnhancements returns no enhancements.
func (c *Configurator) SupportedEnhancements() []string {
	return []string{}
}

// AllCertsKeys returns nothing; the panel does not expose key material.
func (c *Configurator) AllCertsKeys() []CertKey {
	return []CertKey{}
}

// RollbackCheckpoints is not supported.
func (c *Configurator) RollbackCheckpoints(rollback int) error {
	return perrors.NotSupported("Rollback checkpoints are not supported.")
}

// ViewConfigChanges is not supported.
func (c *Configurator) ViewConfigChanges() error {
	return perrors.NotSupported("No ability to preview configs generated by Plesk")
}

// ConfigTest always succeeds; the panel validates its own configuration.
func (c *Configurator) ConfigTest() error {
	return nil
}

// Restart only releases the transport; the panel restarts web servers
// itself.
func (c *Configurator) Restart() error {
	c.closeTransport()
	return nil
}

// Close releases the transport.
func (c *Configurator) Close() error {
	c.closeTransport()
	return nil
}

func (c *Configurator) closeTransport() {
	if c.transport == nil {
		return
	}
	if err := c.transport.Close(); err != nil {
		logger.Debug("Transport cleanup failed: %v", err)
	}
}
