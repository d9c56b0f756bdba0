// Package deployer installs issued certificates into a Plesk panel.
//
// A Deployer owns the certificate of one domain and drives it through the
// panel: install into the certificate pool, assign to the site, and
// optionally secure the panel's own admin interface. Each step sets a flag
// once it succeeds, so Save can be retried without repeating remote calls,
// and Revert undoes the install.
//
// Two variants exist. The legacy variant replaces a same-named certificate
// by removing it first; the updating variant, selected when the panel
// speaks API-RPC 1.6.8.0 or newer, updates it in place. Probe picks one.
package deployer

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/panel"
)

// CertNamePrefix prefixes the name of every certificate installed here.
const CertNamePrefix = "Lets Encrypt "

// UpdateProtocol is the first API-RPC version with certificate/update.
const UpdateProtocol = "1.6.8.0"

// Variant names.
const (
	VariantLegacy   = "legacy"
	VariantUpdating = "updating"
)

// CertName returns the pool name of the certificate of domain.
func CertName(domain string) string {
	return CertNamePrefix + domain
}

// State holds the progress flags of a deployment.
type State struct {
	Installed bool `json:"installed"`
	Assigned  bool `json:"assigned"`
	Secured   bool `json:"secured"`
}

// Deployer deploys the certificate of one domain.
type Deployer interface {
	Domain() string
	CertName() string
	Variant() string

	// InitCert stores the PEM material. chain may be empty.
	InitCert(cert, key, chain string)

	// ListCerts returns the names in the domain's certificate pool.
	ListCerts() ([]string, error)

	Install() error
	Assign() error
	Remove() error

	// Save runs the remaining deployment steps.
	Save(secureAdmin bool) error

	// Revert removes an installed certificate and resets all flags.
	Revert() error

	State() State
}

// Option configures a deployer.
type Option func(*base)

// WithTempDir sets where the admin panel certificate file is staged.
func WithTempDir(dir string) Option {
	return func(b *base) { b.tempDir = dir }
}

// New creates a deployer of the given variant.
func New(api panel.API, domain string, updating bool, opts ...Option) Deployer {
	b := &base{api: api, domain: domain}
	for _, opt := range opts {
		opt(b)
	}
	if updating {
		return &Updating{base: b}
	}
	return &Legacy{base: b}
}

// Probe reports whether the panel supports in-place certificate updates.
func Probe(api panel.API) (bool, error) {
	req := packet.Obj("packet", packet.Obj("server", packet.Obj("get_protos", packet.Empty())))
	resp, err := api.Request(req)
	if err != nil {
		return false, err
	}
	result := resp.Get("packet", "server", "get_protos", "result")
	if !panel.OK(result) {
		return false, nil
	}

	minimum := version.Must(version.NewVersion(UpdateProtocol))
	for _, proto := range result.Get("protos", "proto").Items() {
		v, err := version.NewVersion(proto.Text())
		if err != nil {
			logger.Debug("Ignoring protocol version %q: %v", proto.Text(), err)
			continue
		}
		if v.GreaterThanOrEqual(minimum) {
			return true, nil
		}
	}
	return false, nil
}

// base implements the steps shared by both variants.
type base struct {
	api    panel.API
	domain string

	cert, key, chain string
	state            State
	tempDir          string
}

func (d *base) Domain() string { return d.domain }

func (d *base) CertName() string { return CertName(d.domain) }

func (d *base) State() State { return d.state }

func (d *base) InitCert(cert, key, chain string) {
	d.cert, d.key, d.chain = cert, key, chain
}

func (d *base) ListCerts() ([]string, error) {
	req := packet.Obj("packet", packet.Obj("certificate", packet.Obj("get-pool",
		packet.Obj("filter", packet.Obj("domain-name", packet.Text(d.domain))),
	)))
	resp, err := d.api.Request(req)
	if err != nil {
		return nil, err
	}
	result := resp.Get("packet", "certificate", "get-pool", "result")
	if !panel.OK(result) {
		return nil, nil
	}
	var names []string
	for _, c := range result.Get("certificates", "certificate").Items() {
		if name := c.Get("name").Text(); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (d *base) hasCert() (bool, error) {
	names, err := d.ListCerts()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == d.CertName() {
			return true, nil
		}
	}
	return false, nil
}

// content builds the certificate body shared by install and update.
func (d *base) content() packet.Value {
	ca := packet.Empty()
	if d.chain != "" {
		ca = packet.Text(d.chain)
	}
	return packet.Obj("content", packet.List(
		packet.Obj("csr", packet.Empty()),
		packet.Obj("pvt", packet.Text(d.key)),
		packet.Obj("cert", packet.Text(d.cert)),
		packet.Obj("ca", ca),
	))
}

// call sends a certificate operation and checks its result.
func (d *base) call(object, op, failure string, body packet.Value) error {
	req := packet.Obj("packet", packet.Obj(object, packet.Obj(op, body)))
	resp, err := d.api.Request(req)
	if err != nil {
		return err
	}
	result := resp.Get("packet", object, op, "result")
	if !panel.OK(result) {
		return perrors.Deployment(d.domain, failure, panel.ErrText(result))
	}
	logger.DebugFields("Certificate operation succeeded", map[string]interface{}{
		"domain":    d.domain,
		"operation": object + "/" + op,
	})
	return nil
}

func (d *base) Install() error {
	err := d.call("certificate", "install", "Install certificate failure", packet.List(
		packet.Obj("name", packet.Text(d.CertName())),
		packet.Obj("site", packet.Text(d.domain)),
		d.content(),
	))
	if err != nil {
		return err
	}
	d.state.Installed = true
	return nil
}

func (d *base) Assign() error {
	property := func(name, value string) packet.Value {
		return packet.Obj("property", packet.List(
			packet.Obj("name", packet.Text(name)),
			packet.Obj("value", packet.Text(value)),
		))
	}
	err := d.call("site", "set", "Assign certificate failure", packet.List(
		packet.Obj("filter", packet.Obj("name", packet.Text(d.domain))),
		packet.Obj("values", packet.Obj("hosting", packet.Obj("vrt_hst", packet.List(
			property("ssl", "true"),
			property("certificate_name", d.CertName()),
		)))),
	))
	if err != nil {
		return err
	}
	d.state.Assigned = true
	return nil
}

func (d *base) Remove() error {
	return d.call("certificate", "remove", "Remove certificate failure", packet.List(
		packet.Obj("filter", packet.Obj("name", packet.Text(d.CertName()))),
		packet.Obj("site", packet.Text(d.domain)),
	))
}

func (d *base) Revert() error {
	if d.state.Installed {
		if err := d.Remove(); err != nil {
			return err
		}
		d.state.Installed = false
	}
	d.state.Assigned = false
	d.state.Secured = false
	return nil
}

// finish assigns the certificate and secures the admin panel if asked.
func (d *base) finish(secureAdmin bool) error {
	if !d.state.Assigned {
		if err := d.Assign(); err != nil {
			return err
		}
	}
	if secureAdmin && !d.state.Secured {
		if err := d.secureAdmin(); err != nil {
			return err
		}
	}
	return nil
}

// secureAdmin hands key, certificate and chain to certmng in one file.
func (d *base) secureAdmin() error {
	tmp, err := os.CreateTemp(d.tempDir, "pleskcert-cp-*")
	if err != nil {
		return fmt.Errorf("failed to create certificate file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = fmt.Fprintf(tmp, "%s\n%s\n%s", d.key, d.cert, d.chain)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write certificate file: %w", err)
	}

	name, args := d.api.Target().AdminCertCommand(tmp.Name())
	if err := d.api.Run(name, args...); err != nil {
		return err
	}
	d.state.Secured = true
	return nil
}

// Legacy deploys on panels without certificate/update.
type Legacy struct {
	*base
}

func (d *Legacy) Variant() string { return VariantLegacy }

// Save removes a same-named certificate, installs, assigns and optionally
// secures the admin panel. Completed steps are skipped.
func (d *Legacy) Save(secureAdmin bool) error {
	if !d.state.Installed {
		exists, err := d.hasCert()
		if err != nil {
			return err
		}
		if exists {
			if err := d.Remove(); err != nil {
				return err
			}
		}
		if err := d.Install(); err != nil {
			return err
		}
	}
	return d.finish(secureAdmin)
}

// Updating deploys on panels that update certificates in place.
type Updating struct {
	*base
}

func (d *Updating) Variant() string { return VariantUpdating }

// Update replaces the content of the same-named certificate.
func (d *Updating) Update() error {
	err := d.call("certificate", "update", "Update certificate failure", packet.List(
		packet.Obj("name", packet.Text(d.CertName())),
		packet.Obj("site", packet.Text(d.domain)),
		d.content(),
	))
	if err != nil {
		return err
	}
	d.state.Installed = true
	return nil
}

// Save updates or installs, assigns and optionally secures the admin
// panel. Completed steps are skipped.
func (d *Updating) Save(secureAdmin bool) error {
	if !d.state.Installed {
		exists, err := d.hasCert()
		if err != nil {
			return err
		}
		if exists {
			err = d.Update()
		} else {
			err = d.Install()
		}
		if err != nil {
			return err
		}
	}
	return d.finish(secureAdmin)
}
