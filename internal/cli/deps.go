package cli

import (
	"errors"
	"os"
	"runtime"

	"github.com/ksyq12/pleskcert/internal/config"
	"github.com/ksyq12/pleskcert/internal/input"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/platform"
	"github.com/ksyq12/pleskcert/internal/ssl"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader     ConfigLoader
	TargetResolver   TargetResolver
	TransportFactory TransportFactory
	IssuerFactory    IssuerFactory
	RootChecker      RootChecker
	StdinReader      input.Reader
}

// ConfigLoader handles configuration loading
type ConfigLoader interface {
	Load(path string) (*config.Config, error)
}

// TargetResolver picks the panel platform
type TargetResolver interface {
	Resolve(name, root string) (platform.Target, error)
}

// TransportFactory creates panel transports
type TransportFactory interface {
	Create(opts panel.Options) panel.Transport
}

// CertIssuer obtains certificates from an ACME CA
type CertIssuer interface {
	Obtain(domains []string) (*ssl.Certificate, error)
}

// IssuerFactory creates issuers validating through auth
type IssuerFactory interface {
	Create(auth ssl.Authenticator, email, directoryURL string) (CertIssuer, error)
}

// RootChecker checks root privileges
type RootChecker interface {
	RequireRoot() error
}

// Package-level dependencies (can be overridden for testing)
var deps = &Dependencies{
	ConfigLoader:     &realConfigLoader{},
	TargetResolver:   &realTargetResolver{},
	TransportFactory: &realTransportFactory{},
	IssuerFactory:    &realIssuerFactory{},
	RootChecker:      &realRootChecker{},
	StdinReader:      input.NewStdinReader(),
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

type realConfigLoader struct{}

func (r *realConfigLoader) Load(path string) (*config.Config, error) {
	return config.Load(path)
}

type realTargetResolver struct{}

func (r *realTargetResolver) Resolve(name, root string) (platform.Target, error) {
	return platform.Select(name, root)
}

type realTransportFactory struct{}

func (r *realTransportFactory) Create(opts panel.Options) panel.Transport {
	return panel.NewClient(opts)
}

type realIssuerFactory struct{}

func (r *realIssuerFactory) Create(auth ssl.Authenticator, email, directoryURL string) (CertIssuer, error) {
	return ssl.NewIssuer(auth, email, ssl.WithDirectoryURL(directoryURL))
}

type realRootChecker struct{}

func (r *realRootChecker) RequireRoot() error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if os.Geteuid() != 0 {
		return errRootRequired
	}
	return nil
}

// errRootRequired is the sentinel error for root privilege check
var errRootRequired = errors.New("this operation runs Plesk utilities and requires root privileges. Please run with sudo")
