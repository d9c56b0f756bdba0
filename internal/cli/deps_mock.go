package cli

import (
	"errors"

	"github.com/ksyq12/pleskcert/internal/config"
	"github.com/ksyq12/pleskcert/internal/input"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/platform"
	"github.com/ksyq12/pleskcert/internal/ssl"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg     *config.Config
	LoadErr error
	Paths   []string
}

func (m *MockConfigLoader) Load(path string) (*config.Config, error) {
	m.Paths = append(m.Paths, path)
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	cfg := *m.Cfg
	return &cfg, nil
}

// MockTargetResolver is a test double for TargetResolver
type MockTargetResolver struct {
	Target platform.Target
	Err    error
	Calls  [][2]string
}

func (m *MockTargetResolver) Resolve(name, root string) (platform.Target, error) {
	m.Calls = append(m.Calls, [2]string{name, root})
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Target != nil {
		return m.Target, nil
	}
	return platform.Select(name, root)
}

// MockTransportFactory hands out one scripted API
type MockTransportFactory struct {
	API     *panel.MockAPI
	Options []panel.Options
}

func (m *MockTransportFactory) Create(opts panel.Options) panel.Transport {
	m.Options = append(m.Options, opts)
	if m.API == nil {
		m.API = panel.NewMockAPI()
	}
	if m.API.TargetValue == nil {
		m.API.TargetValue = opts.Target
	}
	return m.API
}

// MockIssuer presents one token per domain through the authenticator it
// was created for, then returns Cert.
type MockIssuer struct {
	Cert    *ssl.Certificate
	Err     error
	Domains []string

	auth ssl.Authenticator
}

func (m *MockIssuer) Obtain(domains []string) (*ssl.Certificate, error) {
	m.Domains = domains
	provider := ssl.NewProvider(m.auth)
	for _, d := range domains {
		if err := provider.Present(d, "token-"+d, "keyauth-"+d); err != nil {
			return nil, err
		}
		_ = provider.CleanUp(d, "token-"+d, "keyauth-"+d)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Cert, nil
}

// MockIssuerFactory is a test double for IssuerFactory
type MockIssuerFactory struct {
	Issuer    *MockIssuer
	Err       error
	Email     string
	Directory string
}

func (m *MockIssuerFactory) Create(auth ssl.Authenticator, email, directoryURL string) (CertIssuer, error) {
	m.Email, m.Directory = email, directoryURL
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Issuer == nil {
		m.Issuer = &MockIssuer{}
	}
	m.Issuer.auth = auth
	return m.Issuer, nil
}

// MockRootChecker is a test double for RootChecker
type MockRootChecker struct {
	IsRoot bool
	Calls  int
}

func (m *MockRootChecker) RequireRoot() error {
	m.Calls++
	if !m.IsRoot {
		return errors.New("this operation requires root privileges. Please run with sudo")
	}
	return nil
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults
func NewMockDeps() *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader:     &MockConfigLoader{Cfg: config.New()},
			TargetResolver:   &MockTargetResolver{},
			TransportFactory: &MockTransportFactory{},
			IssuerFactory:    &MockIssuerFactory{},
			RootChecker:      &MockRootChecker{IsRoot: true},
			StdinReader:      input.NewStringReader(),
		},
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithAPI sets the scripted panel API
func (b *MockDependenciesBuilder) WithAPI(api *panel.MockAPI) *MockDependenciesBuilder {
	b.deps.TransportFactory = &MockTransportFactory{API: api}
	return b
}

// WithTarget sets the resolved target
func (b *MockDependenciesBuilder) WithTarget(target platform.Target) *MockDependenciesBuilder {
	b.deps.TargetResolver = &MockTargetResolver{Target: target}
	return b
}

// WithIssuer sets the issuer handed out by the issuer factory
func (b *MockDependenciesBuilder) WithIssuer(issuer *MockIssuer) *MockDependenciesBuilder {
	b.deps.IssuerFactory = &MockIssuerFactory{Issuer: issuer}
	return b
}

// WithRootAccess sets whether root access is available
func (b *MockDependenciesBuilder) WithRootAccess(isRoot bool) *MockDependenciesBuilder {
	b.deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}
