package ssl

import (
	legochallenge "github.com/go-acme/lego/v4/challenge"

	"github.com/ksyq12/pleskcert/internal/challenge"
	"github.com/ksyq12/pleskcert/internal/logger"
)

// Authenticator places and removes validation files. CleanupChallenges
// must leave the panel session open: lego cleans up once per
// authorization, and deployment follows in the same run.
type Authenticator interface {
	Perform(chs []challenge.Challenge) ([]string, error)
	CleanupChallenges(chs []challenge.Challenge)
}

// Provider is an HTTP-01 provider backed by an Authenticator.
type Provider struct {
	auth Authenticator
}

var _ legochallenge.Provider = (*Provider)(nil)

// NewProvider creates a provider for auth.
func NewProvider(auth Authenticator) *Provider {
	return &Provider{auth: auth}
}

// Present places the token for domain.
func (p *Provider) Present(domain, token, keyAuth string) error {
	logger.Debug("Placing HTTP-01 token for %s", domain)
	_, err := p.auth.Perform([]challenge.Challenge{NewHTTP01(domain, token, keyAuth)})
	return err
}

// CleanUp removes the token for domain. Cleanup failures are only logged
// by the authenticator, so CleanUp never fails.
func (p *Provider) CleanUp(domain, token, keyAuth string) error {
	p.auth.CleanupChallenges([]challenge.Challenge{NewHTTP01(domain, token, keyAuth)})
	return nil
}
