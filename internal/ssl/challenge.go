// Package ssl connects the Plesk configurator to the lego ACME client.
//
// Provider satisfies lego's challenge.Provider by handing each HTTP-01
// token to an Authenticator, normally a configurator.Configurator, which
// places the token below the domain's web root on the panel. Issuer runs
// a complete order: account registration, validation through Provider,
// and certificate download.
package ssl

import (
	"strings"

	"github.com/go-acme/lego/v4/challenge/http01"

	"github.com/ksyq12/pleskcert/internal/challenge"
)

// HTTP01 is one HTTP-01 validation as seen by the challenge handlers.
type HTTP01 struct {
	domain  string
	token   string
	keyAuth string
}

var _ challenge.Challenge = (*HTTP01)(nil)

// NewHTTP01 creates a challenge from the values lego passes to a provider.
func NewHTTP01(domain, token, keyAuth string) *HTTP01 {
	return &HTTP01{domain: domain, token: token, keyAuth: keyAuth}
}

func (c *HTTP01) Domain() string { return c.domain }

func (c *HTTP01) Token() string { return c.token }

// RootPath is the token directory relative to the web root.
func (c *HTTP01) RootPath() string {
	return strings.Trim(http01.ChallengePath(""), "/")
}

// ResponseAndValidation returns the key authorization for both values: the
// CA validates the file content, and lego already holds the response.
func (c *HTTP01) ResponseAndValidation() (string, string, error) {
	return c.keyAuth, c.keyAuth, nil
}
