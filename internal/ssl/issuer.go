package ssl

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/ksyq12/pleskcert/internal/logger"
)

// DefaultDirectoryURL is the Let's Encrypt production directory.
const DefaultDirectoryURL = lego.LEDirectoryProduction

// Option configures an Issuer.
type Option func(*config)

// WithDirectoryURL overrides the ACME directory URL.
func WithDirectoryURL(url string) Option {
	return func(cfg *config) {
		if url = strings.TrimSpace(url); url != "" {
			cfg.directoryURL = url
		}
	}
}

// WithKeyType overrides the key type of issued certificates.
func WithKeyType(keyType certcrypto.KeyType) Option {
	return func(cfg *config) {
		if keyType != "" {
			cfg.keyType = keyType
		}
	}
}

type config struct {
	email        string
	directoryURL string
	keyType      certcrypto.KeyType
}

// Certificate is issued PEM material, split the way the panel stores it.
type Certificate struct {
	Domains []string
	Cert    string
	Key     string
	Chain   string
}

// Issuer obtains certificates, validating domains through a Provider.
type Issuer struct {
	cfg      config
	provider legochallenge.Provider

	clientFactory   clientFactory
	accountKeyMaker func() (crypto.PrivateKey, error)
}

// NewIssuer creates an issuer registering with email and validating
// through auth.
func NewIssuer(auth Authenticator, email string, opts ...Option) (*Issuer, error) {
	cfg := config{
		email:        strings.TrimSpace(email),
		directoryURL: DefaultDirectoryURL,
		keyType:      certcrypto.RSA2048,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.email == "" {
		return nil, errors.New("email is required")
	}

	return &Issuer{
		cfg:           cfg,
		provider:      NewProvider(auth),
		clientFactory: defaultClientFactory,
		accountKeyMaker: func() (crypto.PrivateKey, error) {
			return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		},
	}, nil
}

// Obtain registers a fresh account and orders one certificate covering
// domains. The first domain becomes the common name.
func (i *Issuer) Obtain(domains []string) (*Certificate, error) {
	if len(domains) == 0 {
		return nil, errors.New("at least one domain is required")
	}

	accountKey, err := i.accountKeyMaker()
	if err != nil {
		return nil, fmt.Errorf("generate account key: %w", err)
	}
	user := &accountUser{email: i.cfg.email, key: accountKey}

	legoCfg := lego.NewConfig(user)
	legoCfg.CADirURL = i.cfg.directoryURL
	legoCfg.Certificate.KeyType = i.cfg.keyType

	client, err := i.clientFactory(legoCfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}
	if err := client.SetHTTP01Provider(i.provider); err != nil {
		return nil, fmt.Errorf("configure http-01 provider: %w", err)
	}

	reg, err := client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	user.registration = reg
	logger.Debug("Registered ACME account %s", reg.URI)

	res, err := client.Obtain(certificate.ObtainRequest{
		Domains: domains,
		Bundle:  false,
	})
	if err != nil {
		return nil, fmt.Errorf("obtain certificate: %w", err)
	}
	if res == nil || len(res.Certificate) == 0 || len(res.PrivateKey) == 0 {
		return nil, errors.New("empty certificate received from ACME server")
	}

	return &Certificate{
		Domains: domains,
		Cert:    string(res.Certificate),
		Key:     string(res.PrivateKey),
		Chain:   string(res.IssuerCertificate),
	}, nil
}

type clientFactory func(*lego.Config) (acmeClient, error)

type acmeClient interface {
	Register(options registration.RegisterOptions) (*registration.Resource, error)
	SetHTTP01Provider(provider legochallenge.Provider) error
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)
}

func defaultClientFactory(cfg *lego.Config) (acmeClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) SetHTTP01Provider(provider legochallenge.Provider) error {
	return l.client.Challenge.SetHTTP01Provider(provider)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string                        { return u.email }
func (u *accountUser) GetRegistration() *registration.Resource { return u.registration }
func (u *accountUser) GetPrivateKey() crypto.PrivateKey        { return u.key }
