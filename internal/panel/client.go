package panel

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/executor"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/platform"
)

// MinMajorVersion is the oldest supported panel major version.
const MinMajorVersion = 12

// SecretDescriptionPrefix labels secrets created by this client.
const SecretDescriptionPrefix = "pleskcert"

// API is the panel surface used by challenge handlers and deployers.
type API interface {
	executor.CommandExecutor

	// Request sends an API-RPC packet and returns the decoded response.
	Request(req packet.Value) (packet.Value, error)

	// Target returns the platform the panel runs on.
	Target() platform.Target
}

// Transport is an API whose lifetime is owned by the caller: it checks the
// installation up front and releases the secret at the end of the run.
type Transport interface {
	API

	CheckVersion() error
	Close() error
}

// Options configures a Client.
type Options struct {
	Host   string
	Port   int
	Scheme string

	// SecretKey is an externally supplied API secret. It is never deleted.
	SecretKey string

	Target     platform.Target
	Executor   executor.CommandExecutor
	HTTPClient *http.Client
}

// Client is an API-RPC client bound to one panel.
type Client struct {
	opts     Options
	target   platform.Target
	exec     executor.CommandExecutor
	http     *http.Client
	endpoint *Endpoint

	secret        string
	secretCreated bool
}

var _ Transport = (*Client)(nil)

// NewClient creates a client. Missing options get defaults: the POSIX
// target, the system executor and an HTTP client that skips TLS
// verification of the panel's self-signed certificate.
func NewClient(opts Options) *Client {
	c := &Client{
		opts:   opts,
		target: opts.Target,
		exec:   opts.Executor,
		http:   opts.HTTPClient,
		secret: opts.SecretKey,
	}
	if c.target == nil {
		c.target = platform.NewPOSIXTarget(platform.DefaultPOSIXRoot)
	}
	if c.exec == nil {
		c.exec = executor.NewSystemExecutor()
	}
	if c.http == nil {
		c.http = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- panel admin certificate is self-signed
			},
		}
	}
	return c
}

// Target returns the platform the panel runs on.
func (c *Client) Target() platform.Target {
	return c.target
}

// CheckVersion verifies the panel is installed and new enough. It is
// skipped when a secret was supplied.
func (c *Client) CheckVersion() error {
	if c.opts.SecretKey != "" {
		return nil
	}
	marker := c.target.Paths().Version
	data, err := os.ReadFile(marker)
	if err != nil {
		if os.IsNotExist(err) {
			return perrors.NotInstalled(marker)
		}
		return perrors.Wrap(perrors.ErrCodeNotInstalled, "cannot read version marker", err)
	}

	version := strings.TrimSpace(string(data))
	major, err := strconv.Atoi(strings.SplitN(version, ".", 2)[0])
	if err != nil || major < MinMajorVersion {
		return perrors.UnsupportedVersion(version)
	}
	logger.Debug("Plesk version %s", version)
	return nil
}

// Endpoint returns the agent endpoint, resolving it on first use.
func (c *Client) Endpoint() Endpoint {
	if c.endpoint == nil {
		e := resolveEndpoint(c.opts.Host, c.opts.Scheme, c.opts.Port, c.target.Paths().CPServerConf)
		logger.Debug("API-RPC endpoint %s", e.URL())
		c.endpoint = &e
	}
	return *c.endpoint
}

// Request encodes req, sends it and decodes the response.
func (c *Client) Request(req packet.Value) (packet.Value, error) {
	body, err := packet.Encode(req)
	if err != nil {
		return packet.Value{}, perrors.Wrap(perrors.ErrCodeValidation, "cannot encode API-RPC packet", err)
	}
	return c.RequestRaw(body)
}

// RequestRaw sends an already encoded packet and decodes the response.
func (c *Client) RequestRaw(body string) (packet.Value, error) {
	secret, err := c.Secret()
	if err != nil {
		return packet.Value{}, err
	}

	url := c.Endpoint().URL()
	logger.DebugFields("API-RPC request", map[string]interface{}{
		"url":    url,
		"packet": redact(body),
	})

	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return packet.Value{}, perrors.Transport("cannot build API-RPC request", err)
	}
	httpReq.Header.Set("KEY", secret)
	httpReq.Header.Set("Content-Type", "text/xml")
	httpReq.Header.Set("HTTP_PRETTY_PRINT", "TRUE")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return packet.Value{}, perrors.Transport("API-RPC request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return packet.Value{}, perrors.Transport("cannot read API-RPC response", err)
	}
	logger.DebugFields("API-RPC response", map[string]interface{}{
		"status": resp.StatusCode,
		"packet": string(data),
	})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return packet.Value{}, perrors.Transport("API-RPC request failed", fmt.Errorf("HTTP %s", resp.Status))
	}

	v, err := packet.Decode(data, packet.Adaptive)
	if err != nil {
		return packet.Value{}, perrors.Transport("malformed API-RPC response", err)
	}
	return v, nil
}

// Secret returns the API secret, creating one with secret_key when none
// was supplied.
func (c *Client) Secret() (string, error) {
	if c.secret != "" {
		return c.secret, nil
	}
	description := SecretDescriptionPrefix + "-" + uuid.NewString()
	out, err := c.Output(path.Join(c.target.Paths().CLI, "secret_key"),
		"--create", "-ip-address", "127.0.0.1", "-description", description)
	if err != nil {
		return "", err
	}
	secret := strings.TrimSpace(out)
	if secret == "" {
		return "", perrors.Transport("secret_key returned no secret", nil)
	}
	c.secret = secret
	c.secretCreated = true
	logger.Debug("Created API secret %s", description)
	return c.secret, nil
}

// SecretCreated reports whether the current secret was created by this
// client.
func (c *Client) SecretCreated() bool {
	return c.secretCreated
}

// Close deletes a secret created by this client. Deletion failures are
// logged and ignored. Calling Close again does nothing.
func (c *Client) Close() error {
	if c.secret == "" || !c.secretCreated {
		return nil
	}
	err := c.Run(path.Join(c.target.Paths().CLI, "secret_key"), "--delete", "-key", c.secret)
	if err != nil {
		logger.Debug("Secret key removal failed: %v", err)
	}
	c.secret = ""
	c.secretCreated = false
	return nil
}

// Run executes a panel utility.
func (c *Client) Run(name string, args ...string) error {
	return c.exec.Run(name, args...)
}

// Output executes a panel utility and returns its standard output.
func (c *Client) Output(name string, args ...string) (string, error) {
	return c.exec.Output(name, args...)
}

var privateKey = regexp.MustCompile(`(?s)<pvt>.*?</pvt>`)

// redact hides private keys in logged packets.
func redact(body string) string {
	return privateKey.ReplaceAllString(body, "<pvt>***</pvt>")
}

// OK reports whether an API-RPC result has status ok.
func OK(result packet.Value) bool {
	return result.Get("status").Text() == "ok"
}

// ErrText returns the panel's error text of a result.
func ErrText(result packet.Value) string {
	return result.Get("errtext").Text()
}
