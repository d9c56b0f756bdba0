package panel

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Endpoint defaults.
const (
	DefaultHost      = "127.0.0.1"
	DefaultHTTPSPort = 8443
	DefaultHTTPPort  = 8880
	AgentPath        = "/enterprise/control/agent.php"
)

var (
	listenSSL   = regexp.MustCompile(`(?m)^\s*listen\s+(?:\S*:)?(\d+)\s+[^;\n]*\bssl\b`)
	listenPlain = regexp.MustCompile(`(?m)^\s*listen\s+(?:\S*:)?(\d+)\b`)
)

// Endpoint is the resolved agent location.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// URL returns the agent URL.
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s:%d%s", e.Scheme, e.Host, e.Port, AgentPath)
}

// ScanListen extracts the admin scheme and port from sw-cp-server config
// content. A "listen <port> ssl" directive wins over a plain one.
func ScanListen(conf string) (scheme string, port int, ok bool) {
	if m := listenSSL.FindStringSubmatch(conf); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			return "https", p, true
		}
	}
	if m := listenPlain.FindStringSubmatch(conf); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil {
			return "http", p, true
		}
	}
	return "", 0, false
}

// resolveEndpoint applies explicit options, then the config file, then
// the defaults.
func resolveEndpoint(host, scheme string, port int, confPath string) Endpoint {
	if host == "" {
		host = DefaultHost
	}
	e := Endpoint{Scheme: scheme, Host: host, Port: port}

	switch {
	case scheme != "" && port != 0:
		return e
	case port != 0:
		e.Scheme = "http"
		if port == DefaultHTTPSPort {
			e.Scheme = "https"
		}
		return e
	case scheme != "":
		e.Port = DefaultHTTPSPort
		if scheme == "http" {
			e.Port = DefaultHTTPPort
		}
		return e
	}

	if confPath != "" {
		if data, err := os.ReadFile(confPath); err == nil {
			if s, p, ok := ScanListen(string(data)); ok {
				e.Scheme, e.Port = s, p
				return e
			}
		}
	}
	e.Scheme, e.Port = "https", DefaultHTTPSPort
	return e
}
