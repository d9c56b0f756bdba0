// Package challenge places and removes HTTP validation files on a Plesk
// domain.
//
// A Handler serves one domain. It looks up the domain's web root and FTP
// login over API-RPC, then writes the validation token and a server-rule
// file below the web root with the filemng utility, acting as the FTP user.
// Cleanup reverses the placement and removes the directories it left
// empty, never touching the web root itself.
package challenge

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/logger"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/template"
)

// Challenge is an HTTP validation challenge handed over by the ACME client.
type Challenge interface {
	// Domain returns the domain being validated.
	Domain() string
	// RootPath returns the URI path of the token directory, relative to
	// the web root (".well-known/acme-challenge").
	RootPath() string
	// Token returns the token file name.
	Token() string
	// ResponseAndValidation returns the challenge response and the content
	// to serve from the token file.
	ResponseAndValidation() (response, validation string, err error)
}

// State is the lifecycle position of a Handler.
type State int

const (
	Uninitialized State = iota
	PropsResolved
	FilesPlaced
	Cleaned
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case PropsResolved:
		return "props-resolved"
	case FilesPlaced:
		return "files-placed"
	case Cleaned:
		return "cleaned"
	default:
		return "unknown"
	}
}

// Handler performs HTTP validation for one domain.
type Handler struct {
	domain string
	api    panel.API

	// TempDir holds local staging files. Empty means os.TempDir.
	TempDir string

	state      State
	wwwRoot    string
	ftpLogin   string
	verifyPath string
	placed     map[string]bool
	// writing is set once remote writes may have happened and cleared by
	// a complete cleanup.
	writing bool
}

// NewHandler creates a handler for domain.
func NewHandler(domain string, api panel.API) *Handler {
	return &Handler{
		domain: domain,
		api:    api,
		placed: make(map[string]bool),
	}
}

// Domain returns the domain served by the handler.
func (h *Handler) Domain() string { return h.domain }

// State returns the current lifecycle state.
func (h *Handler) State() State { return h.state }

// WebRoot returns the resolved document root.
func (h *Handler) WebRoot() string { return h.wwwRoot }

// FTPLogin returns the resolved file owner.
func (h *Handler) FTPLogin() string { return h.ftpLogin }

// ValidationDir returns the directory holding the token files.
func (h *Handler) ValidationDir() string { return h.verifyPath }

// ResolveDomainProps reads the web root and FTP login of the domain.
func (h *Handler) ResolveDomainProps() error {
	req := packet.Obj("packet", packet.Obj("site", packet.Obj("get", packet.List(
		packet.Obj("filter", packet.Obj("name", packet.Text(h.domain))),
		packet.Obj("dataset", packet.Obj("hosting", packet.Empty())),
	))))
	resp, err := h.api.Request(req)
	if err != nil {
		return err
	}

	result := first(resp.Get("packet", "site", "get", "result"))
	if !panel.OK(result) {
		return perrors.Auth(h.domain, "Site get failure: "+panel.ErrText(result))
	}
	vrtHst := result.Get("data", "hosting", "vrt_hst")
	if vrtHst.IsEmpty() {
		return perrors.Auth(h.domain, "Site get failure: no hosting configured")
	}

	props := make(map[string]string)
	for _, p := range vrtHst.Get("property").Items() {
		props[p.Get("name").Text()] = p.Get("value").Text()
	}
	if props["www_root"] == "" || props["ftp_login"] == "" {
		return perrors.Auth(h.domain, "Site get failure: www_root or ftp_login missing")
	}

	target := h.api.Target()
	h.wwwRoot = target.Clean(props["www_root"])
	h.ftpLogin = props["ftp_login"]
	h.state = PropsResolved
	logger.DebugFields("Resolved hosting", map[string]interface{}{
		"domain":    h.domain,
		"www_root":  h.wwwRoot,
		"ftp_login": h.ftpLogin,
	})
	return nil
}

// Perform places the validation files and returns the challenge response.
func (h *Handler) Perform(ch Challenge) (string, error) {
	if h.state == Uninitialized {
		if err := h.ResolveDomainProps(); err != nil {
			return "", err
		}
	}

	response, validation, err := ch.ResponseAndValidation()
	if err != nil {
		return "", perrors.WrapDomain(perrors.ErrCodeAuth, h.domain, err)
	}

	target := h.api.Target()
	h.verifyPath = target.Clean(path.Join(h.wwwRoot, ch.RootPath()))

	rule, content, err := target.ServerRule()
	if err != nil {
		return "", err
	}
	h.writing = true
	if !h.exists(h.verifyPath) {
		if err := h.filemng("mkdir", h.verifyPath, "-p"); err != nil {
			return "", err
		}
	}
	if err := h.putFile(path.Join(h.verifyPath, rule), content); err != nil {
		return "", err
	}
	if err := h.putFile(path.Join(h.verifyPath, ch.Token()), validation); err != nil {
		return "", err
	}

	h.placed[ch.Token()] = true
	h.state = FilesPlaced
	return response, nil
}

// Cleanup removes the files placed for ch and the directories left empty,
// including what a failed Perform left behind. Rule files and directories
// stay while other tokens are placed. Failures are logged and never
// returned.
func (h *Handler) Cleanup(ch Challenge) {
	if !h.writing {
		return
	}
	delete(h.placed, ch.Token())

	h.removeFile(path.Join(h.verifyPath, ch.Token()))
	if len(h.placed) > 0 {
		return
	}
	for _, rule := range template.Available() {
		h.removeFile(path.Join(h.verifyPath, rule))
	}
	h.removeEmptyDirs()
	h.writing = false
	h.state = Cleaned
}

func (h *Handler) removeFile(p string) {
	if !h.exists(p) {
		return
	}
	if err := h.filemng("rm", p); err != nil {
		logger.Debug("Cleanup of %s failed: %v", p, err)
	}
}

// removeEmptyDirs climbs from the validation directory toward the web
// root, stopping at the first directory that is not empty.
func (h *Handler) removeEmptyDirs() {
	dir := h.verifyPath
	for isSubPath(dir, h.wwwRoot) {
		if h.exists(dir) {
			entries, err := h.list(dir)
			if err != nil {
				logger.Debug("Cleanup listing of %s failed: %v", dir, err)
				return
			}
			if len(entries) > 0 {
				return
			}
			if err := h.filemng("rmdir", dir); err != nil {
				logger.Debug("Cleanup of %s failed: %v", dir, err)
				return
			}
		}
		dir = path.Dir(dir)
	}
}

// putFile copies content to the remote path through a local temp file.
func (h *Handler) putFile(dst, content string) error {
	tmp, err := os.CreateTemp(h.TempDir, "pleskcert-*")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write staging file: %w", err)
	}
	return h.api.Target().CopyIntoPlace(h.api, h.ftpLogin, tmp.Name(), dst)
}

func (h *Handler) filemng(args ...string) error {
	name, argv := h.api.Target().FileManager(h.ftpLogin, args...)
	return h.api.Run(name, argv...)
}

// exists asks filemng whether p exists; "0" means it does.
func (h *Handler) exists(p string) bool {
	name, argv := h.api.Target().FileManager(h.ftpLogin, "file_exists", p)
	out, err := h.api.Output(name, argv...)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "0"
}

// list returns the entry names of dir, without "." and "..".
func (h *Handler) list(dir string) ([]string, error) {
	name, argv := h.api.Target().FileManager(h.ftpLogin, "list", "both", dir)
	out, err := h.api.Output(name, argv...)
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		entry := strings.SplitN(line, "\t", 2)[0]
		if entry == "." || entry == ".." || entry == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// isSubPath reports whether child is strictly below parent after symlink
// resolution. Paths that cannot be resolved locally are compared lexically.
func isSubPath(child, parent string) bool {
	child = canonical(child)
	parent = canonical(parent)
	if child == parent {
		return false
	}
	if parent == "/" {
		return strings.HasPrefix(child, "/")
	}
	return strings.HasPrefix(child, parent+"/")
}

// canonical resolves symlinks in the longest existing prefix of p.
func canonical(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	rest := ""
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return path.Join(filepath.ToSlash(resolved), rest)
		}
		parent := path.Dir(cur)
		if parent == cur || parent == "." {
			return p
		}
		rest = path.Join(path.Base(cur), rest)
		cur = parent
	}
}

// first returns the first item of a possibly repeated result.
func first(v packet.Value) packet.Value {
	items := v.Items()
	if len(items) == 0 {
		return packet.Value{}
	}
	return items[0]
}
