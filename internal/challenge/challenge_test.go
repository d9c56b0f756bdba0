package challenge

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/panel"
	"github.com/ksyq12/pleskcert/internal/platform"
)

const (
	webRoot  = "/var/www/vhosts/example.com/httpdocs"
	wellKnow = ".well-known/acme-challenge"
)

// fakeChallenge is a canned HTTP-01 challenge.
type fakeChallenge struct {
	domain string
	token  string
	err    error
}

func (c *fakeChallenge) Domain() string   { return c.domain }
func (c *fakeChallenge) RootPath() string { return wellKnow }
func (c *fakeChallenge) Token() string    { return c.token }
func (c *fakeChallenge) ResponseAndValidation() (string, string, error) {
	return "response-" + c.token, c.token + ".thumbprint", c.err
}

// remoteFS emulates filemng against an in-memory tree.
type remoteFS struct {
	dirs   map[string]bool
	files  map[string]string
	ops    []string
	failOn string
	// failPath fails copies whose destination ends with it.
	failPath string
}

func newRemoteFS(dirs ...string) *remoteFS {
	fs := &remoteFS{dirs: map[string]bool{}, files: map[string]string{}}
	for _, d := range dirs {
		fs.mkdirAll(d)
	}
	return fs
}

func (fs *remoteFS) mkdirAll(dir string) {
	for d := dir; d != "/" && d != "." && d != "C:"; d = path.Dir(d) {
		fs.dirs[d] = true
	}
}

func (fs *remoteFS) children(dir string) []string {
	var out []string
	for d := range fs.dirs {
		if path.Dir(d) == dir {
			out = append(out, path.Base(d))
		}
	}
	for f := range fs.files {
		if path.Dir(f) == dir {
			out = append(out, path.Base(f))
		}
	}
	sort.Strings(out)
	return out
}

// args strips the extension runner prefix and the user.
func (fs *remoteFS) args(name string, argv []string) []string {
	if strings.HasSuffix(name, "extension.exe") {
		argv = argv[3:]
	}
	return argv[1:]
}

func (fs *remoteFS) run(name string, argv ...string) error {
	args := fs.args(name, argv)
	fs.ops = append(fs.ops, strings.Join(args, " "))
	if fs.failOn != "" && args[0] == fs.failOn {
		return perrors.APIExecution("filemng", errors.New("exit status 1"))
	}
	switch args[0] {
	case "mkdir":
		fs.mkdirAll(args[1])
	case "cp2perm", "cp":
		if fs.failPath != "" && strings.HasSuffix(args[2], fs.failPath) {
			return perrors.APIExecution("filemng", errors.New("exit status 1"))
		}
		content, ok := fs.files[args[1]]
		if !ok {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			content = string(data)
		}
		if !fs.dirs[path.Dir(args[2])] && !strings.HasPrefix(args[2], "C:/Windows/Temp") {
			return fmt.Errorf("no such directory: %s", path.Dir(args[2]))
		}
		fs.files[args[2]] = content
	case "rm":
		delete(fs.files, args[1])
	case "rmdir":
		if len(fs.children(args[1])) > 0 {
			return fmt.Errorf("directory not empty: %s", args[1])
		}
		delete(fs.dirs, args[1])
	default:
		return fmt.Errorf("unexpected filemng call: %v", args)
	}
	return nil
}

func (fs *remoteFS) output(name string, argv ...string) (string, error) {
	args := fs.args(name, argv)
	fs.ops = append(fs.ops, strings.Join(args, " "))
	switch args[0] {
	case "file_exists":
		_, isFile := fs.files[args[1]]
		if isFile || fs.dirs[args[1]] {
			return "0\n", nil
		}
		return "1\n", nil
	case "list":
		var b strings.Builder
		b.WriteString(".\tdir\t4096\n..\tdir\t4096\n")
		for _, c := range fs.children(args[2]) {
			fmt.Fprintf(&b, "%s\tfile\t12\n", c)
		}
		return b.String(), nil
	case "--temp-file":
		return "C:/Windows/Temp/stage\n", nil
	}
	return "", fmt.Errorf("unexpected filemng call: %v", args)
}

func newTestAPI(t *testing.T, fs *remoteFS, responses ...string) *panel.MockAPI {
	t.Helper()
	var xml []string
	for _, r := range responses {
		data, err := os.ReadFile(filepath.Join("testdata", r))
		if err != nil {
			t.Fatal(err)
		}
		xml = append(xml, string(data))
	}
	api := panel.NewMockAPI(xml...)
	api.RunFunc = fs.run
	api.OutputFunc = fs.output
	return api
}

func newTestHandler(t *testing.T, api panel.API) *Handler {
	h := NewHandler("example.com", api)
	h.TempDir = t.TempDir()
	return h
}

func TestResolveDomainProps(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newTestAPI(t, newRemoteFS(), "site_get_ok.xml")
		h := newTestHandler(t, api)

		if err := h.ResolveDomainProps(); err != nil {
			t.Fatalf("ResolveDomainProps failed: %v", err)
		}
		if h.WebRoot() != webRoot {
			t.Errorf("WebRoot() = %s", h.WebRoot())
		}
		if h.FTPLogin() != "web1" {
			t.Errorf("FTPLogin() = %s", h.FTPLogin())
		}
		if h.State() != PropsResolved {
			t.Errorf("State() = %s", h.State())
		}

		want := `<?xml version="1.0" ?><packet><site><get><filter><name>example.com</name></filter><dataset><hosting/></dataset></get></site></packet>`
		if got := mustEncode(t, api); got != want {
			t.Errorf("request = %s\nwant %s", got, want)
		}
	})

	tests := []struct {
		name     string
		response string
		contains string
	}{
		{"error status", "site_get_error.xml", "Site does not exist"},
		{"no virtual hosting", "site_get_no_hosting.xml", "no hosting configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, newTestAPI(t, newRemoteFS(), tt.response))
			err := h.ResolveDomainProps()
			if !perrors.Is(err, perrors.ErrAuth) {
				t.Fatalf("expected auth error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should contain %q", err, tt.contains)
			}
			if h.State() != Uninitialized {
				t.Errorf("State() = %s", h.State())
			}
		})
	}
}

func TestPerform(t *testing.T) {
	fs := newRemoteFS(webRoot)
	h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))

	response, err := h.Perform(&fakeChallenge{domain: "example.com", token: "tok1"})
	if err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	if response != "response-tok1" {
		t.Errorf("response = %s", response)
	}
	if h.State() != FilesPlaced {
		t.Errorf("State() = %s", h.State())
	}

	dir := path.Join(webRoot, wellKnow)
	if h.ValidationDir() != dir {
		t.Errorf("ValidationDir() = %s", h.ValidationDir())
	}
	if got := fs.files[path.Join(dir, "tok1")]; got != "tok1.thumbprint" {
		t.Errorf("token content = %q", got)
	}
	if got := fs.files[path.Join(dir, ".htaccess")]; !strings.Contains(got, "RewriteEngine off") {
		t.Errorf(".htaccess content = %q", got)
	}
	if fs.ops[1] != "mkdir "+dir+" -p" {
		t.Errorf("expected mkdir after existence check, got %v", fs.ops)
	}

	entries, _ := os.ReadDir(h.TempDir)
	if len(entries) != 0 {
		t.Errorf("staging files left behind: %d", len(entries))
	}
}

func TestPerform_ExistingDirectorySkipsMkdir(t *testing.T) {
	fs := newRemoteFS(path.Join(webRoot, wellKnow))
	h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))

	if _, err := h.Perform(&fakeChallenge{domain: "example.com", token: "tok1"}); err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	for _, op := range fs.ops {
		if strings.HasPrefix(op, "mkdir") {
			t.Errorf("unexpected mkdir: %s", op)
		}
	}
}

func TestPerform_Errors(t *testing.T) {
	t.Run("auth failure", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_error.xml"))
		if _, err := h.Perform(&fakeChallenge{token: "tok1"}); !perrors.Is(err, perrors.ErrAuth) {
			t.Errorf("expected auth error, got %v", err)
		}
		if len(fs.ops) != 0 {
			t.Errorf("no files should be touched, got %v", fs.ops)
		}
	})

	t.Run("copy failure", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		fs.failOn = "cp2perm"
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		if _, err := h.Perform(&fakeChallenge{token: "tok1"}); !perrors.Is(err, perrors.ErrAPIExecution) {
			t.Errorf("expected API execution error, got %v", err)
		}
		if h.State() == FilesPlaced {
			t.Error("state should not advance on failure")
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		_, err := h.Perform(&fakeChallenge{token: "tok1", err: errors.New("bad key")})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCleanup(t *testing.T) {
	t.Run("removes files and empty directories", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		ch := &fakeChallenge{domain: "example.com", token: "tok1"}
		if _, err := h.Perform(ch); err != nil {
			t.Fatal(err)
		}

		h.Cleanup(ch)

		if len(fs.files) != 0 {
			t.Errorf("files left behind: %v", fs.files)
		}
		if fs.dirs[path.Join(webRoot, ".well-known")] {
			t.Error(".well-known should be removed")
		}
		if !fs.dirs[webRoot] {
			t.Error("web root must never be removed")
		}
		if h.State() != Cleaned {
			t.Errorf("State() = %s", h.State())
		}
	})

	t.Run("stops at non-empty directory", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		fs.files[path.Join(webRoot, ".well-known", "security.txt")] = "contact"
		fs.mkdirAll(path.Join(webRoot, ".well-known"))
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		ch := &fakeChallenge{domain: "example.com", token: "tok1"}
		if _, err := h.Perform(ch); err != nil {
			t.Fatal(err)
		}

		h.Cleanup(ch)

		if fs.dirs[path.Join(webRoot, wellKnow)] {
			t.Error("acme-challenge should be removed")
		}
		if !fs.dirs[path.Join(webRoot, ".well-known")] {
			t.Error(".well-known holds other files and must stay")
		}
		for _, op := range fs.ops {
			if op == "rmdir "+webRoot {
				t.Error("web root must never be removed")
			}
		}
	})

	t.Run("no-op before perform", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs))
		h.Cleanup(&fakeChallenge{token: "tok1"})
		if len(fs.ops) != 0 {
			t.Errorf("expected no calls, got %v", fs.ops)
		}
	})

	t.Run("after token copy failure", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		fs.failPath = "/tok1"
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		ch := &fakeChallenge{domain: "example.com", token: "tok1"}
		if _, err := h.Perform(ch); err == nil {
			t.Fatal("expected token copy to fail")
		}
		if _, ok := fs.files[path.Join(webRoot, wellKnow, ".htaccess")]; !ok {
			t.Fatal("rule file should have been written before the token")
		}

		h.Cleanup(ch)

		if len(fs.files) != 0 {
			t.Errorf("files left behind: %v", fs.files)
		}
		if fs.dirs[path.Join(webRoot, ".well-known")] {
			t.Error(".well-known should be removed")
		}
		if !fs.dirs[webRoot] {
			t.Error("web root must never be removed")
		}
		if h.State() != Cleaned {
			t.Errorf("State() = %s", h.State())
		}
	})

	t.Run("twice", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		ch := &fakeChallenge{domain: "example.com", token: "tok1"}
		if _, err := h.Perform(ch); err != nil {
			t.Fatal(err)
		}
		h.Cleanup(ch)
		calls := len(fs.ops)

		h.Cleanup(ch)
		if len(fs.ops) != calls {
			t.Errorf("second cleanup made calls: %v", fs.ops[calls:])
		}
	})

	t.Run("errors are swallowed", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		ch := &fakeChallenge{token: "tok1"}
		if _, err := h.Perform(ch); err != nil {
			t.Fatal(err)
		}
		fs.failOn = "rm"

		h.Cleanup(ch)

		if !fs.dirs[path.Join(webRoot, wellKnow)] {
			t.Error("non-empty directory should survive failed removals")
		}
	})

	t.Run("shared directory waits for last token", func(t *testing.T) {
		fs := newRemoteFS(webRoot)
		h := newTestHandler(t, newTestAPI(t, fs, "site_get_ok.xml"))
		bare := &fakeChallenge{domain: "example.com", token: "tok1"}
		www := &fakeChallenge{domain: "www.example.com", token: "tok2"}
		for _, ch := range []*fakeChallenge{bare, www} {
			if _, err := h.Perform(ch); err != nil {
				t.Fatal(err)
			}
		}

		h.Cleanup(bare)
		dir := path.Join(webRoot, wellKnow)
		if _, ok := fs.files[path.Join(dir, ".htaccess")]; !ok {
			t.Error("rule file must stay while a token is still placed")
		}
		if _, ok := fs.files[path.Join(dir, "tok2")]; !ok {
			t.Error("other token must stay")
		}

		h.Cleanup(www)
		if len(fs.files) != 0 {
			t.Errorf("files left behind: %v", fs.files)
		}
	})
}

func TestWindowsTarget(t *testing.T) {
	root := "C:/Inetpub/vhosts/example.com/httpdocs"
	fs := newRemoteFS(root)
	api := newTestAPI(t, fs, "site_get_windows.xml")
	api.TargetValue = platform.NewWindowsTarget(platform.DefaultWindowsRoot)
	h := newTestHandler(t, api)
	ch := &fakeChallenge{domain: "example.com", token: "tok1"}

	if _, err := h.Perform(ch); err != nil {
		t.Fatalf("Perform failed: %v", err)
	}
	if h.WebRoot() != root {
		t.Errorf("WebRoot() = %s", h.WebRoot())
	}
	dir := path.Join(root, wellKnow)
	if got := fs.files[path.Join(dir, "web.config")]; !strings.Contains(got, "mimeMap") {
		t.Errorf("web.config content = %q", got)
	}
	if _, ok := fs.files[path.Join(dir, ".htaccess")]; ok {
		t.Error(".htaccess should not be written on windows")
	}

	h.Cleanup(ch)
	if len(fs.files) != 0 {
		t.Errorf("files left behind: %v", fs.files)
	}
	if fs.dirs[path.Join(root, ".well-known")] || !fs.dirs[root] {
		t.Errorf("unexpected directories after cleanup: %v", fs.dirs)
	}
}

func TestIsSubPath(t *testing.T) {
	tmp := t.TempDir()
	realDir := filepath.Join(tmp, "real")
	if err := os.MkdirAll(filepath.Join(realDir, "httpdocs", "a"), 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(tmp, "link")
	symlinked := os.Symlink(realDir, link) == nil

	tests := []struct {
		name   string
		child  string
		parent string
		want   bool
		symlnk bool
	}{
		{"strict descendant", "/var/www/a/b", "/var/www", true, false},
		{"same directory", "/var/www", "/var/www", false, false},
		{"trailing slash", "/var/www/", "/var/www", false, false},
		{"sibling prefix", "/var/wwwx", "/var/www", false, false},
		{"parent", "/var", "/var/www", false, false},
		{"dot segments", "/var/www/a/..", "/var/www", false, false},
		{"root parent", "/var", "/", true, false},
		{"windows lexical", "C:/Inetpub/vhosts/a", "C:/Inetpub/vhosts", true, false},
		{"through symlink", filepath.Join(link, "httpdocs", "a"), filepath.Join(realDir, "httpdocs"), true, true},
		{"symlink to itself", filepath.Join(link, "httpdocs"), filepath.Join(realDir, "httpdocs"), false, true},
		{"missing below symlink", filepath.Join(link, "httpdocs", "new", "dir"), filepath.Join(realDir, "httpdocs"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.symlnk && !symlinked {
				t.Skip("symlinks not supported")
			}
			if got := isSubPath(tt.child, tt.parent); got != tt.want {
				t.Errorf("isSubPath(%s, %s) = %v, want %v", tt.child, tt.parent, got, tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	api := panel.NewMockAPI()
	api.OutputFunc = func(name string, args ...string) (string, error) {
		return ".\tdir\n..\tdir\nsecurity.txt\tfile\t120\r\n\nsub\tdir\n", nil
	}
	h := NewHandler("example.com", api)
	entries, err := h.list("/var/www")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(entries, ",") != "security.txt,sub" {
		t.Errorf("list() = %v", entries)
	}
}

func mustEncode(t *testing.T, api *panel.MockAPI) string {
	t.Helper()
	if len(api.Requests) == 0 {
		t.Fatal("no request recorded")
	}
	return packet.MustEncode(api.Requests[0])
}
