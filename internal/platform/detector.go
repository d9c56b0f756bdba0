// Package platform describes the panel installation layout and the
// operations that differ between POSIX and Windows panel targets.
package platform

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
)

// Target names accepted by Select.
const (
	POSIX   = "posix"
	Windows = "windows"
)

// Default installation roots.
const (
	DefaultPOSIXRoot   = "/usr/local/psa"
	DefaultWindowsRoot = "C:/Program Files (x86)/Plesk"
)

// Paths contains the installation paths of a panel target.
type Paths struct {
	Root    string // installation root
	CLI     string // <root>/bin: secret_key, extension.exe
	Bin     string // <root>/admin/bin: filemng, certmng
	Version string // installation/version marker file
	// CPServerConf is the admin web server config scanned for listen
	// directives. Empty when the target has none.
	CPServerConf string
}

// NewPaths derives the installation paths below root.
func NewPaths(root, cpServerConf string) Paths {
	root = strings.TrimRight(strings.ReplaceAll(root, `\`, "/"), "/")
	return Paths{
		Root:         root,
		CLI:          path.Join(root, "bin"),
		Bin:          path.Join(root, "admin", "bin"),
		Version:      path.Join(root, "version"),
		CPServerConf: cpServerConf,
	}
}

// Installed reports whether the version marker exists.
func (p Paths) Installed() bool {
	return pathExists(p.Version)
}

// Select returns the target with the given name. An empty name picks the
// target matching the running OS. An empty root keeps the target default.
func Select(name, root string) (Target, error) {
	if name == "" {
		name = Detect()
	}
	switch strings.ToLower(name) {
	case POSIX, "linux", "unix":
		if root == "" {
			root = DefaultPOSIXRoot
		}
		return NewPOSIXTarget(root), nil
	case Windows, "win32":
		if root == "" {
			root = DefaultWindowsRoot
		}
		return NewWindowsTarget(root), nil
	default:
		return nil, fmt.Errorf("unknown target: %s (available: %s, %s)", name, POSIX, Windows)
	}
}

// Detect returns the target name for the running OS.
func Detect() string {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return POSIX
}

// pathExists checks if a path exists on the filesystem.
func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Platform returns a string describing the current platform.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
