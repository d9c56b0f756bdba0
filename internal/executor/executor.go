package executor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
	"github.com/ksyq12/pleskcert/internal/logger"
)

// CommandExecutor is an interface for executing privileged panel utilities
type CommandExecutor interface {
	// Run executes a command and waits for it to finish
	Run(name string, args ...string) error

	// Output executes a command and returns its standard output
	Output(name string, args ...string) (string, error)
}

// SystemExecutor implements CommandExecutor using os/exec
type SystemExecutor struct {
	// TempDir is where captured output is spooled. Empty means os.TempDir.
	TempDir string
}

// NewSystemExecutor creates a new SystemExecutor
func NewSystemExecutor() *SystemExecutor {
	return &SystemExecutor{}
}

// Run executes a command, discarding its output
func (e *SystemExecutor) Run(name string, args ...string) error {
	logger.Debug("exec: %s", commandLine(name, args))
	cmd := exec.Command(name, args...)
	if err := cmd.Run(); err != nil {
		return perrors.APIExecution(name, err)
	}
	return nil
}

// Output executes a command with stdout redirected to a temporary file and
// returns the file content. The file is removed on every path.
func (e *SystemExecutor) Output(name string, args ...string) (string, error) {
	logger.Debug("exec: %s", commandLine(name, args))

	f, err := os.CreateTemp(e.TempDir, "pleskcert-out-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	cmd := exec.Command(name, args...)
	cmd.Stdout = f
	if err := cmd.Run(); err != nil {
		return "", perrors.APIExecution(name, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind output file: %w", err)
	}
	out, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read output file: %w", err)
	}
	return string(out), nil
}

// commandLine renders a command for the debug log with key arguments masked.
func commandLine(name string, args []string) string {
	shown := make([]string, len(args))
	for i, arg := range args {
		if i > 0 && args[i-1] == "-key" {
			shown[i] = "***"
			continue
		}
		shown[i] = arg
	}
	return strings.TrimSpace(name + " " + strings.Join(shown, " "))
}

// MockExecutor is a mock implementation for testing
type MockExecutor struct {
	RunFunc    func(name string, args ...string) error
	OutputFunc func(name string, args ...string) (string, error)
	Calls      []CommandCall
}

// CommandCall records a command execution for verification
type CommandCall struct {
	Name   string
	Args   []string
	Output bool
}

// Run calls the mock function
func (m *MockExecutor) Run(name string, args ...string) error {
	m.Calls = append(m.Calls, CommandCall{Name: name, Args: args})
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return nil
}

// Output calls the mock function
func (m *MockExecutor) Output(name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, CommandCall{Name: name, Args: args, Output: true})
	if m.OutputFunc != nil {
		return m.OutputFunc(name, args...)
	}
	return "", nil
}
