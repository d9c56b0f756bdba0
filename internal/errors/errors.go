// Package errors provides standardized error types for pleskcert.
//
// The errors package defines the error kinds raised while talking to the
// panel, so callers can tell a missing installation from a failed
// deployment without parsing messages.
//
// # Error Types
//
// PanelError is the primary error type, containing:
//   - Code: Categorizes the error (NOT_INSTALLED, DEPLOYMENT, etc.)
//   - Message: Human-readable error description
//   - Domain: The domain name involved (if applicable)
//   - Err: The underlying wrapped error (if any)
//
// # Sentinel Errors
//
// Every kind has a sentinel for errors.Is checks:
//
//	errors.ErrNotInstalled       // panel version marker missing
//	errors.ErrUnsupportedVersion // panel older than the minimum major version
//	errors.ErrAuth               // domain has no usable hosting / web root
//	errors.ErrDeployment         // panel rejected a certificate operation
//	errors.ErrAPIExecution       // local CLI utility exited non-zero
//	errors.ErrNotSupported       // entry point intentionally unsupported
//
// # Usage
//
// Domain errors carry the panel's own error text unmodified:
//
//	return errors.Deployment("example.com", "Install certificate failure", errtext)
//
// Wrapping an underlying error:
//
//	return errors.Wrap(errors.ErrCodeTransport, "API-RPC request failed", err)
//
// # Error Checking
//
//	if errors.Is(err, errors.ErrDeployment) {
//	    // this domain failed, continue with the others
//	}
//
//	var panelErr *errors.PanelError
//	if errors.As(err, &panelErr) {
//	    fmt.Printf("Error code: %s, Domain: %s\n", panelErr.Code, panelErr.Domain)
//	}
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors for programmatic handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeNotInstalled       ErrorCode = "NOT_INSTALLED"       // Panel not installed
	ErrCodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION" // Panel too old
	ErrCodeAuth               ErrorCode = "AUTH"                // Domain validation cannot proceed
	ErrCodeDeployment         ErrorCode = "DEPLOYMENT"          // Certificate operation rejected
	ErrCodeAPIExecution       ErrorCode = "API_EXECUTION"       // Local CLI utility failed
	ErrCodeNotSupported       ErrorCode = "NOT_SUPPORTED"       // Operation not supported
	ErrCodeTransport          ErrorCode = "TRANSPORT"           // API-RPC request failed
	ErrCodeConfig             ErrorCode = "CONFIG"              // Configuration error
	ErrCodeValidation         ErrorCode = "VALIDATION"          // Input validation failed
)

// PanelError represents a structured error with context about the operation.
type PanelError struct {
	Code    ErrorCode // Error category
	Message string    // Human-readable message
	Domain  string    // Domain name (if applicable)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *PanelError) Error() string {
	if e.Domain != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Domain, e.Message, e.Err)
	}
	if e.Domain != "" {
		return fmt.Sprintf("%s: %s", e.Domain, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for error chain traversal.
func (e *PanelError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
// Comparison is based on error code.
func (e *PanelError) Is(target error) bool {
	t, ok := target.(*PanelError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for common error scenarios.
// Use these with errors.Is() for error checking.
var (
	// ErrNotInstalled indicates the panel installation marker is absent.
	ErrNotInstalled = &PanelError{Code: ErrCodeNotInstalled, Message: "Plesk is not installed"}

	// ErrUnsupportedVersion indicates the installed panel is too old.
	ErrUnsupportedVersion = &PanelError{Code: ErrCodeUnsupportedVersion, Message: "Plesk version is not supported"}

	// ErrAuth indicates a domain cannot be validated.
	ErrAuth = &PanelError{Code: ErrCodeAuth, Message: "domain validation failed"}

	// ErrDeployment indicates the panel rejected a certificate operation.
	ErrDeployment = &PanelError{Code: ErrCodeDeployment, Message: "certificate deployment failed"}

	// ErrAPIExecution indicates a local panel utility exited with an error.
	ErrAPIExecution = &PanelError{Code: ErrCodeAPIExecution, Message: "Plesk utility execution failed"}

	// ErrNotSupported indicates an intentionally unsupported operation.
	ErrNotSupported = &PanelError{Code: ErrCodeNotSupported, Message: "not supported"}

	// ErrTransport indicates the API-RPC request could not be completed.
	ErrTransport = &PanelError{Code: ErrCodeTransport, Message: "API-RPC request failed"}

	// ErrConfigInvalid indicates the configuration is invalid or corrupt.
	ErrConfigInvalid = &PanelError{Code: ErrCodeConfig, Message: "invalid configuration"}

	// ErrInvalidDomain indicates the domain name is not valid.
	ErrInvalidDomain = &PanelError{Code: ErrCodeValidation, Message: "invalid domain"}
)

// NotInstalled creates an error for a missing panel installation.
func NotInstalled(marker string) error {
	return &PanelError{
		Code:    ErrCodeNotInstalled,
		Message: fmt.Sprintf("Plesk is not installed (%s not found)", marker),
	}
}

// UnsupportedVersion creates an error for a panel older than supported.
func UnsupportedVersion(version string) error {
	return &PanelError{
		Code:    ErrCodeUnsupportedVersion,
		Message: fmt.Sprintf("Plesk version is not supported: %s", version),
	}
}

// Auth creates a validation error for a domain.
func Auth(domain, msg string) error {
	return &PanelError{
		Code:    ErrCodeAuth,
		Message: msg,
		Domain:  domain,
	}
}

// Deployment creates a deployment error carrying the panel's error text.
func Deployment(domain, op, errtext string) error {
	return &PanelError{
		Code:    ErrCodeDeployment,
		Message: fmt.Sprintf("%s: %s", op, errtext),
		Domain:  domain,
	}
}

// APIExecution creates an error for a failed local utility.
func APIExecution(command string, err error) error {
	return &PanelError{
		Code:    ErrCodeAPIExecution,
		Message: fmt.Sprintf("command %s failed", command),
		Err:     err,
	}
}

// NotSupported creates an error for an unsupported operation.
func NotSupported(msg string) error {
	return &PanelError{
		Code:    ErrCodeNotSupported,
		Message: msg,
	}
}

// Transport creates an error for a failed API-RPC exchange.
func Transport(msg string, err error) error {
	return &PanelError{
		Code:    ErrCodeTransport,
		Message: msg,
		Err:     err,
	}
}

// Validation creates a validation error with a custom message.
func Validation(msg string) error {
	return &PanelError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// Wrap creates an error with the specified code, message, and underlying error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &PanelError{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// WrapDomain creates an error with domain context and underlying error.
func WrapDomain(code ErrorCode, domain string, err error) error {
	return &PanelError{
		Code:   code,
		Domain: domain,
		Err:    err,
	}
}

// Is reports whether any error in err's chain matches target.
// This is a re-export of errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// This is a re-export of errors.As for convenience.
var As = errors.As
