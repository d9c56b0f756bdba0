// Package input reads values piped to pleskcert on stdin, such as the
// API-RPC secret given with --secret-key-stdin.
package input

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
)

// maxSecretLen bounds a secret line. Plesk secrets are UUID-sized.
const maxSecretLen = 4096

// Reader reads delimited input.
type Reader interface {
	ReadString(delim byte) (string, error)
}

// LineReader is a Reader over any stream.
type LineReader struct {
	buf *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *LineReader {
	return &LineReader{buf: bufio.NewReaderSize(r, maxSecretLen)}
}

// NewStdinReader reads from os.Stdin.
func NewStdinReader() *LineReader {
	return NewReader(os.Stdin)
}

func (r *LineReader) ReadString(delim byte) (string, error) {
	return r.buf.ReadString(delim)
}

// ReadSecret reads the first line from r and returns it trimmed. Input
// ending without a newline is accepted.
func ReadSecret(r Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", perrors.Wrap(perrors.ErrCodeConfig, "failed to read secret key", err)
	}
	secret := strings.TrimSpace(line)
	switch {
	case secret == "":
		return "", perrors.Wrap(perrors.ErrCodeConfig, "failed to read secret key", errors.New("empty input"))
	case len(secret) > maxSecretLen:
		return "", perrors.Wrap(perrors.ErrCodeConfig, "failed to read secret key", errors.New("input too long"))
	}
	return secret, nil
}

// StringReader replays fixed inputs, for tests. An input not ending in
// the delimiter is returned together with io.EOF, as bufio does.
type StringReader struct {
	inputs []string
	next   int
}

// NewStringReader creates a reader from strings.
func NewStringReader(inputs ...string) *StringReader {
	return &StringReader{inputs: inputs}
}

func (r *StringReader) ReadString(delim byte) (string, error) {
	if r.next >= len(r.inputs) {
		return "", io.EOF
	}
	s := r.inputs[r.next]
	r.next++
	if !strings.HasSuffix(s, string(delim)) {
		return s, io.EOF
	}
	return s, nil
}
