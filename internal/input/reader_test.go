package input

import (
	"errors"
	"io"
	"strings"
	"testing"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
)

type failingReader struct{}

func (failingReader) ReadString(byte) (string, error) {
	return "", errors.New("bad file descriptor")
}

func TestStringReader_ReadString(t *testing.T) {
	t.Run("multiple inputs", func(t *testing.T) {
		reader := NewStringReader("first\n", "second\n")

		for _, want := range []string{"first\n", "second\n"} {
			got, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("ReadString failed: %v", err)
			}
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		}

		if _, err := reader.ReadString('\n'); err != io.EOF {
			t.Errorf("expected io.EOF after inputs are consumed, got %v", err)
		}
	})

	t.Run("input without delimiter", func(t *testing.T) {
		reader := NewStringReader("partial")
		got, err := reader.ReadString('\n')
		if got != "partial" || err != io.EOF {
			t.Errorf("ReadString() = %q, %v", got, err)
		}
	})
}

func TestReadSecret(t *testing.T) {
	tests := []struct {
		name    string
		reader  Reader
		want    string
		wantErr bool
	}{
		{"line", NewStringReader("a1b2-c3d4\n", "ignored\n"), "a1b2-c3d4", false},
		{"no trailing newline", NewStringReader("a1b2-c3d4"), "a1b2-c3d4", false},
		{"surrounding space", NewStringReader("  a1b2-c3d4 \r\n"), "a1b2-c3d4", false},
		{"empty line", NewStringReader("\n"), "", true},
		{"no input", NewStringReader(), "", true},
		{"read failure", failingReader{}, "", true},
		{"stream", NewReader(strings.NewReader("f00d-cafe\nrest")), "f00d-cafe", false},
		{"stream without newline", NewReader(strings.NewReader("f00d-cafe")), "f00d-cafe", false},
		{"too long", NewStringReader(strings.Repeat("k", maxSecretLen+1)), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSecret(tt.reader)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !perrors.Is(err, perrors.ErrConfigInvalid) {
				t.Errorf("expected config error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadSecret() = %q, want %q", got, tt.want)
			}
		})
	}
}
