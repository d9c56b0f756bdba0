// Package output prints user-facing results to stdout: colored status
// lines, aligned tables and JSON for --json.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"

	perrors "github.com/ksyq12/pleskcert/internal/errors"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	keyColor     = color.New(color.Bold)
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects all output. A nil writer restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

// JSON outputs data as indented JSON
func JSON(data interface{}) error {
	encoder := json.NewEncoder(writer())
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Table outputs rows aligned under headers. Columns beyond the headers
// are dropped. Widths count runes so Unicode domain names line up.
func Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	w := writer()

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && utf8.RuneCountInString(cell) > widths[i] {
				widths[i] = utf8.RuneCountInString(cell)
			}
		}
	}

	line := func(cells []string) {
		padded := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded[i] = cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

// KeyValues prints "key: value" lines with the values aligned.
func KeyValues(pairs [][2]string) {
	w := writer()
	width := 0
	for _, p := range pairs {
		if n := utf8.RuneCountInString(p[0]); n > width {
			width = n
		}
	}
	for _, p := range pairs {
		pad := strings.Repeat(" ", width-utf8.RuneCountInString(p[0]))
		_, _ = keyColor.Fprintf(w, "%s:", p[0])
		fmt.Fprintf(w, "%s %s\n", pad, p[1])
	}
}

// Success prints a success message
func Success(format string, args ...interface{}) {
	_, _ = successColor.Fprintf(writer(), "✓ "+format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	_, _ = errorColor.Fprintf(writer(), "✗ "+format+"\n", args...)
}

// Failure prints err, prefixed with its kind when it is a panel error.
func Failure(err error) {
	if err == nil {
		return
	}
	var pe *perrors.PanelError
	if perrors.As(err, &pe) {
		Error("[%s] %v", pe.Code, err)
		return
	}
	Error("%v", err)
}

// Warn prints a warning message
func Warn(format string, args ...interface{}) {
	_, _ = warnColor.Fprintf(writer(), "! "+format+"\n", args...)
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	_, _ = infoColor.Fprintf(writer(), "→ "+format+"\n", args...)
}

// Print prints a plain message
func Print(format string, args ...interface{}) {
	fmt.Fprintf(writer(), format+"\n", args...)
}
