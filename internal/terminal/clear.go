// Package terminal provides utilities for terminal operations such as clearing text.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

const defaultWidth = 80

// Width returns the stdout terminal width, or 80 when stdout is not a terminal.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// LineCount returns how many rows textLength characters occupy at the given width.
func LineCount(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	n := (textLength + width - 1) / width
	if n < 1 {
		return 1
	}
	return n
}

// ClearPreviousLines clears a prompt and the answer typed after it.
// The cursor sits on the empty line below the input once Enter was pressed,
// so that line is cleared too.
func ClearPreviousLines(textLength int) {
	lines := LineCount(textLength, Width()) + 1
	for i := 0; i < lines; i++ {
		cursor.StartOfLine()
		cursor.ClearLine()
		if i < lines-1 {
			cursor.Up(1)
		}
	}
}

// ReadSecret prints prompt to stderr and reads a line without echo. When
// stdin is not a terminal the line is read as-is.
func ReadSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !IsInteractive() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
