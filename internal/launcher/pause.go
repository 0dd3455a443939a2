package launcher

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ShouldPause reports whether the closing prompt should be shown: stdin
// must be a terminal and NoPauseEnv must be unset.
func ShouldPause(stdin *os.File) bool {
	if os.Getenv(NoPauseEnv) != "" {
		return false
	}
	return stdin != nil && term.IsTerminal(int(stdin.Fd()))
}

// Pause prints PausePrompt to out and waits for a single key on stdin.
func Pause(stdin *os.File, out io.Writer) error {
	if _, err := fmt.Fprint(out, PausePrompt); err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}
	defer fmt.Fprintln(out)

	fd := int(stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		// Fall back to line-buffered input.
		_, err = stdin.Read(make([]byte, 1))
		return readErr(err)
	}
	defer term.Restore(fd, state) //nolint:errcheck // best effort terminal restore

	_, err = stdin.Read(make([]byte, 1))
	return readErr(err)
}

func readErr(err error) error {
	if err == nil || err == io.EOF {
		return nil
	}
	return fmt.Errorf("read key: %w", err)
}
