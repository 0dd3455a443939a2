// Package launcher implements the thin wrappers that forward their
// arguments to a sibling confluencectl binary.
//
// A launcher never looks at its arguments. It prepends its own directory to
// the child's search path, runs <dir>/confluencectl <subcommand> args...,
// waits, optionally pauses for a keypress and exits with the child's code.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

const (
	// DefaultProgram is the sibling binary launchers run.
	DefaultProgram = "confluencectl"
	// DefaultPathVar is the search path variable the launcher directory is
	// prepended to.
	DefaultPathVar = "PATH"
	// NoPauseEnv disables the closing keypress prompt when set.
	NoPauseEnv = "CONFLUENCECTL_NO_PAUSE"
	// PausePrompt is printed before waiting for a key.
	PausePrompt = "Press any key to continue . . . "

	startFailureCode = 1
	// signalExitBase follows the shell convention: a child killed by signal N
	// is reported as 128+N.
	signalExitBase = 128
)

// Launcher runs one forwarded invocation.
type Launcher struct {
	// Dir is the launcher directory. Empty means the directory of the
	// running executable.
	Dir        string
	Program    string
	Subcommand string
	Args       []string
	PathVar    string
	// Env is the base child environment. Nil means os.Environ().
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExecutableDir returns the directory of the running executable with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// ProgramPath returns the absolute path of the sibling program.
func (l *Launcher) ProgramPath() (string, error) {
	dir, err := l.dir()
	if err != nil {
		return "", err
	}
	program := l.Program
	if program == "" {
		program = DefaultProgram
	}
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(program), ".exe") {
		program += ".exe"
	}
	return filepath.Join(dir, program), nil
}

// Command builds the child process without starting it. The argument list
// is the subcommand followed by l.Args exactly as given.
func (l *Launcher) Command(ctx context.Context) (*exec.Cmd, error) {
	dir, err := l.dir()
	if err != nil {
		return nil, err
	}
	program, err := l.ProgramPath()
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(l.Args)+1)
	if l.Subcommand != "" {
		args = append(args, l.Subcommand)
	}
	args = append(args, l.Args...)

	env := l.Env
	if env == nil {
		env = os.Environ()
	}
	pathVar := l.PathVar
	if pathVar == "" {
		pathVar = DefaultPathVar
	}

	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Env = PrependPath(env, pathVar, dir)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	return cmd, nil
}

// Run starts the child and waits for it. The returned code is the child's
// exit code, or 128+N when the child was killed by signal N. When the child
// cannot be started the code is 1 and the error says why.
func (l *Launcher) Run(ctx context.Context) (int, error) {
	cmd, err := l.Command(ctx)
	if err != nil {
		return startFailureCode, err
	}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitCode(exitErr), nil
		}
		return startFailureCode, fmt.Errorf("run %s: %w", cmd.Path, err)
	}
	return 0, nil
}

// exitCode maps a child's termination to a launcher exit status. Signal
// deaths become 128+N; any other code that is not a real exit status becomes 1.
func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return signalExitBase + int(ws.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return startFailureCode
}

func (l *Launcher) dir() (string, error) {
	if l.Dir != "" {
		return filepath.Abs(l.Dir)
	}
	return ExecutableDir()
}

// PrependPath returns a copy of env with dir placed first in the list
// variable name. Any existing entries are kept after it. Variable names
// compare case-insensitively on Windows, where the system spells it "Path".
func PrependPath(env []string, name, dir string) []string {
	out := make([]string, 0, len(env)+1)
	value := dir
	found := false
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if ok && sameVar(k, name) {
			if !found && v != "" {
				value = dir + string(os.PathListSeparator) + v
			}
			if !found {
				name = k
			}
			found = true
			continue
		}
		out = append(out, kv)
	}
	return append(out, name+"="+value)
}

func sameVar(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
