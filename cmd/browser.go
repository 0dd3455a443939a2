package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// browserCommand is swapped out by tests.
var browserCommand = func(ctx context.Context, target string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		return exec.CommandContext(ctx, "open", target)
	default:
		return exec.CommandContext(ctx, "xdg-open", target)
	}
}

func openBrowser(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := browserCommand(ctx, abs).Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
