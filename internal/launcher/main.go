package launcher

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// Main runs a launcher for subcommand with the process arguments and exits
// the process with the child's exit code. It is the whole body of each
// launcher's main function.
func Main(subcommand string) {
	os.Exit(run(subcommand, os.Args[1:]))
}

func run(subcommand string, args []string) int {
	// The child receives the interrupt too; the launcher only waits for it.
	signal.Ignore(os.Interrupt)

	l := &Launcher{
		Subcommand: subcommand,
		Args:       args,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	code, err := l.Run(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if ShouldPause(os.Stdin) {
		if err := Pause(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return code
}
