package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/ctxlog"
)

type globalOptions struct {
	profile   string
	logLevel  string
	logFormat string
}

func newGlobalOptions() *globalOptions {
	return &globalOptions{
		profile:   "default",
		logLevel:  "info",
		logFormat: "text",
	}
}

func newRootCmd(globals *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "confluencectl",
		Short:         "Publish Obsidian notes to Confluence Data Center/Server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger := ctxlog.New(globals.logLevel, globals.logFormat, cmd.ErrOrStderr())
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&globals.profile, "profile", globals.profile, "Auth profile to use")
	flags.StringVar(&globals.logLevel, "log-level", globals.logLevel, "Log level: debug|info|warn|error")
	flags.StringVar(&globals.logFormat, "log-format", globals.logFormat, "Log format: text|json")

	cmd.AddCommand(newAuthCmd(globals))
	cmd.AddCommand(newUploadCmd(globals))
	cmd.AddCommand(newWorkflowCmd(globals))
	cmd.AddCommand(newConvertCmd(globals))
	cmd.AddCommand(newSpacefillCmd(globals))
	cmd.AddCommand(newXMLCmd(globals))
	cmd.AddCommand(newPagesCmd(globals))

	return cmd
}

// Execute runs the command hierarchy. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(newGlobalOptions())
	rootCmd.SetErr(os.Stderr)
	rootCmd.SetOut(os.Stdout)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("execute command: %w", err)
	}
	return nil
}
