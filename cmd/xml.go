package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/xmlfix"
)

type fixReceiversOptions struct {
	port string
}

func newXMLCmd(_ *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xml",
		Short: "Edit interface definition XML files",
	}
	cmd.AddCommand(newFixReceiversCmd())
	return cmd
}

func newFixReceiversCmd() *cobra.Command {
	opts := &fixReceiversOptions{port: xmlfix.DefaultReceiverPort}

	cmd := &cobra.Command{
		Use:   "fix-receivers <file.xml>",
		Short: `Reduce RECEIVERS_PORTS_LIST of every TRAFFIC_ROUTE type="TLC" to one receiver`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := xmlfix.FixFile(args[0], opts.port)
			if errors.Is(err, xmlfix.ErrNoRoutes) {
				ctxlog.FromContext(cmd.Context()).Warn("nothing to change", "file", args[0], "reason", err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fix receivers: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %d TLC route(s). Backup: %s\n", res.Routes, res.BackupPath)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.port, "port", opts.port, "receiverPortName to keep")

	return cmd
}
