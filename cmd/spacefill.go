package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/render"
	"github.com/yourorg/confluencectl/internal/spacefill"
)

type spacefillOptions struct {
	apply bool
	exts  string
}

func newSpacefillCmd(_ *globalOptions) *cobra.Command {
	opts := &spacefillOptions{}

	cmd := &cobra.Command{
		Use:   "spacefill <vault>",
		Short: "Replace spaces in image file names with hyphens and fix note references",
		Long: `Renames images whose names contain spaces or %20 (runs of whitespace become a
single hyphen) and rewrites ![](...) and ![[...]] references in every .md file.

Without --apply nothing is changed and the planned renames are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: opts.run,
	}

	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Rename files and rewrite notes (default is a dry run)")
	cmd.Flags().StringVar(&opts.exts, "ext", strings.Join(spacefill.DefaultExtensions, ","), "Comma separated image extensions")

	return cmd
}

func (opts *spacefillOptions) run(cmd *cobra.Command, args []string) error {
	report, err := spacefill.Run(cmd.Context(), spacefill.Options{
		Vault:      args[0],
		Extensions: spacefill.ParseExtensions(opts.exts),
		Apply:      opts.apply,
	})
	if err != nil {
		return fmt.Errorf("spacefill: %w", err)
	}

	out := cmd.OutOrStdout()
	mode := "APPLY"
	if report.DryRun {
		mode = "DRY-RUN"
	}
	if _, err := fmt.Fprintf(out, "[%s] %d image(s) to rename\n", mode, len(report.Renames)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	rows := make([][]string, 0, len(report.Renames))
	for _, r := range report.Renames {
		rows = append(rows, []string{r.From, r.To})
	}
	if len(rows) > 0 {
		if err := render.Table(out, []string{"FROM", "TO"}, rows); err != nil {
			return err
		}
	}
	if len(report.ModifiedNotes) > 0 {
		heading := fmt.Sprintf("%d note(s) with updated references:", len(report.ModifiedNotes))
		if err := render.List(out, heading, report.ModifiedNotes, 0); err != nil {
			return err
		}
	}
	if report.DryRun && len(report.Renames)+len(report.ModifiedNotes) > 0 {
		if _, err := fmt.Fprintln(out, "Re-run with --apply to make these changes."); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
