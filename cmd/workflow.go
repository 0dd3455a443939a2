package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/workflow"
)

type workflowOptions struct {
	updateIfExists bool
}

func newWorkflowCmd(globals *globalOptions) *cobra.Command {
	opts := &workflowOptions{}

	cmd := &cobra.Command{
		Use:   "workflow " + pageArgsUsage,
		Short: "Hyphenate image names, convert a note and publish it with its attachments",
		Long: `Runs the full pipeline for one Obsidian note:

  1. rename images with spaces in the note's directory and fix references
  2. convert the note to storage format (<dir>/<stem>.csf)
  3. rewrite Obsidian image embeds into ac:image macros
  4. upload the page and its attachments

A failure in step 1 is only a warning; later failures abort.`,
		Args: pageArgsValidator,
		RunE: opts.run(globals),
	}

	cmd.Flags().BoolVar(&opts.updateIfExists, "update-if-exists", false, "Update a same-titled page under the parent instead of creating one")

	return cmd
}

func (opts *workflowOptions) run(globals *globalOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		pa := parsePageArgs(args)
		if err := fillPageDefaults(globals, &pa); err != nil {
			return err
		}

		client, err := buildClient(globals, pa.token, pa.domain, "")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if _, err := workflow.Run(ctx, cmd.OutOrStdout(), client, workflow.Options{
			MDPath:         pa.path,
			Title:          pa.title,
			ParentID:       pa.parentID,
			SpaceKey:       pa.spaceKey,
			UpdateIfExists: opts.updateIfExists,
		}); err != nil {
			if step, ok := workflow.FailedStep(err); ok {
				ctxlog.FromContext(ctx).Error("workflow aborted", "step", step)
			}
			return fmt.Errorf("workflow: %w", err)
		}
		return nil
	}
}
