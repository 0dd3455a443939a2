package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/publish"
	"github.com/yourorg/confluencectl/internal/render"
)

type uploadOptions struct {
	searchRoots    []string
	basePath       string
	format         string
	updateIfExists bool
	djangoTheme    bool
}

func newUploadCmd(globals *globalOptions) *cobra.Command {
	opts := &uploadOptions{format: string(render.FormatText)}

	cmd := &cobra.Command{
		Use:   "upload " + pageArgsUsage,
		Short: "Upload a storage format (.csf) file as a page, with its attachments",
		Args:  pageArgsValidator,
		RunE:  opts.run(globals),
	}

	cmd.Flags().BoolVar(&opts.updateIfExists, "update-if-exists", false, "Update a same-titled page under the parent instead of creating one")
	cmd.Flags().StringArrayVar(&opts.searchRoots, "search-root", nil, "Directory to search for attachments (repeatable, default: the CSF directory)")
	cmd.Flags().StringVar(&opts.basePath, "base-path", "", "Context path of the Confluence site (default: profile value or /)")
	cmd.Flags().BoolVar(&opts.djangoTheme, "django-theme", false, "Set the DJango theme on every code macro")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "Report format: text|json|table")

	return cmd
}

func (opts *uploadOptions) run(globals *globalOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		pa := parsePageArgs(args)
		if err := fillPageDefaults(globals, &pa); err != nil {
			return err
		}

		client, err := buildClient(globals, pa.token, pa.domain, opts.basePath)
		if err != nil {
			return err
		}

		roots := opts.searchRoots
		if len(roots) == 0 {
			roots = []string{filepath.Dir(pa.path)}
		}

		out := cmd.OutOrStdout()
		if format == render.FormatText {
			theme := "disabled"
			if opts.djangoTheme {
				theme = "enabled"
			}
			if err := render.Summary(out, []render.Field{
				{Label: "Base URL", Value: client.SiteURL()},
				{Label: "API Root", Value: client.APIRoot()},
				{Label: "Title", Value: pa.title},
				{Label: "Parent", Value: pa.parentID},
				{Label: "Space", Value: pa.spaceKey},
				{Label: "Search", Value: strings.Join(roots, ", ")},
				{Label: "Django Theme", Value: theme},
			}); err != nil {
				return err
			}
		}

		ctx, _ := ctxlog.WithRunID(cmd.Context())
		report, err := publish.Run(ctx, client, publish.Options{
			CSFPath:        pa.path,
			Title:          pa.title,
			ParentID:       pa.parentID,
			SpaceKey:       pa.spaceKey,
			SearchRoots:    roots,
			UpdateIfExists: opts.updateIfExists,
			DjangoTheme:    opts.djangoTheme,
		})
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		return publish.WriteReport(out, report, format)
	}
}
