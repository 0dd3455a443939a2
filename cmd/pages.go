package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/confluence"
	"github.com/yourorg/confluencectl/internal/render"
)

func newPagesCmd(globals *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Inspect Confluence pages",
	}

	cmd.AddCommand(newPagesGetCmd(globals))
	cmd.AddCommand(newPagesFindCmd(globals))

	return cmd
}

type pagesGetOptions struct {
	format string
}

func newPagesGetCmd(globals *globalOptions) *cobra.Command {
	opts := &pagesGetOptions{format: string(render.FormatJSON)}

	cmd := &cobra.Command{
		Use:   "get <page-id>",
		Short: "Retrieve a Confluence page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			client, err := buildClient(globals, "", "", "")
			if err != nil {
				return err
			}
			page, err := client.GetContent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("retrieve page: %w", err)
			}
			if format == render.FormatJSON {
				return render.JSON(cmd.OutOrStdout(), page)
			}
			return renderPages(cmd, client, []confluence.Content{page}, format)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", opts.format, "Output format: json|table")

	return cmd
}

type pagesFindOptions struct {
	title  string
	space  string
	parent string
	format string
}

func newPagesFindCmd(globals *globalOptions) *cobra.Command {
	opts := &pagesFindOptions{format: string(render.FormatTable)}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find pages by title, optionally under a parent page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := render.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			pa := pageArgs{parentID: opts.parent, spaceKey: opts.space}
			if err := fillPageDefaults(globals, &pa); err != nil {
				return err
			}
			client, err := buildClient(globals, "", "", "")
			if err != nil {
				return err
			}

			pages, err := client.FindPages(cmd.Context(), opts.title, pa.spaceKey)
			if err != nil {
				return fmt.Errorf("find pages: %w", err)
			}
			if pa.parentID != "" {
				filtered := pages[:0]
				for _, p := range pages {
					if p.HasAncestor(pa.parentID) {
						filtered = append(filtered, p)
					}
				}
				pages = filtered
			}
			return renderPages(cmd, client, pages, format)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Exact page title")
	cmd.Flags().StringVar(&opts.space, "space", profileDefault, "Space key (default: profile value)")
	cmd.Flags().StringVar(&opts.parent, "parent", "", "Only list pages below this page ID (- for the profile value)")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "Output format: json|table")
	cobra.CheckErr(cmd.MarkFlagRequired("title"))

	return cmd
}

func renderPages(cmd *cobra.Command, client *confluence.Client, pages []confluence.Content, format render.Format) error {
	out := cmd.OutOrStdout()
	if format == render.FormatJSON {
		if pages == nil {
			pages = []confluence.Content{}
		}
		return render.JSON(out, pages)
	}

	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		space := ""
		if p.Space != nil {
			space = p.Space.Key
		}
		rows = append(rows, []string{p.ID, p.Title, space, strconv.Itoa(p.VersionNumber()), client.PageURL(p.ID)})
	}
	if err := render.Table(out, []string{"ID", "TITLE", "SPACE", "VERSION", "URL"}, rows); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}
