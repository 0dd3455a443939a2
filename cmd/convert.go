package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourorg/confluencectl/internal/htmlexport"
	"github.com/yourorg/confluencectl/internal/markdown"
	"github.com/yourorg/confluencectl/internal/render"
	"github.com/yourorg/confluencectl/internal/storage"
)

// maxListedEmbeds caps the embeds echoed by "convert csf".
const maxListedEmbeds = 10

func newConvertCmd(_ *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert notes and storage format files locally",
	}

	cmd.AddCommand(newConvertCSFCmd())
	cmd.AddCommand(newConvertMDCmd())
	cmd.AddCommand(newConvertHTMLCmd())

	return cmd
}

func newConvertCSFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csf <input.csf> [output.csf]",
		Short: "Rewrite Obsidian image embeds into ac:image macros",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd // input and optional output
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			output := ""
			if len(args) > 1 {
				output = args[1]
			}
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file not found: %s", input)
			}

			report, err := storage.ConvertEmbedsFile(input, output)
			if err != nil {
				return fmt.Errorf("convert csf: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(report.Embeds) > 0 {
				heading := fmt.Sprintf("Found %d Obsidian embeds:", len(report.Embeds))
				if err := render.List(out, heading, report.Embeds, maxListedEmbeds); err != nil {
					return err
				}
			}
			return render.Summary(out, []render.Field{
				{Label: "Output", Value: report.Output},
				{Label: "Image macros", Value: fmt.Sprint(report.ImageMacros)},
			})
		},
	}
}

type convertMDOptions struct {
	output string
}

func newConvertMDCmd() *cobra.Command {
	opts := &convertMDOptions{}

	cmd := &cobra.Command{
		Use:   "md <input.md>",
		Short: "Convert a Markdown note to Confluence storage format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, output, err := markdown.NewConverter().ConvertFile(cmd.Context(), args[0], opts.output)
			if err != nil {
				return fmt.Errorf("convert md: %w", err)
			}
			fields := []render.Field{{Label: "Output", Value: output}}
			if doc.FrontMatter.Title != "" {
				fields = append(fields, render.Field{Label: "Title", Value: doc.FrontMatter.Title})
			}
			return render.Summary(cmd.OutOrStdout(), fields)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output path (default: <dir>/<stem>.csf)")

	return cmd
}

type convertHTMLOptions struct {
	open bool
}

func newConvertHTMLCmd() *cobra.Command {
	opts := &convertHTMLOptions{}

	cmd := &cobra.Command{
		Use:   "html <input.md>",
		Short: "Render a note as a standalone HTML page with inlined images and mermaid diagrams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := htmlexport.New()
			if err != nil {
				return err
			}
			res, err := exporter.ExportFile(args[0])
			if err != nil {
				return fmt.Errorf("convert html: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(res.MissingImages) > 0 {
				if err := render.List(out, "Images not found:", res.MissingImages, 0); err != nil {
					return err
				}
			}
			if err := render.Summary(out, []render.Field{
				{Label: "Output", Value: res.OutputPath},
				{Label: "Inlined images", Value: fmt.Sprint(res.InlinedImages)},
			}); err != nil {
				return err
			}

			if opts.open {
				return openBrowser(cmd.Context(), res.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the result in the default browser")

	return cmd
}
