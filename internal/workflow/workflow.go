// Package workflow runs the note-to-page pipeline: hyphenate image names,
// convert Markdown to storage format, rewrite Obsidian embeds and publish.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/markdown"
	"github.com/yourorg/confluencectl/internal/publish"
	"github.com/yourorg/confluencectl/internal/spacefill"
	"github.com/yourorg/confluencectl/internal/storage"
)

// Options describes one workflow run.
type Options struct {
	MDPath         string
	Title          string
	ParentID       string
	SpaceKey       string
	UpdateIfExists bool
}

// Result collects what each step produced.
type Result struct {
	RunID     string
	CSFPath   string
	SpaceFill *spacefill.Report
	Embeds    storage.EmbedReport
	Publish   publish.Report
}

// Step names, in execution order.
const (
	StepSpaceFill = "space fill"
	StepConvert   = "markdown to storage format"
	StepEmbeds    = "obsidian embed conversion"
	StepUpload    = "upload"
)

// Run executes the four steps, printing a banner per step to out. A space
// fill failure is logged and skipped; any later failure aborts the run and
// is returned wrapped with the step name.
func Run(ctx context.Context, out io.Writer, client publish.Client, opts Options) (Result, error) {
	ctx, runID := ctxlog.WithRunID(ctx)
	logger := ctxlog.FromContext(ctx)
	res := Result{RunID: runID}

	mdPath, err := filepath.Abs(opts.MDPath)
	if err != nil {
		return res, fmt.Errorf("resolve note path: %w", err)
	}
	mdDir := filepath.Dir(mdPath)

	banner(out, 0, "Workflow: "+mdPath)
	logger.Info("workflow started", "note", mdPath, "title", opts.Title, "space", opts.SpaceKey)

	banner(out, 1, StepSpaceFill)
	report, err := spacefill.Run(ctx, spacefill.Options{Vault: mdDir, Apply: true})
	if err != nil {
		logger.Warn("space fill failed, continuing", "error", err)
	} else {
		res.SpaceFill = &report
		logger.Info("space fill done", "renamed", len(report.Renames), "notes_updated", len(report.ModifiedNotes))
	}

	banner(out, 2, StepConvert)
	_, csfPath, err := markdown.NewConverter().ConvertFile(ctx, mdPath, "")
	if err != nil {
		return res, stepError(StepConvert, err)
	}
	res.CSFPath = csfPath
	logger.Info("storage format written", "path", csfPath)

	banner(out, 3, StepEmbeds)
	res.Embeds, err = storage.ConvertEmbedsFile(csfPath, "")
	if err != nil {
		return res, stepError(StepEmbeds, err)
	}
	logger.Info("embeds converted", "embeds", len(res.Embeds.Embeds), "image_macros", res.Embeds.ImageMacros)

	banner(out, 4, StepUpload)
	res.Publish, err = publish.Run(ctx, client, publish.Options{
		CSFPath:        csfPath,
		Title:          opts.Title,
		ParentID:       opts.ParentID,
		SpaceKey:       opts.SpaceKey,
		SearchRoots:    []string{mdDir},
		UpdateIfExists: opts.UpdateIfExists,
	})
	if err != nil {
		return res, stepError(StepUpload, err)
	}

	if _, err := fmt.Fprintf(out, "\nWorkflow complete: %s\n", res.Publish.PageURL); err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}
	return res, nil
}

// StepError reports which step aborted the workflow.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// FailedStep returns the step that aborted err's run, if any.
func FailedStep(err error) (string, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}

func banner(out io.Writer, n int, title string) {
	if n == 0 {
		fmt.Fprintf(out, "=== %s ===\n", title)
		return
	}
	fmt.Fprintf(out, "\nStep %d: %s\n", n, title)
}
