// Package publish uploads a storage format file as a Confluence page and
// attaches every local file it references.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourorg/confluencectl/internal/attach"
	"github.com/yourorg/confluencectl/internal/confluence"
	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/storage"
	"github.com/yourorg/confluencectl/internal/textenc"
)

// Page actions.
const (
	Created = "created"
	Updated = "updated"
)

// Client is the subset of the Confluence client used to publish.
type Client interface {
	attach.Client
	GetContent(ctx context.Context, id string) (confluence.Content, error)
	FindChildPage(ctx context.Context, title, spaceKey, parentID string) (confluence.Content, bool, error)
	CreatePage(ctx context.Context, req confluence.PageRequest) (confluence.Content, error)
	UpdatePage(ctx context.Context, pageID string, version int, req confluence.PageRequest) (confluence.Content, error)
	PageURL(pageID string) string
}

// Options describes one upload.
type Options struct {
	CSFPath  string
	Title    string
	ParentID string
	SpaceKey string
	// SearchRoots default to the directory holding CSFPath.
	SearchRoots    []string
	UpdateIfExists bool
	DjangoTheme    bool
	Concurrency    int
}

// Report is the outcome of Run.
type Report struct {
	PageID      string          `json:"page_id"`
	PageURL     string          `json:"page_url"`
	Title       string          `json:"title"`
	Action      string          `json:"action"`
	Version     int             `json:"version,omitempty"`
	CodeBlocks  int             `json:"code_blocks,omitempty"`
	Themed      int             `json:"themed_blocks,omitempty"`
	Referenced  []string        `json:"referenced"`
	Missing     []string        `json:"missing"`
	Attachments []AttachmentRow `json:"attachments"`
	Uploaded    int             `json:"uploaded"`
	Updated     int             `json:"updated"`
	Failed      int             `json:"failed"`
}

// AttachmentRow is the per-file part of a Report.
type AttachmentRow struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Run creates or updates the page, then uploads its attachments. Errors
// verifying the parent or creating the page are fatal. Failures finding or
// updating an existing page fall through to creation, and per-attachment
// failures are only counted.
func Run(ctx context.Context, client Client, opts Options) (Report, error) {
	logger := ctxlog.FromContext(ctx)

	if err := validate(opts); err != nil {
		return Report{}, err
	}
	if _, err := os.Stat(opts.CSFPath); err != nil {
		return Report{}, fmt.Errorf("CSF file not found: %s", opts.CSFPath)
	}
	roots := opts.SearchRoots
	if len(roots) == 0 {
		roots = []string{filepath.Dir(opts.CSFPath)}
	}

	if _, err := client.GetContent(ctx, opts.ParentID); err != nil {
		if confluence.IsNotFound(err) {
			return Report{}, fmt.Errorf("verify parent page %s: page does not exist or is not visible with this token: %w", opts.ParentID, err)
		}
		return Report{}, fmt.Errorf("verify parent page %s: %w", opts.ParentID, err)
	}
	logger.Info("parent page is reachable", "parent_id", opts.ParentID)

	csf, enc, err := textenc.ReadFile(opts.CSFPath)
	if err != nil {
		return Report{}, fmt.Errorf("read CSF: %w", err)
	}
	if enc != textenc.UTF8 {
		logger.Warn("CSF is not UTF-8, decoded with fallback", "encoding", string(enc))
	}

	report := Report{Title: opts.Title}
	if opts.DjangoTheme {
		before := storage.CountCodeMacros(csf)
		csf = storage.ApplyCodeTheme(csf, storage.DjangoTheme)
		report.CodeBlocks = storage.CountCodeMacros(csf)
		report.Themed = storage.CountThemed(csf, storage.DjangoTheme)
		logger.Info("applied code theme", "theme", storage.DjangoTheme,
			"code_blocks_before", before, "code_blocks_after", report.CodeBlocks, "themed", report.Themed)
	}

	page := confluence.PageRequest{
		Title:    opts.Title,
		SpaceKey: opts.SpaceKey,
		ParentID: opts.ParentID,
		Storage:  csf,
	}
	content, action, err := upsert(ctx, client, page, opts.UpdateIfExists)
	if err != nil {
		return Report{}, err
	}
	report.PageID = content.ID
	report.Action = action
	report.Version = content.VersionNumber()
	report.PageURL = client.PageURL(content.ID)
	logger.Info("page "+action, "page_id", content.ID, "url", report.PageURL)

	report.Referenced = storage.AttachmentNames(csf)
	if len(report.Referenced) == 0 {
		logger.Info("no attachments referenced")
		return report, nil
	}

	resolved := attach.Resolve(report.Referenced, roots)
	report.Missing = resolved.Missing
	for _, name := range resolved.Missing {
		logger.Warn("attachment not found locally", "name", name, "roots", roots)
	}
	if len(resolved.Files) == 0 {
		logger.Warn("no referenced attachments matched local files")
		return report, nil
	}

	results, err := attach.Upload(ctx, client, content.ID, resolved.Files, opts.Concurrency)
	report.Uploaded, report.Updated, report.Failed = attach.Tally(results)
	for _, r := range results {
		row := AttachmentRow{Name: r.Name, Path: r.Path, Action: string(r.Action), ID: r.AttachmentID}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		report.Attachments = append(report.Attachments, row)
	}
	if err != nil {
		return report, err
	}
	return report, nil
}

func validate(opts Options) error {
	var errs []error
	if opts.CSFPath == "" {
		errs = append(errs, errors.New("CSF path is required"))
	}
	if opts.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if opts.ParentID == "" {
		errs = append(errs, errors.New("parent page id is required"))
	}
	if opts.SpaceKey == "" {
		errs = append(errs, errors.New("space key is required"))
	}
	return errors.Join(errs...)
}

func upsert(
	ctx context.Context,
	client Client,
	page confluence.PageRequest,
	updateIfExists bool,
) (confluence.Content, string, error) {
	logger := ctxlog.FromContext(ctx)

	if updateIfExists {
		existing, ok, err := client.FindChildPage(ctx, page.Title, page.SpaceKey, page.ParentID)
		switch {
		case err != nil:
			logger.Warn("search for existing page failed, creating instead", "error", err)
		case ok:
			next := existing.VersionNumber() + 1
			logger.Info("updating page", "page_id", existing.ID,
				"from_version", existing.VersionNumber(), "to_version", next)
			updated, err := client.UpdatePage(ctx, existing.ID, next, page)
			if err == nil {
				if updated.ID == "" {
					updated.ID = existing.ID
				}
				return updated, Updated, nil
			}
			logger.Warn("update failed, creating instead", "page_id", existing.ID, "error", err)
		}
	}

	logger.Info("creating page", "parent_id", page.ParentID)
	created, err := client.CreatePage(ctx, page)
	if err != nil {
		return confluence.Content{}, "", fmt.Errorf("create page: %w", err)
	}
	return created, Created, nil
}
