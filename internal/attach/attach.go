// Package attach resolves attachment names referenced by a page to local
// files and uploads them concurrently.
package attach

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yourorg/confluencectl/internal/confluence"
	"github.com/yourorg/confluencectl/internal/ctxlog"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 3

var errFound = errors.New("found")

// Find returns the first file under roots whose base name matches name
// case-insensitively. Roots are searched in order and missing roots are
// skipped. Within a root the literal name is tried before the name with
// %20 decoded to spaces.
func Find(name string, roots []string) (string, bool) {
	candidates := []string{name}
	if decoded := strings.ReplaceAll(name, "%20", " "); decoded != name {
		candidates = append(candidates, decoded)
	}

	for _, root := range roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}
		for _, candidate := range candidates {
			if found, ok := walkFor(root, candidate); ok {
				return found, true
			}
		}
	}
	return "", false
}

func walkFor(root, name string) (string, bool) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than failing the search.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), name) {
			found = path
			return errFound
		}
		return nil
	})
	return found, errors.Is(err, errFound)
}

// Resolution maps referenced names to local files.
type Resolution struct {
	Files   []File
	Missing []string
}

// File is a referenced attachment with its local path.
type File struct {
	Name string
	Path string
}

// Resolve looks up every name, preserving input order.
func Resolve(names, roots []string) Resolution {
	var res Resolution
	for _, name := range names {
		if path, ok := Find(name, roots); ok {
			res.Files = append(res.Files, File{Name: name, Path: path})
		} else {
			res.Missing = append(res.Missing, name)
		}
	}
	return res
}

// Client is the subset of the Confluence client used for uploads.
type Client interface {
	FindAttachment(ctx context.Context, pageID, filename string) (confluence.Content, bool, error)
	UploadAttachment(ctx context.Context, pageID, localPath string) (confluence.Content, error)
	UpdateAttachmentData(ctx context.Context, pageID, attachmentID, localPath string) (confluence.Content, error)
}

// Action says what happened to an attachment.
type Action string

// Upload outcomes.
const (
	Uploaded Action = "uploaded"
	Updated  Action = "updated"
	Failed   Action = "failed"
)

// Result records the outcome for one file.
type Result struct {
	File
	Action       Action
	AttachmentID string
	Err          error
}

// Upload creates or updates each file as an attachment of pageID with at
// most concurrency requests in flight. Per-file failures are recorded in
// the results and do not stop the others; only context cancellation is
// returned as an error. Results follow the order of files.
func Upload(ctx context.Context, client Client, pageID string, files []File, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := ctxlog.FromContext(ctx)

	results := make([]Result, len(files))
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	g, groupCtx := errgroup.WithContext(ctx)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
			defer func() { <-sem }()

			res := uploadOne(groupCtx, client, pageID, file)
			if res.Err != nil {
				logger.Warn("attachment upload failed", "name", file.Name, "path", file.Path, "error", res.Err)
			} else {
				logger.Info("attachment "+string(res.Action), "name", file.Name, "id", res.AttachmentID, "path", file.Path)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("upload attachments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("upload attachments: %w", err)
	}
	return results, nil
}

func uploadOne(ctx context.Context, client Client, pageID string, file File) Result {
	res := Result{File: file}

	existing, ok, err := client.FindAttachment(ctx, pageID, file.Name)
	if err != nil {
		// A failed lookup falls back to a fresh upload.
		ctxlog.FromContext(ctx).Debug("attachment lookup failed", "name", file.Name, "error", err)
		ok = false
	}

	var att confluence.Content
	if ok {
		res.Action = Updated
		att, err = client.UpdateAttachmentData(ctx, pageID, existing.ID, file.Path)
		if att.ID == "" {
			att.ID = existing.ID
		}
	} else {
		res.Action = Uploaded
		att, err = client.UploadAttachment(ctx, pageID, file.Path)
	}
	if err != nil {
		res.Action = Failed
		res.Err = fmt.Errorf("%s: %w", file.Name, err)
		return res
	}
	res.AttachmentID = att.ID
	return res
}

// Tally counts results by action.
func Tally(results []Result) (uploaded, updated, failed int) {
	for _, r := range results {
		switch r.Action {
		case Uploaded:
			uploaded++
		case Updated:
			updated++
		case Failed:
			failed++
		}
	}
	return uploaded, updated, failed
}
