// Package spacefill renames vault images whose names contain whitespace and
// rewrites the Markdown references that point at them.
//
// Confluence attachment names and Obsidian embeds disagree on spaces
// ("Pasted image 1.png" vs "Pasted%20image%201.png"), so hyphenating the
// files up front keeps both sides resolvable.
package spacefill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yourorg/confluencectl/internal/ctxlog"
	"github.com/yourorg/confluencectl/internal/textenc"
)

const (
	backupSuffix    = ".bak"
	filePermissions = 0o644
	dirPermissions  = 0o755
)

// DefaultExtensions lists the image types considered when none are given.
var DefaultExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp", ".tiff", ".tif", ".avif",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Options configures a run.
type Options struct {
	Vault      string
	Extensions []string
	Apply      bool
}

// Rename is a planned or applied image rename.
type Rename struct {
	From string
	To   string
}

// Report summarizes a run. In dry-run mode it describes what would change.
type Report struct {
	Renames       []Rename
	ModifiedNotes []string
	DryRun        bool
}

// Run plans renames, applies them when opts.Apply is set, and rewrites image
// references in every .md file under the vault. Modified notes are backed up
// once to <note>.md.bak before being overwritten.
func Run(ctx context.Context, opts Options) (Report, error) {
	logger := ctxlog.FromContext(ctx)

	vault, err := filepath.Abs(opts.Vault)
	if err != nil {
		return Report{}, fmt.Errorf("resolve vault: %w", err)
	}
	info, err := os.Stat(vault)
	if err != nil || !info.IsDir() {
		return Report{}, fmt.Errorf("vault path does not exist or is not a directory: %s", vault)
	}

	exts := NewExtensionSet(opts.Extensions)
	report := Report{DryRun: !opts.Apply}
	logger.Info("scanning vault", "vault", vault, "extensions", exts.Sorted(), "dry_run", report.DryRun)

	renames, err := PlanRenames(vault, exts)
	if err != nil {
		return Report{}, err
	}
	report.Renames = renames

	for _, r := range renames {
		logger.Debug("image rename", "from", r.From, "to", r.To, "dry_run", report.DryRun)
		if report.DryRun {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(r.To), dirPermissions); err != nil {
			return report, fmt.Errorf("create directory for %s: %w", r.To, err)
		}
		if err := os.Rename(r.From, r.To); err != nil {
			return report, fmt.Errorf("rename %s: %w", r.From, err)
		}
	}

	modified, err := rewriteNotes(ctx, vault, renames, exts, report.DryRun)
	report.ModifiedNotes = modified
	if err != nil {
		return report, err
	}
	return report, nil
}

// NormalizeHyphens turns every whitespace run (and %20) into a single hyphen
// and trims hyphens from both ends.
func NormalizeHyphens(name string) string {
	name = strings.ReplaceAll(name, "%20", " ")
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = hyphenRun.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

// ExtensionSet is a lowercase set of dotted file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet normalizes exts (".PNG", "png" -> ".png"). An empty input
// yields DefaultExtensions.
func NewExtensionSet(exts []string) ExtensionSet {
	set := ExtensionSet{}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	if len(set) == 0 {
		for _, e := range DefaultExtensions {
			set[e] = struct{}{}
		}
	}
	return set
}

// ParseExtensions splits a comma separated extension list.
func ParseExtensions(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return strings.Split(csv, ",")
}

// Has reports whether name ends in one of the set's extensions.
func (s ExtensionSet) Has(name string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Sorted returns the extensions in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// PlanRenames finds images needing a rename. Targets never collide with
// existing files or with each other; "-1", "-2", ... is appended as needed.
func PlanRenames(vault string, exts ExtensionSet) ([]Rename, error) {
	var candidates []string
	err := filepath.WalkDir(vault, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !exts.Has(d.Name()) {
			return nil
		}
		if strings.Contains(d.Name(), " ") || strings.Contains(d.Name(), "%20") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	sort.Strings(candidates)

	reserved := map[string]struct{}{}
	renames := make([]Rename, 0, len(candidates))
	for _, old := range candidates {
		name := filepath.Base(old)
		newName := NormalizeHyphens(name)
		if newName == name || newName == "" {
			continue
		}
		target := uniquePath(filepath.Join(filepath.Dir(old), newName), reserved)
		reserved[target] = struct{}{}
		renames = append(renames, Rename{From: old, To: target})
	}
	return renames, nil
}

func uniquePath(target string, reserved map[string]struct{}) string {
	if available(target, reserved) {
		return target
	}
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 1; ; n++ {
		candidate := stem + "-" + strconv.Itoa(n) + ext
		if available(candidate, reserved) {
			return candidate
		}
	}
}

func available(path string, reserved map[string]struct{}) bool {
	if _, taken := reserved[path]; taken {
		return false
	}
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}

func rewriteNotes(
	ctx context.Context,
	vault string,
	renames []Rename,
	exts ExtensionSet,
	dryRun bool,
) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	rw := NewRewriter(renames, exts)

	var modified []string
	err := filepath.WalkDir(vault, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		original, enc, err := textenc.ReadFile(path)
		if err != nil {
			return err
		}
		if enc != textenc.UTF8 {
			logger.Debug("decoded note with fallback encoding", "path", path, "encoding", string(enc))
		}
		updated := rw.Rewrite(original)
		if updated == original {
			return nil
		}
		modified = append(modified, path)
		if dryRun {
			return nil
		}
		return writeWithBackup(path, original, updated)
	})
	if err != nil {
		return modified, fmt.Errorf("update notes: %w", err)
	}
	return modified, nil
}

func writeWithBackup(path, original, updated string) error {
	bak := path + backupSuffix
	if _, err := os.Stat(bak); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(bak, []byte(original), filePermissions); err != nil { //nolint:gosec // notes keep vault permissions
			return fmt.Errorf("write backup %s: %w", bak, err)
		}
	}
	if err := os.WriteFile(path, []byte(updated), filePermissions); err != nil { //nolint:gosec // notes keep vault permissions
		return fmt.Errorf("write note %s: %w", path, err)
	}
	return nil
}
