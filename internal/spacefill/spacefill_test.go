package spacefill

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeHyphens(t *testing.T) {
	cases := map[string]string{
		"Pasted image 1.png":     "Pasted-image-1.png",
		"Pasted%20image%201.png": "Pasted-image-1.png",
		"  a   b  .png":          "a-b-.png",
		"a - b.png":              "a-b.png",
		"--x--.png":              "x-.png",
		"plain.png":              "plain.png",
	}
	for in, want := range cases {
		if got := NormalizeHyphens(in); got != want {
			t.Errorf("NormalizeHyphens(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewExtensionSet(t *testing.T) {
	set := NewExtensionSet([]string{"PNG", " .jpg ", ""})
	if diff := cmp.Diff([]string{".jpg", ".png"}, set.Sorted()); diff != "" {
		t.Fatalf("extensions mismatch (-want +got):\n%s", diff)
	}
	if !set.Has("a.PNG") || set.Has("a.gif") {
		t.Fatalf("unexpected Has results for %v", set.Sorted())
	}
	if got := len(NewExtensionSet(nil)); got != len(DefaultExtensions) {
		t.Fatalf("default set size = %d, want %d", got, len(DefaultExtensions))
	}
	if got := ParseExtensions(" "); got != nil {
		t.Fatalf("ParseExtensions(blank) = %v, want nil", got)
	}
}

func TestRewrite(t *testing.T) {
	rw := NewRewriter([]Rename{
		{From: "/v/img/Pasted image 1.png", To: "/v/img/Pasted-image-1.png"},
		{From: "/v/Diagram A.png", To: "/v/Diagram-A-1.png"},
	}, NewExtensionSet(nil))

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"wiki embed", "![[Pasted image 1.png]]", "![[Pasted-image-1.png]]"},
		{"wiki embed with width", "![[img/Pasted image 1.png|300]]", "![[img/Pasted-image-1.png|300]]"},
		{"wiki embed anchor", "![[Diagram A.png#x]]", "![[Diagram-A-1.png#x]]"},
		{"unknown image normalized", "![[Other Pic.jpg]]", "![[Other-Pic.jpg]]"},
		{"plain wiki link untouched", "[[Pasted image 1.png]]", "[[Pasted image 1.png]]"},
		{"note embed untouched", "![[Some Note]]", "![[Some Note]]"},
		{"markdown encoded", "![x](img/Pasted%20image%201.png)", "![x](img/Pasted-image-1.png)"},
		{"markdown backslash", `![x](img\Pasted image 1.png)`, "![x](img/Pasted-image-1.png)"},
		{"markdown quoted", `![x]("Diagram A.png")`, `![x]("Diagram-A-1.png")`},
		{"markdown unrelated", "![x](http://host/a.png)", "![x](http://host/a.png)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rw.Rewrite(tc.in); got != tc.want {
				t.Fatalf("Rewrite(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPlanRenamesAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a b.png"), "1")
	mustWrite(t, filepath.Join(dir, "a  b.png"), "2")
	mustWrite(t, filepath.Join(dir, "c d.png"), "3")
	mustWrite(t, filepath.Join(dir, "c-d.png"), "existing")
	mustWrite(t, filepath.Join(dir, "e f.txt"), "skip")

	renames, err := PlanRenames(dir, NewExtensionSet(nil))
	if err != nil {
		t.Fatalf("PlanRenames: %v", err)
	}
	want := []Rename{
		{From: filepath.Join(dir, "a  b.png"), To: filepath.Join(dir, "a-b.png")},
		{From: filepath.Join(dir, "a b.png"), To: filepath.Join(dir, "a-b-1.png")},
		{From: filepath.Join(dir, "c d.png"), To: filepath.Join(dir, "c-d-1.png")},
	}
	if diff := cmp.Diff(want, renames); diff != "" {
		t.Fatalf("renames mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDryRunLeavesFilesAlone(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "Pasted image.png")
	note := filepath.Join(dir, "note.md")
	mustWrite(t, img, "png")
	mustWrite(t, note, "![[Pasted image.png]]\n")

	report, err := Run(context.Background(), Options{Vault: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun || len(report.Renames) != 1 || len(report.ModifiedNotes) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, err := os.Stat(img); err != nil {
		t.Fatalf("image should still exist: %v", err)
	}
	if got := mustRead(t, note); got != "![[Pasted image.png]]\n" {
		t.Fatalf("note changed during dry run: %q", got)
	}
	if _, err := os.Stat(note + backupSuffix); !os.IsNotExist(err) {
		t.Fatalf("backup should not exist in dry run, stat err = %v", err)
	}
}

func TestRunApply(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "assets")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mustWrite(t, filepath.Join(sub, "Pasted image.png"), "png")
	note := filepath.Join(dir, "note.md")
	mustWrite(t, note, "See ![[assets/Pasted image.png|200]] and ![](assets/Pasted%20image.png)\n")

	report, err := Run(context.Background(), Options{Vault: dir, Apply: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DryRun {
		t.Fatalf("expected apply mode")
	}
	if _, err := os.Stat(filepath.Join(sub, "Pasted-image.png")); err != nil {
		t.Fatalf("renamed image missing: %v", err)
	}
	want := "See ![[assets/Pasted-image.png|200]] and ![](assets/Pasted-image.png)\n"
	if got := mustRead(t, note); got != want {
		t.Fatalf("note = %q, want %q", got, want)
	}
	if got := mustRead(t, note+backupSuffix); got != "See ![[assets/Pasted image.png|200]] and ![](assets/Pasted%20image.png)\n" {
		t.Fatalf("backup = %q", got)
	}

	// A second run finds nothing to do and keeps the first backup.
	mustWrite(t, note, want+"![[assets/New shot.png]]\n")
	if _, err := Run(context.Background(), Options{Vault: dir, Apply: true}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := mustRead(t, note+backupSuffix); got == want {
		t.Fatalf("backup was overwritten on second run")
	}
}

func TestRunRejectsMissingVault(t *testing.T) {
	if _, err := Run(context.Background(), Options{Vault: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatalf("expected error for missing vault")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
