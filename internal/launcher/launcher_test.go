package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const (
	helperEnv     = "LAUNCHER_TEST_HELPER"
	helperExitEnv = "LAUNCHER_TEST_EXIT"
	helperMarkEnv = "LAUNCHER_TEST_MARK"
	helperKillEnv = "LAUNCHER_TEST_KILL"
)

type childReport struct {
	Args []string `json:"args"`
	Path string   `json:"path"`
}

// TestMain doubles as the forwarded-to program: a copy of the test binary
// named confluencectl runs this branch instead of the tests.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(helperMain())
	}
	os.Exit(m.Run())
}

func helperMain() int {
	if os.Getenv(helperKillEnv) == "1" {
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Kill()
		}
		time.Sleep(time.Second)
		return 97
	}
	if mark := os.Getenv(helperMarkEnv); mark != "" {
		time.Sleep(100 * time.Millisecond)
		if err := os.WriteFile(mark, []byte("done"), 0o600); err != nil {
			return 99
		}
	}
	report := childReport{Args: os.Args[1:], Path: os.Getenv(DefaultPathVar)}
	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		return 98
	}
	code, _ := strconv.Atoi(os.Getenv(helperExitEnv))
	return code
}

// installChild copies the test binary into a fresh directory as the
// sibling program and returns that directory.
func installChild(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	self, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}
	src, err := os.Open(self)
	if err != nil {
		t.Fatalf("open test binary: %v", err)
	}
	defer src.Close()

	name := DefaultProgram
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY, 0o755)
	if err != nil {
		t.Fatalf("create child binary: %v", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		t.Fatalf("copy child binary: %v", err)
	}
	if err := dst.Close(); err != nil {
		t.Fatalf("close child binary: %v", err)
	}
	return dir
}

func runChild(t *testing.T, l *Launcher) (childReport, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	l.Stdout = &stdout
	l.Stderr = &stderr

	code, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v (stderr %q)", err, stderr.String())
	}
	var report childReport
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decode child output %q: %v", stdout.String(), err)
	}
	return report, code
}

func TestRunForwardsArgumentsVerbatim(t *testing.T) {
	t.Setenv(helperEnv, "1")
	dir := installChild(t)

	args := []string{
		"C:\\notes\\My Note.md",
		"Title with \"quotes\" and spaces",
		"",
		"~SPACE",
		"--update-if-exists",
		"  padded  ",
		"유니코드",
	}
	report, code := runChild(t, &Launcher{Dir: dir, Subcommand: "workflow", Args: args})
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	want := append([]string{"workflow"}, args...)
	if diff := cmp.Diff(want, report.Args); diff != "" {
		t.Fatalf("forwarded args mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPrependsLauncherDir(t *testing.T) {
	t.Setenv(helperEnv, "1")
	t.Setenv(DefaultPathVar, "/usr/bin")
	dir := installChild(t)

	report, _ := runChild(t, &Launcher{Dir: dir, Subcommand: "upload"})
	want := dir + string(os.PathListSeparator) + "/usr/bin"
	if report.Path != want {
		t.Fatalf("child PATH = %q, want %q", report.Path, want)
	}
	if got := os.Getenv(DefaultPathVar); got != "/usr/bin" {
		t.Fatalf("launcher PATH modified: %q", got)
	}
}

func TestRunReportsExitCodeAfterChildExits(t *testing.T) {
	t.Setenv(helperEnv, "1")
	t.Setenv(helperExitEnv, "3")
	mark := filepath.Join(t.TempDir(), "mark")
	t.Setenv(helperMarkEnv, mark)
	dir := installChild(t)

	_, code := runChild(t, &Launcher{Dir: dir, Subcommand: "upload"})
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	if _, err := os.Stat(mark); err != nil {
		t.Fatalf("Run returned before the child finished: %v", err)
	}
}

func TestRunReportsSignalDeath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no signals on windows")
	}
	t.Setenv(helperEnv, "1")
	t.Setenv(helperKillEnv, "1")
	dir := installChild(t)

	l := &Launcher{Dir: dir, Subcommand: "upload", Stdout: io.Discard, Stderr: io.Discard}
	code, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if want := signalExitBase + int(syscall.SIGKILL); code != want {
		t.Fatalf("exit code = %d, want %d", code, want)
	}
}

func TestRunStartFailure(t *testing.T) {
	l := &Launcher{Dir: t.TempDir(), Subcommand: "upload", Stdout: io.Discard, Stderr: io.Discard}
	code, err := l.Run(context.Background())
	if err == nil || code != 1 {
		t.Fatalf("Run = %d, %v; want 1 and an error", code, err)
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	l := &Launcher{
		Dir:        dir,
		Subcommand: "upload",
		Args:       []string{"a b", ""},
		PathVar:    "CUSTOM_PATH",
		Env:        []string{"CUSTOM_PATH=/opt/bin", "OTHER=1"},
	}
	cmd, err := l.Command(context.Background())
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if diff := cmp.Diff([]string{"upload", "a b", ""}, cmd.Args[1:]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(filepath.Base(cmd.Path), DefaultProgram) || filepath.Dir(cmd.Path) != dir {
		t.Fatalf("unexpected program path %q", cmd.Path)
	}
	wantEnv := []string{"OTHER=1", "CUSTOM_PATH=" + dir + string(os.PathListSeparator) + "/opt/bin"}
	if diff := cmp.Diff(wantEnv, cmd.Env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestPrependPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	cases := []struct {
		name string
		env  []string
		want []string
	}{
		{"absent", []string{"A=1"}, []string{"A=1", "PATH=/l"}},
		{"empty", []string{"PATH="}, []string{"PATH=/l"}},
		{"existing", []string{"PATH=/a" + sep + "/b", "B=2"}, []string{"B=2", "PATH=/l" + sep + "/a" + sep + "/b"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, PrependPath(tc.env, "PATH", "/l")); diff != "" {
				t.Fatalf("PrependPath mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShouldPause(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()

	if ShouldPause(f) {
		t.Fatalf("a regular file is not a terminal")
	}
	t.Setenv(NoPauseEnv, "1")
	if ShouldPause(os.Stdin) {
		t.Fatalf("NoPauseEnv must disable the pause")
	}
}

func TestPauseReadsOneKey(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}

	var out bytes.Buffer
	if err := Pause(f, &out); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !strings.HasPrefix(out.String(), PausePrompt) {
		t.Fatalf("prompt missing: %q", out.String())
	}
}
