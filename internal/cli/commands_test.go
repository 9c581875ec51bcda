package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/devwatch/internal/profile"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// newProject lays out a minimal JavaFX project below a temp dir.
func newProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, d := range []string{
		"src/main/resources/fxml",
		"src/main/resources/styles",
		"src/main/java/com/example",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, filepath.FromSlash(d)), 0o755))
	}

	return dir
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell commands")
	}
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func TestRunCommand_BuildSuccess(t *testing.T) {
	skipOnWindows(t)

	dir := newProject(t)

	_, stderr, err := executeCommand("run", "--dir", dir, "--build-command", "echo compiled")
	require.NoError(t, err)

	assert.Contains(t, stderr, "build started (manual)")
	assert.Contains(t, stderr, "build OK")
	assert.Contains(t, stderr, "  | compiled")
}

func TestRunCommand_BuildFailureExitsOne(t *testing.T) {
	skipOnWindows(t)

	dir := newProject(t)

	_, stderr, err := executeCommand("run", "--dir", dir, "--build-command", "echo broken; exit 3")
	require.Error(t, err)
	requireExitCode(t, err, 1)

	assert.Contains(t, stderr, "build ERROR")
	assert.Contains(t, stderr, "exited with code 3")
	assert.Contains(t, stderr, "  | broken")
}

func TestRunCommand_TouchCreatesTarget(t *testing.T) {
	dir := newProject(t)

	_, stderr, err := executeCommand("run", "--dir", dir, "--profile", "touch")
	require.NoError(t, err)

	target := filepath.Join(dir, filepath.FromSlash(profile.DefaultTarget))
	assert.FileExists(t, target)
	assert.Contains(t, stderr, "touched")
}

func TestRunCommand_BuildTouchSkipsTouchOnFailure(t *testing.T) {
	skipOnWindows(t)

	dir := newProject(t)

	_, _, err := executeCommand("run", "--dir", dir, "--profile", "build-touch", "--build-command", "exit 1")
	require.Error(t, err)

	target := filepath.Join(dir, filepath.FromSlash(profile.DefaultTarget))
	assert.NoFileExists(t, target)
}

func TestRunCommand_UnknownProfile(t *testing.T) {
	_, _, err := executeCommand("run", "--dir", t.TempDir(), "--profile", "nope")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "unknown profile")
}

func TestRunCommand_FlagSet(t *testing.T) {
	stdout, _, err := executeCommand("run", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--timeout")
	assert.NotContains(t, stdout, "--debounce")
	assert.NotContains(t, stdout, "--concurrency")

	_, _, err = executeCommand("run", "--debounce", "1s")
	require.Error(t, err)
	requireExitCode(t, err, 2)
}

func TestRunCommand_RejectsArgs(t *testing.T) {
	_, _, err := executeCommand("run", "extra")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func TestWatchCommand_NoRootsExist(t *testing.T) {
	_, _, err := executeCommand("watch", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the watch roots")
}

func TestWatchCommand_InvalidPattern(t *testing.T) {
	_, _, err := executeCommand("watch", "--dir", t.TempDir(), "src/[abc")
	require.Error(t, err)
	requireExitCode(t, err, 2)
}

func TestWatchCommand_RebuildsOnChange(t *testing.T) {
	skipOnWindows(t)

	dir := newProject(t)

	cmd := NewRootCommand()
	stderr := &syncBuffer{}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"watch", "--dir", dir, "--build-command", "echo rebuilt"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "watching ")
	}, 5*time.Second, 10*time.Millisecond)

	view := filepath.Join(dir, "src", "main", "resources", "fxml", "main.fxml")
	require.NoError(t, os.WriteFile(view, []byte("<VBox/>"), 0o644))

	require.Eventually(t, func() bool {
		out := stderr.String()
		return strings.Contains(out, "src/main/resources/fxml/main.fxml") &&
			strings.Contains(out, "build OK")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	out := stderr.String()
	assert.Contains(t, out, "profile=build")
	assert.Contains(t, out, "  | rebuilt")
	assert.Contains(t, out, "shutting down watcher")
	assert.Less(t,
		strings.Index(out, "src/main/resources/fxml/main.fxml"),
		strings.Index(out, "build started"),
		"change must be reported before its rebuild starts")
}

// ---------------------------------------------------------------------------
// match
// ---------------------------------------------------------------------------

func TestMatchCommand_Verdicts(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := executeCommand("match", "--dir", dir, "--profile", "touch-sources",
		"src/main/resources/fxml/main.fxml",
		"src/main/java/com/example/App.java",
		"README.md",
	)
	require.Error(t, err)
	requireExitCode(t, err, 1)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], verdictWatched))
	assert.True(t, strings.HasPrefix(lines[1], verdictIgnored))
	assert.True(t, strings.HasPrefix(lines[2], verdictNotMatched))
}

func TestMatchCommand_AllWatched(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := executeCommand("match", "--dir", dir, "--profile", "touch",
		"src/main/resources/app.css",
		"src/main/resources/fxml/deep/view.fxml",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, verdictWatched))
}

func TestMatchCommand_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "src", "main", "resources", "main.fxml")

	stdout, _, err := executeCommand("match", "--dir", dir, "--profile", "touch", abs)
	require.NoError(t, err)
	assert.Contains(t, stdout, verdictWatched)
}

func TestMatchCommand_AbsoluteTargetIsIgnored(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "src", "main", "java", "com", "example", "Reload.java")

	stdout, _, err := executeCommand("match", "--dir", dir, "--profile", "touch-sources",
		"--target", target, "src/main/java/com/example/Reload.java")
	require.Error(t, err)
	requireExitCode(t, err, 1)
	assert.True(t, strings.HasPrefix(stdout, verdictIgnored))
}

func TestWatchCommand_AbsolutePatternRejected(t *testing.T) {
	_, _, err := executeCommand("watch", "--dir", t.TempDir(), "/abs/**/*.css")
	require.Error(t, err)
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "must be relative to the project root")
}

func TestMatchCommand_RequiresPath(t *testing.T) {
	_, _, err := executeCommand("match")
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// profiles
// ---------------------------------------------------------------------------

func TestProfilesCommand_ListsBuiltins(t *testing.T) {
	stdout, _, err := executeCommand("profiles")
	require.NoError(t, err)

	for _, name := range profile.BuiltinNames() {
		assert.Contains(t, stdout, name)
	}

	assert.Contains(t, stdout, profile.DefaultProfile+" *")
	assert.Contains(t, stdout, "built-in")
}

func TestProfilesCommand_IncludesCustom(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "devwatch.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
profile: web
profiles:
  web:
    description: rebuild the web assets
    extends: build
    build-command: make assets
    patterns:
      - "web/**/*.html"
`), 0o600))

	stdout, _, err := executeCommand("--config", cfgFile, "profiles", "--verbose")
	require.NoError(t, err)

	assert.Contains(t, stdout, "web *")
	assert.Contains(t, stdout, "config")
	assert.Contains(t, stdout, "rebuild the web assets")
	assert.Contains(t, stdout, "web/**/*.html")
}

// ---------------------------------------------------------------------------
// config show
// ---------------------------------------------------------------------------

func TestConfigShow_PrintsEffectiveConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "devwatch.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("profile: touch\nconcurrency: 2\n"), 0o600))

	stdout, _, err := executeCommand("--config", cfgFile, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, stdout, "# loaded from "+cfgFile)
	assert.Contains(t, stdout, "profile: touch")
	assert.Contains(t, stdout, "concurrency: 2")
	assert.Contains(t, stdout, "log-level: info")
}

// ---------------------------------------------------------------------------
// completion
// ---------------------------------------------------------------------------

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := executeCommand("completion", shell)
			require.NoError(t, err)
			assert.Contains(t, stdout, "devwatch")
		})
	}
}

func TestCompletionCommand_InvalidShell(t *testing.T) {
	_, _, err := executeCommand("completion", "tcsh")
	require.Error(t, err)
}

func TestConfigShow_DiffAgainstDefaults(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "devwatch.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("profile: touch\n"), 0o600))

	stdout, _, err := executeCommand("--config", cfgFile, "--no-color", "config", "show", "--diff")
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- defaults")
	assert.Contains(t, stdout, "+++ effective")
	assert.Contains(t, stdout, "-profile: build")
	assert.Contains(t, stdout, "+profile: touch")
	assert.NotContains(t, stdout, "\033[")
}

func TestWriteConfigDiff_NoChanges(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigDiff(&buf, "a: 1\n", "a: 1\n", true))
	assert.Empty(t, buf.String())
}

func TestWriteConfigDiff_Colors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfigDiff(&buf, "a: 1\n", "a: 2\n", true))
	assert.Contains(t, buf.String(), colorRed+"-a: 1"+colorReset)
	assert.Contains(t, buf.String(), colorGreen+"+a: 2"+colorReset)
}
