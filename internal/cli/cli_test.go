package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
)

// harness runs CLI commands against a project store in a temp directory
// with XDG paths isolated from the host.
type harness struct {
	t     *testing.T
	store string
	cache string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	return &harness{
		t:     t,
		store: filepath.Join(root, "projects"),
		cache: filepath.Join(root, "cache", appName),
	}
}

// run executes args and returns what the command wrote to its output.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--store", h.store}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestInitAndSceneList(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	out := h.mustRun("scene", "ls")
	if !strings.Contains(out, "New scene") {
		t.Errorf("scene ls missing bootstrap scene:\n%s", out)
	}
	if !strings.Contains(out, "(ending)") {
		t.Errorf("scene ls should mark a scene without choices:\n%s", out)
	}

	// The file store keeps one document per project.
	if _, err := os.Stat(filepath.Join(h.store, "novella-scenes.json")); err != nil {
		t.Errorf("project file not written: %v", err)
	}
}

func TestSceneAddAndChoice(t *testing.T) {
	h := newHarness(t)
	a := strings.TrimSpace(h.mustRun("scene", "add", "--title", "Harbor"))
	b := strings.TrimSpace(h.mustRun("scene", "add", "--title", "Lighthouse"))
	if a == "" || b == "" || a == b {
		t.Fatalf("scene ids = %q, %q", a, b)
	}

	ch := strings.TrimSpace(h.mustRun("choice", "add", a, "--text", "Climb", "--target", b))
	if ch == "" {
		t.Fatal("choice add printed no id")
	}

	out := h.mustRun("scene", "ls")
	if !strings.Contains(out, "Climb → Lighthouse") {
		t.Errorf("scene ls should show the choice target:\n%s", out)
	}

	if _, err := h.run("choice", "set", ch, "--target", "missing"); !errs.IsNotFound(err) {
		t.Errorf("unknown target: err = %v, want NOT_FOUND", err)
	}
}

func TestEditErrors(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")

	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"scene set unknown", []string{"scene", "set", "nope", "--title", "x"}, errs.ErrCodeNotFound},
		{"layer style unknown", []string{"layer", "style", "nope", "--bold"}, errs.ErrCodeNotFound},
		{"geometry unknown", []string{"geometry", "nope", "--x", "1"}, errs.ErrCodeNotFound},
		{"reorder steps", []string{"layer", "forward", "nope", "--steps", "0"}, errs.ErrCodeInvalidInput},
		{"image missing file", []string{"image", "add", "no-such.png"}, errs.ErrCodeFileNotFound},
		{"map format", []string{"map", "-f", "png"}, errs.ErrCodeInvalidFormat},
		{"export format", []string{"export", "-f", "pdf"}, errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(tt.args...)
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestImportAndInspect(t *testing.T) {
	h := newHarness(t)
	legacy := filepath.Join(t.TempDir(), "legacy.json")
	doc := `[{"id":"a","title":"Alpha","choices":[{"id":"c1","text":"On","target":"b"}]},{"id":"b","title":"Beta"}]`
	if err := os.WriteFile(legacy, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out := h.mustRun("inspect", legacy)
	for _, want := range []string{"v0 (scene array)", "Scenes", "2"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	h.mustRun("import", legacy)
	out = h.mustRun("inspect")
	if !strings.Contains(out, "v2 (looseLayers)") {
		t.Errorf("stored project should be in the current layout:\n%s", out)
	}

	if _, err := h.run("import", legacy); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("import over a non-empty project: err = %v, want INVALID_INPUT", err)
	}
	h.mustRun("import", "--force", legacy)

	if _, err := h.run("import", filepath.Join(t.TempDir(), "missing.json")); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("missing import file: err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLayerCommands(t *testing.T) {
	h := newHarness(t)
	scene := strings.TrimSpace(h.mustRun("scene", "add"))
	a := strings.TrimSpace(h.mustRun("layer", "add", "text", "--scene", scene, "--content", "<b>Fog</b>"))
	b := strings.TrimSpace(h.mustRun("layer", "add", "text", "--scene", scene))

	h.mustRun("layer", "style", a, "--bold", "--size", "24")
	h.mustRun("layer", "forward", a)
	h.mustRun("geometry", b, "--width", "300")
	h.mustRun("layer", "rm", b)

	out := h.mustRun("scene", "ls")
	if !strings.Contains(out, "1") {
		t.Errorf("scene ls should count one layer:\n%s", out)
	}

	if _, err := h.run("layer", "add", "video"); err == nil {
		t.Error("layer add video: want an error")
	}
}

func TestExportWritesFiles(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	dir := t.TempDir()

	h.mustRun("export", "-f", "html,json,dot", "-o", dir, "--title", "Tide", "--no-cache")

	html, err := os.ReadFile(filepath.Join(dir, "novella-scenes.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<title>Tide</title>") {
		t.Error("html export should carry the title")
	}
	dot, err := os.ReadFile(filepath.Join(dir, "novella-scenes.dot"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("dot export = %q", dot)
	}
	if _, err := os.Stat(filepath.Join(dir, "novella-scenes.json")); err != nil {
		t.Error(err)
	}
}

func TestMapToStdout(t *testing.T) {
	h := newHarness(t)
	h.mustRun("init")
	out := h.mustRun("map", "-f", "dot", "-o", "-", "--no-cache")
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("map output = %q", out)
	}
}

func TestWatchNeedsFileStore(t *testing.T) {
	h := newHarness(t)
	h.store = "memory://"
	if _, err := h.run("export", "--watch"); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestCachePathFollowsXDG(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("cache", "path")
	if got := strings.TrimSpace(out); got != h.cache {
		t.Errorf("cache path = %q, want %q", got, h.cache)
	}
}

func TestCacheClearProjectOnly(t *testing.T) {
	h := newHarness(t)
	h.mustRun("--project", "harbor", "init")
	h.mustRun("init")
	h.mustRun("--project", "harbor", "export", "-f", "html,dot", "-o", t.TempDir())
	h.mustRun("export", "-f", "html", "-o", t.TempDir())

	h.mustRun("--project", "harbor", "cache", "clear", "--project-only")

	ctx := context.Background()
	fc, err := cache.NewFileCache(h.cache)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := fc.ClearPrefix(ctx, cache.ProjectScope("harbor")); n != 0 {
		t.Errorf("%d harbor entries left after clear", n)
	}
	if n, _ := fc.ClearPrefix(ctx, cache.ProjectScope("novella-scenes")); n != 1 {
		t.Errorf("default project entries = %d, want 1 kept", n)
	}
}

func TestProjectFlag(t *testing.T) {
	h := newHarness(t)
	h.mustRun("--project", "harbor", "init")
	h.mustRun("init")

	out := h.mustRun("projects")
	for _, want := range []string{"harbor", "novella-scenes *"} {
		if !strings.Contains(out, want) {
			t.Errorf("projects output missing %q:\n%s", want, out)
		}
	}

	if _, err := h.run("--project", "../escape", "init"); !errs.Is(err, errs.ErrCodeInvalidName) {
		t.Errorf("bad project name: err = %v, want INVALID_NAME", err)
	}
}

func TestConfigCommand(t *testing.T) {
	h := newHarness(t)
	cfgPath := filepath.Join(t.TempDir(), "novella.toml")
	if err := os.WriteFile(cfgPath, []byte("project = \"atlas\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := h.mustRun("--config", cfgPath, "config")
	if !strings.Contains(out, `"atlas"`) {
		t.Errorf("config output should show the file's project:\n%s", out)
	}
	if !strings.HasPrefix(out, "# "+cfgPath) {
		t.Errorf("config output should name its file:\n%s", out)
	}
}
