package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/novella/pkg/cache"
	errs "github.com/matzehuels/novella/pkg/errors"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/story"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"html", false},
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"HTML", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errs.GetCode(err))
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatHTML {
		t.Errorf("default formats = %v", opts.Formats)
	}
	if opts.Lang != "en" || opts.Logger == nil {
		t.Errorf("defaults not applied: %+v", opts)
	}

	opts = Options{Formats: []string{" SVG ", "json"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Formats[0] != "svg" {
		t.Errorf("formats not normalized: %v", opts.Formats)
	}

	opts = Options{Formats: []string{"pdf"}}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("pdf accepted")
	}
}

func sampleProject() *story.Project {
	p := story.NewProject()
	a := &story.Scene{ID: "a", Title: "Dock", Body: "<p>Fog.</p>", Rect: story.Rect{Width: 260, Height: 240}}
	b := &story.Scene{ID: "b", Title: "Lighthouse", Rect: story.Rect{Width: 260, Height: 240}}
	a.Choices = []*story.Choice{{ID: "c1", Text: "Climb", Target: "b"}}
	a.Layers = []*story.Layer{{ID: "l1", Kind: story.LayerText, Content: "Hi", ZIndex: 1}}
	p.Scenes = append(p.Scenes, a, b)
	return p
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, log.New(io.Discard))
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	p := sampleProject()

	res, err := r.Execute(ctx, p, Options{Formats: []string{FormatHTML, FormatJSON, FormatDOT}, Title: "Fog"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Scenes != 2 || res.Stats.Choices != 1 || res.Stats.Layers != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.CacheInfo.AllHit() {
		t.Error("first run reported all hits")
	}
	if !bytes.Contains(res.Artifacts[FormatHTML], []byte("<title>Fog</title>")) {
		t.Error("html artifact missing title")
	}
	if !strings.Contains(string(res.Artifacts[FormatDOT]), "digraph") {
		t.Errorf("dot artifact = %s", res.Artifacts[FormatDOT])
	}
	back, err := novellaio.Unmarshal(res.Artifacts[FormatJSON])
	if err != nil || len(back.Scenes) != 2 {
		t.Errorf("json artifact did not round trip: %v", err)
	}
	if res.ProjectHash != cache.Hash(res.Artifacts[FormatJSON]) {
		t.Error("project hash is not the hash of the document")
	}

	again, err := r.Execute(ctx, p, Options{Formats: []string{FormatHTML, FormatDOT}, Title: "Fog"})
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheInfo.AllHit() {
		t.Errorf("second run hits = %v", again.CacheInfo.Hits)
	}
	if !bytes.Equal(again.Artifacts[FormatHTML], res.Artifacts[FormatHTML]) {
		t.Error("cached html differs")
	}
}

func TestCacheKeyFollowsContent(t *testing.T) {
	ctx := context.Background()
	r := newTestRunner(t)
	p := sampleProject()

	if _, _, err := r.Render(ctx, p, FormatHTML, Options{}); err != nil {
		t.Fatal(err)
	}
	p.Scenes[1].Title = "Lantern room"
	data, hit, err := r.Render(ctx, p, FormatHTML, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("edited project served from cache")
	}
	if !bytes.Contains(data, []byte("Lantern room")) {
		t.Error("fresh render missing edit")
	}

	if _, hit, _ := r.Render(ctx, p, FormatHTML, Options{Title: "Other"}); hit {
		t.Error("different title served from cache")
	}
	if _, hit, _ := r.Render(ctx, p, FormatHTML, Options{Refresh: true}); hit {
		t.Error("refresh served from cache")
	}
}

func TestExecuteEmptyProject(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	res, err := r.Execute(context.Background(), nil, Options{Formats: []string{FormatHTML, FormatJSON}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifacts[FormatHTML]) == 0 {
		t.Error("empty project produced no html")
	}
}

func TestExecuteRejectsUnknownFormat(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	if _, err := r.Execute(context.Background(), sampleProject(), Options{Formats: []string{"pdf"}}); err == nil {
		t.Error("unknown format accepted")
	}
}
