package artifact

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/matzehuels/novella/pkg/buildinfo"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/story"
)

//go:embed templates/story.html templates/player.js
var templatesFS embed.FS

var (
	page   = template.Must(template.ParseFS(templatesFS, "templates/story.html"))
	player = mustRead("templates/player.js")
)

func mustRead(name string) string {
	b, err := templatesFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

const (
	DefaultTitle     = "Novella Preview"
	DefaultLang      = "en"
	DefaultEmptyText = "This story has no scenes yet."
)

// Options configures the exported document.
type Options struct {
	// Title is the document title. Defaults to DefaultTitle.
	Title string
	// Lang is the html lang attribute. Defaults to DefaultLang.
	Lang string
	// Start is the id of the scene playback starts at. When it names no
	// scene, playback starts at the first one.
	Start string
	// EmptyText is shown when the project has no scenes.
	EmptyText string
}

// Option modifies Options.
type Option func(*Options)

// WithTitle sets the document title.
func WithTitle(title string) Option { return func(o *Options) { o.Title = title } }

// WithLang sets the document language.
func WithLang(lang string) Option { return func(o *Options) { o.Lang = lang } }

// WithStart sets the scene playback starts at.
func WithStart(sceneID string) Option { return func(o *Options) { o.Start = sceneID } }

// WithEmptyText sets the message shown for a project without scenes.
func WithEmptyText(text string) Option { return func(o *Options) { o.EmptyText = text } }

type pageData struct {
	Title     string
	Lang      string
	Version   string
	EmptyText string
	Data      template.JS
	Config    template.JS
	Script    template.JS
}

type config struct {
	Start string `json:"start,omitempty"`
}

// RenderHTML produces a single self-contained HTML document that plays p.
// An empty project renders a document showing the empty-state message.
func RenderHTML(p *story.Project, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, p, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML writes the document produced by [RenderHTML] to w.
func WriteHTML(w io.Writer, p *story.Project, opts ...Option) error {
	o := Options{Title: DefaultTitle, Lang: DefaultLang, EmptyText: DefaultEmptyText}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Lang == "" {
		o.Lang = DefaultLang
	}

	// The JSON encoder escapes <, > and &, so the snapshot cannot close the
	// script element it is embedded in.
	data, err := novellaio.Marshal(p)
	if err != nil {
		return fmt.Errorf("serialize project: %w", err)
	}
	cfg, err := json.Marshal(config{Start: o.Start})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	err = page.Execute(w, pageData{
		Title:     o.Title,
		Lang:      o.Lang,
		Version:   buildinfo.Short(),
		EmptyText: o.EmptyText,
		Data:      template.JS(bytes.TrimSpace(data)),
		Config:    template.JS(cfg),
		Script:    template.JS(player),
	})
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
