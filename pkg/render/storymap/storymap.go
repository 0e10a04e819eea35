package storymap

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/novella/pkg/richtext"
	"github.com/matzehuels/novella/pkg/story"
)

// UntitledScene labels scenes with an empty title.
const UntitledScene = "Untitled"

// Options configures story map generation.
type Options struct {
	// Detailed adds a body excerpt and a list of dead-end choices to each
	// scene label.
	Detailed bool
	// ExcerptLength caps the body excerpt in detailed labels. Defaults to 60.
	ExcerptLength int
}

// ToDOT converts a project to Graphviz DOT. Every scene becomes a box, the
// first scene is drawn with a double border, and every choice with an
// existing target becomes an edge labeled with the choice text.
func ToDOT(p *story.Project, opts Options) string {
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = 60
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=16, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=12];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	if p == nil {
		p = story.NewProject()
	}
	for i, sc := range p.Scenes {
		attrs := []string{fmt.Sprintf("label=%q", sceneLabel(p, sc, opts))}
		if i == 0 {
			attrs = append(attrs, "peripheries=2")
		}
		if len(sc.Choices) == 0 {
			attrs = append(attrs, "fillcolor=\"#f1f5f9\"")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", sc.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, sc := range p.Scenes {
		for _, c := range sc.Choices {
			if !c.HasTarget() || p.Scene(c.Target) == nil {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", sc.ID, c.Target, richtext.Summary(c.Text, 40))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// SceneTitle returns the display title of a scene.
func SceneTitle(sc *story.Scene) string {
	if t := strings.TrimSpace(sc.Title); t != "" {
		return t
	}
	return UntitledScene
}

func sceneLabel(p *story.Project, sc *story.Scene, opts Options) string {
	title := SceneTitle(sc)
	if !opts.Detailed {
		return title
	}

	parts := []string{title}
	if excerpt := richtext.Summary(sc.Body, opts.ExcerptLength); excerpt != "" {
		parts = append(parts, excerpt)
	}
	for _, c := range sc.Choices {
		if !c.HasTarget() || p.Scene(c.Target) == nil {
			parts = append(parts, "• "+richtext.Summary(c.Text, 40)+" (no target)")
		}
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the map scales to its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
