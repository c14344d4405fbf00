// Package docs renders the reference page of a template: its description,
// UI features and properties, as Markdown or HTML.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jwtly10/shadertpl"
	"github.com/jwtly10/shadertpl/internal/uifeature"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

type Generator struct {
	gm goldmark.Markdown
}

func NewGenerator() *Generator {
	return &Generator{
		gm: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Markdown writes the reference page of doc
func (g *Generator) Markdown(doc *shadertpl.Document, w io.Writer) error {
	var b strings.Builder

	title := doc.ID
	if title == "" {
		title = doc.Metadata.Source
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.Type != "" {
		fmt.Fprintf(&b, "Type: `%s`\n\n", doc.Type)
	}
	if doc.Info != "" {
		b.WriteString(strings.ReplaceAll(doc.Info, "\n", "\n\n"))
		b.WriteString("\n\n")
	}
	if doc.Warning != "" {
		fmt.Fprintf(&b, "> **Warning:** %s\n\n", strings.ReplaceAll(doc.Warning, "\n", " "))
	}

	var features []*uifeature.Feature
	for _, f := range doc.UIFeatures {
		if f, ok := f.(*uifeature.Feature); ok {
			features = append(features, f)
		}
	}
	if len(features) > 0 {
		b.WriteString("## Features\n\n")
		for _, f := range features {
			writeFeature(&b, f, 0)
		}
		b.WriteString("\n")
	}

	if len(doc.Properties) > 0 {
		b.WriteString("## Properties\n\n")
		inTable := false
		for i, p := range doc.Properties {
			if h, ok := doc.Headers[i]; ok {
				if inTable {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "### %s\n\n", h.Label)
				if h.Tooltip != "" {
					fmt.Fprintf(&b, "%s\n\n", h.Tooltip)
				}
				inTable = false
			}
			if !inTable {
				b.WriteString("| Name | Type | Program | Implementations | Needs |\n")
				b.WriteString("|---|---|---|---|---|\n")
				inTable = true
			}
			kinds := make([]string, len(p.Implementations))
			for j, imp := range p.Implementations {
				kinds[j] = imp.Kind()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				label(p), p.Type, p.Program, strings.Join(kinds, ", "), strings.Join(p.NeededFeatures(), ", "))
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing docs: %w", err)
	}
	return nil
}

// HTML writes the reference page of doc converted to HTML
func (g *Generator) HTML(doc *shadertpl.Document, w io.Writer) error {
	var md bytes.Buffer
	if err := g.Markdown(doc, &md); err != nil {
		return err
	}
	if err := g.gm.Convert(md.Bytes(), w); err != nil {
		return fmt.Errorf("converting docs to html: %w", err)
	}
	return nil
}

// Outline returns the section titles of a Markdown page, indented by level
func (g *Generator) Outline(md []byte) []string {
	var out []string
	root := g.gm.Parser().Parse(text.NewReader(md))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		var title bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				title.Write(t.Segment.Value(md))
			}
		}
		out = append(out, strings.Repeat("  ", h.Level-1)+title.String())
		return ast.WalkSkipChildren, nil
	})
	return out
}

func writeFeature(b *strings.Builder, f *uifeature.Feature, depth int) {
	indent := strings.Repeat("  ", depth)
	switch f.Kind {
	case uifeature.KindSpace:
		return
	case uifeature.KindHeader:
		fmt.Fprintf(b, "%s- *%s*\n", indent, f.Label)
	case uifeature.KindWarning:
		fmt.Fprintf(b, "%s- ⚠ %s\n", indent, f.Label)
	case uifeature.KindGroup:
		fmt.Fprintf(b, "%s- **%s**\n", indent, f.Label)
	case uifeature.KindMultiple:
		choices := make([]string, len(f.Options))
		for i, o := range f.Options {
			choices[i] = o.Label
		}
		fmt.Fprintf(b, "%s- **%s**: %s\n", indent, f.Label, strings.Join(choices, " / "))
	default:
		fmt.Fprintf(b, "%s- **%s** (`%s`)", indent, f.Label, f.Keyword)
		if f.Tooltip != "" {
			fmt.Fprintf(b, ": %s", f.Tooltip)
		}
		b.WriteString("\n")
	}
	for _, c := range f.Children {
		writeFeature(b, c, depth+1)
	}
}

func label(p *shadertpl.Property) string {
	if p.Label != "" && p.Label != p.Name {
		return fmt.Sprintf("%s (%s)", p.Name, p.Label)
	}
	return p.Name
}
