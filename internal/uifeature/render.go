package uifeature

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwtly10/shadertpl"
)

// Context is the template and config the features are shown for.
type Context struct {
	Document *shadertpl.Document
	Config   *shadertpl.Config
}

// Features returns the parsed features of the document
func (c Context) Features() []*Feature {
	var out []*Feature
	for _, f := range c.Document.UIFeatures {
		if f, ok := f.(*Feature); ok {
			out = append(out, f)
		}
	}
	return out
}

// Visible reports whether every feature f needs is enabled
func (c Context) Visible(f *Feature) bool {
	return needsMet(f.Needs, c.Config)
}

// Enabled reports whether f is turned on in the config. A group is enabled
// when any feature inside it is.
func (c Context) Enabled(f *Feature) bool {
	switch f.Kind {
	case KindSingle:
		return c.Config.Features.Has(f.Keyword)
	case KindMultiple:
		return f.anyOptionSet(c.Config)
	case KindKeyword:
		return c.Config.KeywordSet(f.Keyword)
	case KindGroup:
		for _, child := range f.Children {
			if c.Enabled(child) {
				return true
			}
		}
	}
	return false
}

// Selected returns the label of the chosen option of a mult feature
func (c Context) Selected(f *Feature) string {
	for _, o := range f.Options {
		if o.Keyword != "" && c.Config.Features.Has(o.Keyword) {
			return o.Label
		}
	}
	if len(f.Options) > 0 {
		return f.defaultOption().Label
	}
	return ""
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	groupStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	onStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	offStyle     = lipgloss.NewStyle().Faint(true)
	tooltipStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// Render writes the visible features of the context's template, one per line
func Render(ctx Context, w io.Writer) error {
	var b strings.Builder
	for _, f := range ctx.Features() {
		renderFeature(&b, ctx, f, 0)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("rendering features: %w", err)
	}
	return nil
}

func renderFeature(b *strings.Builder, ctx Context, f *Feature, depth int) {
	if !ctx.Visible(f) {
		return
	}
	indent := strings.Repeat("  ", depth)

	var line string
	switch f.Kind {
	case KindHeader:
		line = headerStyle.Render(f.Label)
	case KindSpace:
		line = ""
	case KindWarning:
		line = warningStyle.Render("! " + f.Label)
	case KindGroup:
		marker := "▸"
		if ctx.Enabled(f) {
			marker = "▾"
		}
		line = groupStyle.Render(marker + " " + f.Label)
	case KindSingle:
		line = check(ctx.Enabled(f)) + " " + f.Label
	case KindMultiple:
		line = f.Label + ": " + onStyle.Render(ctx.Selected(f))
	case KindKeyword:
		value := ctx.Config.Keyword(f.Keyword)
		if value == "" {
			value = f.Default
		}
		line = f.Label + ": " + onStyle.Render(value)
	}
	if f.Tooltip != "" {
		line += " " + tooltipStyle.Render("("+f.Tooltip+")")
	}
	b.WriteString(indent + line + "\n")

	for _, c := range f.Children {
		renderFeature(b, ctx, c, depth+1)
	}
}

func check(on bool) string {
	if on {
		return onStyle.Render("[x]")
	}
	return offStyle.Render("[ ]")
}
