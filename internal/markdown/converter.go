// Package markdown converts Markdown items to HTML and highlights code blocks.
package markdown

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// ErrConversion indicates Markdown conversion failed.
var ErrConversion = errors.New("markdown conversion failed")

// Converter turns a Markdown body into an HTML fragment.
type Converter interface {
	Convert(src []byte) ([]byte, error)
}

// GoldmarkConverter converts with goldmark: GFM, heading ids and raw HTML passthrough.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewConverter creates a GoldmarkConverter. Fenced code blocks get a
// class of langPrefix+language so the highlighter can find them.
func NewConverter(langPrefix string) *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&fencedCodeRenderer{prefix: langPrefix}, 100)),
		),
	)
	return &GoldmarkConverter{md: md}
}

// Convert renders src to HTML.
func (c *GoldmarkConverter) Convert(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return buf.Bytes(), nil
}

// fencedCodeRenderer replaces goldmark's fenced code output to control the
// language class prefix.
type fencedCodeRenderer struct {
	prefix string
}

func (r *fencedCodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.render)
}

func (r *fencedCodeRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	_, _ = w.WriteString("<pre><code")
	if lang := n.Language(source); len(lang) > 0 {
		_, _ = w.WriteString(` class="`)
		_, _ = w.Write(util.EscapeHTML([]byte(r.prefix)))
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(line.Value(source)))
	}
	return ast.WalkContinue, nil
}
