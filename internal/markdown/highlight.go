package markdown

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
)

// Highlighter re-emits <code class="PREFIXlang"> blocks of an HTML document
// with token markup. Everything outside those blocks is copied byte for byte.
type Highlighter struct {
	prefix    string
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewHighlighter creates a Highlighter emitting CSS classes for styleName.
func NewHighlighter(prefix, styleName string) *Highlighter {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &Highlighter{
		prefix:    prefix,
		style:     style,
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
	}
}

// WriteCSS writes the stylesheet matching the emitted classes.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter.WriteCSS(w, h.style)
}

// Highlight returns the document with known-language code blocks highlighted.
// changed is false when no block was rewritten.
func (h *Highlighter) Highlight(src []byte) (out []byte, changed bool, err error) {
	if !bytes.Contains(src, []byte(`class="`+h.prefix)) {
		return src, false, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(src) + len(src)/2)
	z := html.NewTokenizer(bytes.NewReader(src))

	var (
		inCode bool
		lang   string
		raw    bytes.Buffer // original bytes of the current block body
		text   strings.Builder
		plain  bool // block body only holds text
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, false, z.Err()
		}
		if !inCode {
			buf.Write(z.Raw())
			if tt == html.StartTagToken {
				if name, hasAttr := z.TagName(); string(name) == "code" && hasAttr {
					if l := h.languageOf(z); l != "" {
						inCode, lang, plain = true, l, true
						raw.Reset()
						text.Reset()
					}
				}
			}
			continue
		}

		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "code" {
				if plain && h.format(&buf, lang, text.String()) {
					changed = true
				} else {
					buf.Write(raw.Bytes())
				}
				buf.Write(z.Raw())
				inCode = false
				continue
			}
		}
		raw.Write(z.Raw())
		if tt == html.TextToken {
			text.Write(z.Text())
		} else {
			plain = false
		}
	}
	if inCode {
		buf.Write(raw.Bytes())
	}
	return buf.Bytes(), changed, nil
}

// languageOf reads the class attribute of the current start tag.
// TagName must have been called before.
func (h *Highlighter) languageOf(z *html.Tokenizer) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, class := range strings.Fields(string(val)) {
				if lang, ok := strings.CutPrefix(class, h.prefix); ok && lang != "" {
					return lang
				}
			}
		}
		if !more {
			return ""
		}
	}
}

func (h *Highlighter) format(w *bytes.Buffer, lang, code string) bool {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return false
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return false
	}
	var out bytes.Buffer
	if err := h.formatter.Format(&out, h.style, iterator); err != nil {
		return false
	}
	w.Write(out.Bytes())
	return true
}
