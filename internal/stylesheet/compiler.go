package stylesheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrImportCycle is returned when stylesheets import each other.
var ErrImportCycle = errors.New("stylesheet import cycle")

// ErrImportNotFound is returned when an @import target cannot be located.
var ErrImportNotFound = errors.New("stylesheet import not found")

// Compiler turns a stylesheet source into deployable CSS.
type Compiler interface {
	Compile(src []byte, sourcePath string) ([]byte, error)
}

// Options configures CSSCompiler.
type Options struct {
	// IncludePaths are searched for @import targets after the importing file's directory.
	IncludePaths []string
	Prefix       bool
	Compress     bool
}

// CSSCompiler inlines local @import rules, adds vendor prefixes and minifies.
type CSSCompiler struct {
	opts     Options
	minifier *minify.M
}

// NewCompiler creates a CSSCompiler.
func NewCompiler(opts Options) *CSSCompiler {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	return &CSSCompiler{opts: opts, minifier: m}
}

// Compile processes src, which was read from sourcePath.
func (c *CSSCompiler) Compile(src []byte, sourcePath string) ([]byte, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	out, err := c.process(src, abs, []string{abs})
	if err != nil {
		return nil, err
	}
	if !c.opts.Compress {
		return out, nil
	}
	minified, err := c.minifier.Bytes("text/css", out)
	if err != nil {
		return nil, fmt.Errorf("minify %s: %w", sourcePath, err)
	}
	return minified, nil
}

// process walks the css grammar of src, re-serializing it while inlining
// imports and applying prefixes. stack holds the files being processed.
func (c *CSSCompiler) process(src []byte, sourcePath string, stack []string) ([]byte, error) {
	var buf bytes.Buffer
	p := css.NewParser(parse.NewInputBytes(src), false)
	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return buf.Bytes(), nil
			}
			return nil, fmt.Errorf("%s: %w", sourcePath, p.Err())

		case css.AtRuleGrammar:
			if strings.EqualFold(string(data), "@import") {
				if target, ok := importTarget(p.Values()); ok {
					inlined, err := c.inline(target, sourcePath, stack)
					if err != nil {
						return nil, err
					}
					buf.Write(inlined)
					buf.WriteByte('\n')
					continue
				}
			}
			writeRule(&buf, data, p.Values())
			buf.WriteString(";")

		case css.BeginAtRuleGrammar:
			writeRule(&buf, data, p.Values())
			buf.WriteString("{")

		case css.QualifiedRuleGrammar:
			writeValues(&buf, p.Values())
			buf.WriteString(",")

		case css.BeginRulesetGrammar:
			writeValues(&buf, p.Values())
			buf.WriteString("{")

		case css.DeclarationGrammar:
			values := p.Values()
			if c.opts.Prefix {
				writePrefixed(&buf, string(data), values)
			}
			buf.Write(data)
			buf.WriteString(":")
			writeValues(&buf, values)
			buf.WriteString(";")

		case css.CustomPropertyGrammar:
			buf.Write(data)
			buf.WriteString(":")
			writeValues(&buf, p.Values())
			buf.WriteString(";")

		default:
			buf.Write(data)
		}
	}
}

// writeRule writes an at-rule name and its prelude. The parser keeps the
// whitespace separating the two as the first value.
func writeRule(buf *bytes.Buffer, name []byte, values []css.Token) {
	buf.Write(name)
	writeValues(buf, values)
}

func writeValues(buf *bytes.Buffer, values []css.Token) {
	for _, v := range values {
		buf.Write(v.Data)
	}
}

// importTarget returns the path of a local @import. Imports with media
// queries or remote URLs stay as they are.
func importTarget(values []css.Token) (string, bool) {
	var meaningful []css.Token
	for _, v := range values {
		if v.TokenType != css.WhitespaceToken {
			meaningful = append(meaningful, v)
		}
	}
	if len(meaningful) != 1 {
		return "", false
	}
	tok := meaningful[0]
	var target string
	switch tok.TokenType {
	case css.StringToken:
		target = unquote(string(tok.Data))
	case css.URLToken:
		inner := strings.TrimSuffix(strings.TrimPrefix(string(tok.Data), "url("), ")")
		target = unquote(strings.TrimSpace(inner))
	default:
		return "", false
	}
	if target == "" || strings.HasPrefix(target, "//") || strings.Contains(target, "://") {
		return "", false
	}
	return target, true
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func (c *CSSCompiler) inline(target, importer string, stack []string) ([]byte, error) {
	resolved, err := c.resolve(target, filepath.Dir(importer))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", importer, err)
	}
	for _, s := range stack {
		if s == resolved {
			return nil, fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(append(stack, resolved), " -> "))
		}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	return c.process(data, resolved, append(stack[:len(stack):len(stack)], resolved))
}

// resolve looks for target in dir and then each include path, trying the
// name as given, with a .css extension and as an underscore partial.
func (c *CSSCompiler) resolve(target, dir string) (string, error) {
	target = filepath.FromSlash(target)
	candidates := []string{target}
	if filepath.Ext(target) != ".css" {
		candidates = append(candidates, target+".css")
	}
	for _, cand := range append([]string(nil), candidates...) {
		d, f := filepath.Split(cand)
		if !strings.HasPrefix(f, "_") {
			candidates = append(candidates, filepath.Join(d, "_"+f))
		}
	}

	dirs := append([]string{dir}, c.opts.IncludePaths...)
	for _, d := range dirs {
		for _, cand := range candidates {
			p := cand
			if !filepath.IsAbs(p) {
				p = filepath.Join(d, cand)
			}
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				if abs, err := filepath.Abs(p); err == nil {
					return abs, nil
				}
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrImportNotFound, target)
}
