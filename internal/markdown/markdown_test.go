package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert_GFMAndHeadingIDs(t *testing.T) {
	c := NewConverter("language-")

	out, err := c.Convert([]byte("# Hello World\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~old~~\n\n<div class=\"raw\">kept</div>\n"))
	require.NoError(t, err)

	html := string(out)
	require.Contains(t, html, `<h1 id="hello-world">Hello World</h1>`)
	require.Contains(t, html, "<table>")
	require.Contains(t, html, "<del>old</del>")
	require.Contains(t, html, `<div class="raw">kept</div>`)
}

func TestConvert_FencedCodeUsesPrefix(t *testing.T) {
	out, err := NewConverter("lang-").Convert([]byte("```js\nif (a < b) {}\n```\n\n```\nplain\n```\n"))
	require.NoError(t, err)

	html := string(out)
	require.Contains(t, html, `<pre><code class="lang-js">if (a &lt; b) {}`+"\n"+`</code></pre>`)
	require.Contains(t, html, "<pre><code>plain\n</code></pre>")
}

func TestHighlight_RewritesKnownLanguages(t *testing.T) {
	h := NewHighlighter("language-", "github")
	src := `<p>intro &amp; more</p>
<pre><code class="language-go">func main() { x := 1 &lt; 2 }
</code></pre>
<pre><code class="language-nosuchlang">keep &lt;me&gt;</code></pre>
<p>outro</p>`

	out, changed, err := h.Highlight([]byte(src))
	require.NoError(t, err)
	require.True(t, changed)

	html := string(out)
	require.True(t, strings.HasPrefix(html, "<p>intro &amp; more</p>\n<pre><code class=\"language-go\">"))
	require.Contains(t, html, `<span class="kd">func</span>`)
	require.Contains(t, html, "&lt;")
	require.Contains(t, html, `<pre><code class="language-nosuchlang">keep &lt;me&gt;</code></pre>`)
	require.True(t, strings.HasSuffix(html, "<p>outro</p>"))
}

func TestHighlight_UntouchedWithoutBlocks(t *testing.T) {
	h := NewHighlighter("language-", "does-not-exist")
	src := []byte("<!DOCTYPE html><html><body><code>inline</code></body></html>")

	out, changed, err := h.Highlight(src)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, src, out)
}

func TestHighlight_NestedMarkupIsPreserved(t *testing.T) {
	h := NewHighlighter("language-", "github")
	src := `<code class="language-js">var <b>x</b> = 1;</code>`

	out, changed, err := h.Highlight([]byte(src))
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, src, string(out))
}

func TestHighlighter_WriteCSS(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, NewHighlighter("language-", "github").WriteCSS(&sb))
	require.Contains(t, sb.String(), ".chroma")
}
