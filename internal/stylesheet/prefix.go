package stylesheet

import (
	"bytes"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// propertyPrefixes lists properties that still need vendor-prefixed copies
// for the browsers the site supports.
var propertyPrefixes = map[string][]string{
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask-image":           {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-moz-", "-ms-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// valuePrefixes lists property values that need prefixed alternatives.
var valuePrefixes = map[string]map[string][]string{
	"position": {"sticky": {"-webkit-"}},
}

// writePrefixed emits the prefixed copies of a declaration, if any, ahead
// of the standard one.
func writePrefixed(buf *bytes.Buffer, property string, values []css.Token) {
	prop := strings.ToLower(property)
	for _, prefix := range propertyPrefixes[prop] {
		buf.WriteString(prefix)
		buf.WriteString(prop)
		buf.WriteString(":")
		writeValues(buf, values)
		buf.WriteString(";")
	}
	if byValue, ok := valuePrefixes[prop]; ok {
		var sb strings.Builder
		for _, v := range values {
			sb.Write(v.Data)
		}
		value := strings.ToLower(strings.TrimSpace(sb.String()))
		for _, prefix := range byValue[value] {
			buf.WriteString(prop)
			buf.WriteString(":")
			buf.WriteString(prefix)
			buf.WriteString(value)
			buf.WriteString(";")
		}
	}
}

// Prefix adds vendor prefixes to src without inlining imports or minifying.
func Prefix(src []byte) ([]byte, error) {
	c := &CSSCompiler{opts: Options{Prefix: true}}
	return c.process(src, "<inline>", nil)
}
