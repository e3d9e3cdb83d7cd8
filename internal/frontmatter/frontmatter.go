package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml front matter start delimiter found but closing delimiter is missing")

// ErrInvalidYAML wraps YAML decoding failures of the front matter block.
var ErrInvalidYAML = errors.New("invalid yaml front matter")

// Split separates YAML front matter (`---` delimited) from the body.
//
// If the document does not start with a delimiter line, had is false and body
// is the full input. CRLF documents are handled.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := []byte("\n")
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = []byte("\r\n")
	}
	delim := append([]byte("---"), nl...)
	if !bytes.HasPrefix(content, delim) {
		return nil, content, false, nil
	}
	rest := content[len(delim):]
	if bytes.HasPrefix(rest, delim) {
		return []byte{}, rest[len(delim):], true, nil
	}

	closing := append(append([]byte{}, nl...), delim...)
	idx := bytes.Index(rest, closing)
	if idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closing):], true, nil
	}
	// Closing delimiter as the final line without a trailing newline.
	tail := append(append([]byte{}, nl...), []byte("---")...)
	if bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// Parse splits content and decodes the front matter into a map. Documents
// without front matter yield an empty map and the unchanged body.
func Parse(content []byte) (fields map[string]any, body []byte, err error) {
	fm, body, had, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields = map[string]any{}
	if !had || len(bytes.TrimSpace(fm)) == 0 {
		return fields, body, nil
	}
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, body, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Date interprets a front matter value as a timestamp. yaml.v3 leaves timestamps
// decoded into interface values as strings, so those are parsed with common layouts.
func Date(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case *time.Time:
		if d == nil {
			return time.Time{}, false
		}
		return *d, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// String returns a front matter value as a string when it is one.
func String(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok
}
