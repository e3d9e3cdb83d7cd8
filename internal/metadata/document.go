package metadata

import "strings"

// Document is an ordered mapping from string keys to values.
type Document struct {
	keys   []string
	values map[string]Value
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{values: map[string]Value{}}
}

// Len returns the number of keys.
func (d *Document) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set stores v under key. Existing keys keep their position.
func (d *Document) Set(key string, v Value) *Document {
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
	return d
}

// Lookup resolves a dotted path such as "nav.download".
func (d *Document) Lookup(path string) (Value, bool) {
	cur := d
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.Document()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return Value{}, false
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := &Document{keys: make([]string, len(d.keys)), values: make(map[string]Value, len(d.values))}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v.Clone()
	}
	return out
}

// Native converts the document to a map for template contexts.
func (d *Document) Native() map[string]any {
	out := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		out[k] = d.values[k].Native()
	}
	return out
}

// Equal reports deep equality including key order.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.keys) != len(o.keys) {
		return false
	}
	for i, k := range d.keys {
		if o.keys[i] != k || !d.values[k].Equal(o.values[k]) {
			return false
		}
	}
	return true
}
