package metadata

import (
	"fmt"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindList
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindDocument:
		return "document"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a metadata value: a scalar (string, int64, float64, bool or nil),
// a list of values, or a nested document.
type Value struct {
	kind   Kind
	scalar any
	list   []Value
	doc    *Document
}

// Scalar wraps a string, number, bool or nil.
func Scalar(v any) Value {
	switch n := v.(type) {
	case int:
		v = int64(n)
	case int32:
		v = int64(n)
	case float32:
		v = float64(n)
	}
	return Value{kind: KindScalar, scalar: v}
}

// List wraps a sequence of values.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Doc wraps a nested document.
func Doc(d *Document) Value {
	if d == nil {
		d = NewDocument()
	}
	return Value{kind: KindDocument, doc: d}
}

func (v Value) Kind() Kind { return v.kind }

// Scalar returns the scalar payload when v is a scalar.
func (v Value) Scalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// List returns the items when v is a list.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Document returns the nested document when v is a document.
func (v Value) Document() (*Document, bool) {
	if v.kind != KindDocument {
		return nil, false
	}
	return v.doc, true
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	case KindDocument:
		return Doc(v.doc.Clone())
	default:
		return v
	}
}

// Native converts the value into plain Go values for template contexts.
func (v Value) Native() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindDocument:
		return v.doc.Native()
	default:
		return v.scalar
	}
}

// String renders scalars as text; lists and documents use a compact form.
func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		if v.scalar == nil {
			return ""
		}
		return fmt.Sprint(v.scalar)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "{" + strings.Join(v.doc.Keys(), " ") + "}"
	}
}

// Equal reports deep equality, including key order of documents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindDocument:
		return v.doc.Equal(o.doc)
	default:
		return v.scalar == o.scalar
	}
}
