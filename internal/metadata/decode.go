package metadata

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// ErrNotObject is returned when a metadata document is not a JSON object.
var ErrNotObject = errors.New("metadata document must be a JSON object")

// ParseJSON decodes a JSON object into a Document, preserving key order.
func ParseJSON(data []byte) (*Document, error) {
	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	if dataType != jsonparser.Object {
		return nil, ErrNotObject
	}
	return decodeObject(raw)
}

func decodeObject(data []byte) (*Document, error) {
	doc := NewDocument()
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		v, err := decodeValue(value, dataType)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		doc.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeValue(data []byte, dataType jsonparser.ValueType) (Value, error) {
	switch dataType {
	case jsonparser.Object:
		doc, err := decodeObject(data)
		if err != nil {
			return Value{}, err
		}
		return Doc(doc), nil
	case jsonparser.Array:
		items := []Value{}
		var itemErr error
		_, err := jsonparser.ArrayEach(data, func(value []byte, dt jsonparser.ValueType, _ int, err error) {
			if itemErr != nil {
				return
			}
			if err != nil {
				itemErr = err
				return
			}
			v, err := decodeValue(value, dt)
			if err != nil {
				itemErr = fmt.Errorf("[%d]: %w", len(items), err)
				return
			}
			items = append(items, v)
		})
		if err == nil {
			err = itemErr
		}
		if err != nil {
			return Value{}, err
		}
		return List(items...), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return Value{}, err
		}
		return Scalar(s), nil
	case jsonparser.Number:
		if i, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			return Scalar(i), nil
		}
		f, err := jsonparser.ParseFloat(data)
		if err != nil {
			return Value{}, err
		}
		return Scalar(f), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return Value{}, err
		}
		return Scalar(b), nil
	case jsonparser.Null:
		return Scalar(nil), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %q", data)
	}
}
