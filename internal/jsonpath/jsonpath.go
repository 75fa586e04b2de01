// Package jsonpath enumerates and resolves dot-separated paths ("$.a.b")
// over raw JSON documents.
//
// Documents are walked as bytes so object keys keep the order in which
// they appear in the document.
package jsonpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
)

// Root prefixes every path produced by Extract.
const Root = "$"

// ErrInvalidDocument is returned when a document cannot be parsed as JSON.
var ErrInvalidDocument = errors.New("invalid JSON document")

// Extract returns the addressable leaf paths of an object document in key
// order. Objects with at least one key are descended into; scalars, nulls
// and arrays are leaves. Empty objects contribute no paths, and a document
// whose root is not an object yields an empty list.
func Extract(raw []byte) ([]string, error) {
	value, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	paths := []string{}
	if dataType != jsonparser.Object {
		return paths, nil
	}

	if err := walk(value, Root, &paths); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return paths, nil
}

func walk(object []byte, prefix string, paths *[]string) error {
	ms, err := members(object)
	if err != nil {
		return err
	}
	for _, m := range ms {
		path := prefix + "." + m.key
		if m.dataType == jsonparser.Object {
			if err := walk(m.value, path, paths); err != nil {
				return err
			}
			continue
		}
		*paths = append(*paths, path)
	}
	return nil
}

type member struct {
	key      string
	value    []byte
	dataType jsonparser.ValueType
}

// members lists the keys of object in order of first appearance. A key
// repeated in the document keeps its first position and its last value,
// which is what encoding/json and JSON.parse both resolve it to.
func members(object []byte) ([]member, error) {
	var ms []member
	index := map[string]int{}
	err := jsonparser.ObjectEach(object, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		m := member{key: string(key), value: value, dataType: dataType}
		if i, ok := index[m.key]; ok {
			ms[i] = m
			return nil
		}
		index[m.key] = len(ms)
		ms = append(ms, m)
		return nil
	})
	return ms, err
}

// Segments splits a path into its keys. The "$." prefix is optional.
func Segments(path string) []string {
	clean := strings.TrimPrefix(path, Root+".")
	if clean == "" {
		return nil
	}
	return strings.Split(clean, ".")
}

// Lookup resolves path against raw. The second result is false when any
// segment along the way is missing or the document is not valid JSON; a
// JSON null leaf is found and returned as nil. Segments match object keys
// literally, so "items[0]" never indexes into an array.
func Lookup(raw []byte, path string) (any, bool) {
	keys := Segments(path)
	if len(keys) == 0 {
		return nil, false
	}

	value, dataType, _, err := jsonparser.Get(raw)
	if err != nil {
		return nil, false
	}
	for _, key := range keys {
		if dataType != jsonparser.Object {
			return nil, false
		}
		ms, err := members(value)
		if err != nil {
			return nil, false
		}
		found := false
		for _, m := range ms {
			if m.key == key {
				value, dataType, found = m.value, m.dataType, true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	v, err := decode(value, dataType)
	if err != nil {
		return nil, false
	}
	return v, true
}

// decode converts a jsonparser value into the Go value encoding/json
// would have produced.
func decode(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return jsonparser.ParseFloat(value)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	case jsonparser.Object, jsonparser.Array:
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %s", dataType)
	}
}

// IsEmpty reports whether v carries no usable value. JSON null and the
// empty string count as empty; callers treat a failed Lookup the same way.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}
