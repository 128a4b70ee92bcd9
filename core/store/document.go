package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the fixed-width UTC layout every timestamp is stored with,
// so that comparing two stored timestamps as strings compares them chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

type (
	// Document is the stored shape of a record: JSON-compatible values keyed by field name.
	// Numbers are float64, timestamps are strings in TimeLayout.
	Document map[string]interface{}

	// Fields holds the partial data merged into a record by an update.
	Fields map[string]interface{}

	Record struct {
		ID   string
		Data Document
	}
)

// FormatTime formats t the way the store persists timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Encode turns v into a Document through its JSON representation.
// idField is removed from the result: the id of a record lives outside its data.
func Encode(v interface{}, idField string) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	if doc == nil {
		return nil, errors.New("encoding record: not an object")
	}
	delete(doc, idField)
	return Normalize(doc).(Document), nil
}

// Decode fills out from doc, injecting id under idField.
func Decode(doc Document, id, idField string, out interface{}) error {
	data := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		data[k] = v
	}
	data[idField] = id
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "decoding record")
	}
	return errors.Wrap(json.Unmarshal(b, out), "decoding record")
}

// EncodeValue converts a single filter or field value to its stored representation.
func EncodeValue(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case nil, bool, string, float64:
		return Normalize(v), nil
	case time.Time:
		return FormatTime(v), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding value")
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "encoding value")
	}
	return Normalize(out), nil
}

// EncodeFields converts every value of f.
func EncodeFields(f Fields) (Document, error) {
	doc := make(Document, len(f))
	for k, v := range f {
		ev, err := EncodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", k)
		}
		doc[k] = ev
	}
	return doc, nil
}

// Normalize rewrites, recursively, every timestamp-looking string in v to TimeLayout.
func Normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case Document:
		for k, e := range v {
			v[k] = Normalize(e)
		}
		return v
	case map[string]interface{}:
		for k, e := range v {
			v[k] = Normalize(e)
		}
		return v
	case []interface{}:
		for i, e := range v {
			v[i] = Normalize(e)
		}
		return v
	case string:
		return normalizeTime(v)
	default:
		return v
	}
}

func normalizeTime(s string) string {
	// cheap shape check before parsing: "YYYY-MM-DDTHH:MM:SS..."
	if len(s) < 20 || s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}

// Lookup returns the value at a dotted path inside doc.
func Lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		var m map[string]interface{}
		switch c := cur.(type) {
		case Document:
			m = c
		case map[string]interface{}:
			m = c
		default:
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Clone deep-copies doc.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(Document)
}

func cloneValue(v interface{}) interface{} {
	switch v := v.(type) {
	case Document:
		out := make(Document, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
