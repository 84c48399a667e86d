// Package hfjson reads and writes the JSON artifact formats of the
// Hugging Face tokenizers ecosystem: tokenizer.json, vocab.json and the
// small map/config files next to them.
package hfjson

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

// Marshal renders v with the given indent. HTML characters and non-ASCII
// text are written literally.
func Marshal(v any, indent string) ([]byte, error) {
	if indent == "" {
		return json.MarshalWithOption(v, json.DisableHTMLEscape())
	}
	return json.MarshalIndentWithOption(v, "", indent, json.DisableHTMLEscape())
}

// Field is one key of an ordered object.
type Field struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its key order.
type Object []Field

// MarshalJSON writes the fields in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.MarshalWithOption(f.Key, json.DisableHTMLEscape())
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.MarshalWithOption(f.Value, json.DisableHTMLEscape())
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Entry is one vocabulary item.
type Entry struct {
	Token string
	ID    int
}

// Vocab maps tokens to ids. It encodes in ascending id order.
type Vocab map[string]int

// Entries returns the vocabulary sorted by id, then token.
func (v Vocab) Entries() []Entry {
	out := make([]Entry, 0, len(v))
	for tok, id := range v {
		out = append(out, Entry{Token: tok, ID: id})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// MarshalJSON writes the vocabulary ordered by id.
func (v Vocab) MarshalJSON() ([]byte, error) {
	entries := v.Entries()
	obj := make(Object, len(entries))
	for i, e := range entries {
		obj[i] = Field{Key: e.Token, Value: e.ID}
	}
	return obj.MarshalJSON()
}
