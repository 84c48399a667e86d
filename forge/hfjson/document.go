package hfjson

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// DocumentVersion is the tokenizer.json schema version written.
const DocumentVersion = "1.0"

// AddedToken is an entry of tokenizer.json "added_tokens".
type AddedToken struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	LStrip     bool   `json:"lstrip"`
	RStrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

// ByteLevel is the shared shape of the ByteLevel pre-tokenizer and decoder.
type ByteLevel struct {
	Type           string `json:"type"`
	AddPrefixSpace bool   `json:"add_prefix_space"`
	TrimOffsets    bool   `json:"trim_offsets"`
	UseRegex       bool   `json:"use_regex"`
}

// NewByteLevel returns the ByteLevel component config used for training.
func NewByteLevel(addPrefixSpace bool) *ByteLevel {
	return &ByteLevel{Type: "ByteLevel", AddPrefixSpace: addPrefixSpace, TrimOffsets: true, UseRegex: true}
}

// Merge is one merge rule, "left right". On read it accepts both the
// string form and the ["left","right"] pair form.
type Merge string

// UnmarshalJSON accepts "a b" or ["a","b"].
func (m *Merge) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Merge(s)
		return nil
	}
	var pair []string
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("merge rule must be a string or a pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("merge rule pair has %d elements", len(pair))
	}
	*m = Merge(pair[0] + " " + pair[1])
	return nil
}

// BPEModel is the "model" section for a BPE tokenizer.
type BPEModel struct {
	Type                    string   `json:"type"`
	Dropout                 *float64 `json:"dropout"`
	UnkToken                *string  `json:"unk_token"`
	ContinuingSubwordPrefix *string  `json:"continuing_subword_prefix"`
	EndOfWordSuffix         *string  `json:"end_of_word_suffix"`
	FuseUnk                 bool     `json:"fuse_unk"`
	ByteFallback            bool     `json:"byte_fallback"`
	Vocab                   Vocab    `json:"vocab"`
	Merges                  []Merge  `json:"merges"`
}

// Document is the full-state tokenizer.json.
type Document struct {
	Version       string          `json:"version"`
	Truncation    json.RawMessage `json:"truncation"`
	Padding       json.RawMessage `json:"padding"`
	AddedTokens   []AddedToken    `json:"added_tokens"`
	Normalizer    json.RawMessage `json:"normalizer"`
	PreTokenizer  *ByteLevel      `json:"pre_tokenizer"`
	PostProcessor json.RawMessage `json:"post_processor"`
	Decoder       *ByteLevel      `json:"decoder"`
	Model         BPEModel        `json:"model"`
}

var null = json.RawMessage("null")

// NewDocument assembles a byte-level BPE tokenizer.json. Special tokens
// missing from vocab are skipped; repeated ones are listed once.
func NewDocument(specials []string, vocab map[string]int, merges []string) *Document {
	added := make([]AddedToken, 0, len(specials))
	seen := make(map[string]struct{}, len(specials))
	for _, s := range specials {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		id, ok := vocab[s]
		if !ok {
			continue
		}
		added = append(added, AddedToken{ID: id, Content: s, Special: true})
	}

	ms := make([]Merge, len(merges))
	for i, m := range merges {
		ms[i] = Merge(m)
	}

	return &Document{
		Version:       DocumentVersion,
		Truncation:    null,
		Padding:       null,
		AddedTokens:   added,
		Normalizer:    null,
		PreTokenizer:  NewByteLevel(true),
		PostProcessor: null,
		Decoder:       NewByteLevel(true),
		Model: BPEModel{
			Type:   "BPE",
			Vocab:  Vocab(vocab),
			Merges: ms,
		},
	}
}

// Encode renders the document with two-space indentation.
func (d *Document) Encode() ([]byte, error) {
	return Marshal(d, "  ")
}

// MergeStrings returns the model merges in document order.
func (d *Document) MergeStrings() []string {
	out := make([]string, len(d.Model.Merges))
	for i, m := range d.Model.Merges {
		out[i] = string(m)
	}
	return out
}

// ParseDocument decodes a tokenizer.json. Only BPE models are accepted.
func ParseDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid tokenizer.json: %w", err)
	}
	if !strings.EqualFold(d.Model.Type, "BPE") {
		return nil, fmt.Errorf("unsupported tokenizer model %q", d.Model.Type)
	}
	return &d, nil
}
