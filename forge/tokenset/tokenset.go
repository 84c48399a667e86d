package tokenset

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
)

// Variant selects how a run obtains its special tokens.
type Variant string

const (
	// VariantInline parses a user-supplied comma separated list.
	VariantInline Variant = "inline"
	// VariantFixedDefault always uses the five base tokens.
	VariantFixedDefault Variant = "fixed-default"
)

// ParseVariant accepts the variant names and the "file" alias used by the CLI.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(VariantInline):
		return VariantInline, nil
	case string(VariantFixedDefault), "file":
		return VariantFixedDefault, nil
	}
	return "", fmt.Errorf("unknown token set variant %q", s)
}

// TokenSet is an ordered list of special/seed tokens. Duplicates are kept.
type TokenSet []string

// Join renders the set in the form Resolve accepts.
func (ts TokenSet) Join() string {
	return strings.Join(ts, ", ")
}

// Strings returns a copy of the tokens.
func (ts TokenSet) Strings() []string {
	out := make([]string, len(ts))
	copy(out, ts)
	return out
}

var baseTokens = TokenSet{"<unk>", "<s>", "</s>", "<pad>", "<mask>"}

// FixedDefault returns the built-in token set of the file pipeline.
func FixedDefault() TokenSet {
	return TokenSet(baseTokens.Strings())
}

// Resolve produces the token set for a run. The fixed-default variant
// ignores raw.
func Resolve(variant Variant, raw string) (TokenSet, error) {
	switch variant {
	case VariantInline:
		return Split(raw)
	case VariantFixedDefault:
		return FixedDefault(), nil
	}
	return nil, fmt.Errorf("unknown token set variant %q", variant)
}

// Split parses a comma separated token list. Pieces are trimmed and empty
// pieces dropped; an empty result is an input error.
func Split(raw string) (TokenSet, error) {
	parts := strings.Split(raw, ",")
	out := make(TokenSet, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, common.EmptyInput(common.StageResolve, "no tokens provided")
	}
	return out, nil
}
