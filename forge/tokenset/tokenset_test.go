package tokenset

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TokenSet
	}{
		{"single", "<unk>", TokenSet{"<unk>"}},
		{"trims whitespace", "  <unk> ,\t<s>\n, </s>  ", TokenSet{"<unk>", "<s>", "</s>"}},
		{"drops empty pieces", ",,<unk>,, ,<s>,", TokenSet{"<unk>", "<s>"}},
		{"keeps duplicates in order", "<s>, <unk>, <s>", TokenSet{"<s>", "<unk>", "<s>"}},
		{"keeps inner spaces", "hello world, <s>", TokenSet{"hello world", "<s>"}},
		{"non ascii", "<юзер>, ₽, ß", TokenSet{"<юзер>", "₽", "ß"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, input := range []string{"", " ", ",", " , ,\n, ", "\t"} {
		_, err := Split(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, common.ErrEmptyInput)
		assert.Equal(t, "no tokens provided", common.UserMessage(err))
	}
}

func TestSplitMatchesReferenceAndIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"<", ">", "a", "б", "/", "s", "_", "₽", "x"}
	pads := []string{"", " ", "  ", "\t", "\n", " \t "}

	for i := 0; i < 500; i++ {
		var pieces []string
		var want TokenSet
		for j := rng.Intn(8); j >= 0; j-- {
			var tok strings.Builder
			for k := rng.Intn(5); k > 0; k-- {
				tok.WriteString(alphabet[rng.Intn(len(alphabet))])
			}
			if tok.Len() > 0 {
				want = append(want, tok.String())
			}
			pieces = append(pieces, pads[rng.Intn(len(pads))]+tok.String()+pads[rng.Intn(len(pads))])
		}
		raw := strings.Join(pieces, ",")

		got, err := Split(raw)
		if len(want) == 0 {
			assert.ErrorIs(t, err, common.ErrEmptyInput, "raw %q", raw)
			continue
		}
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, want, got, "raw %q", raw)

		again, err := Split(got.Join())
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestResolve(t *testing.T) {
	inline, err := Resolve(VariantInline, "<unk>, <s>")
	require.NoError(t, err)
	assert.Equal(t, TokenSet{"<unk>", "<s>"}, inline)

	for _, raw := range []string{"", "<unk>, <s>", "anything at all", DefaultInlineText()} {
		got, err := Resolve(VariantFixedDefault, raw)
		require.NoError(t, err)
		assert.Equal(t, TokenSet{"<unk>", "<s>", "</s>", "<pad>", "<mask>"}, got)
	}

	_, err = Resolve(Variant("bogus"), "<unk>")
	assert.Error(t, err)
}

func TestFixedDefaultIsACopy(t *testing.T) {
	a := FixedDefault()
	a[0] = "changed"
	assert.Equal(t, "<unk>", FixedDefault()[0])
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("inline")
	require.NoError(t, err)
	assert.Equal(t, VariantInline, v)

	v, err = ParseVariant("file")
	require.NoError(t, err)
	assert.Equal(t, VariantFixedDefault, v)

	v, err = ParseVariant(" Fixed-Default ")
	require.NoError(t, err)
	assert.Equal(t, VariantFixedDefault, v)

	_, err = ParseVariant("other")
	assert.Error(t, err)
}

func TestSpecialTokens(t *testing.T) {
	inline := SpecialTokens(VariantInline)
	require.Len(t, inline, 14)
	assert.Equal(t, []string{
		"unk_token", "bos_token", "eos_token", "pad_token", "mask_token",
		"sep_token", "cls_token", "user_token", "assistant_token",
		"action_token", "content_token", "summary_token", "url_token", "web_token",
	}, inline.Roles())
	assert.Equal(t, []string{
		"<unk>", "<s>", "</s>", "<pad>", "<mask>", "<sep>", "<cls>",
		"<user>", "<assistant>", "<action>", "<content>", "<summary>", "<url>", "<web>",
	}, inline.Tokens())

	file := SpecialTokens(VariantFixedDefault)
	require.Len(t, file, 5)
	assert.Equal(t, []string(FixedDefault()), file.Tokens())

	tok, ok := file.Get("pad_token")
	assert.True(t, ok)
	assert.Equal(t, "<pad>", tok)
	_, ok = file.Get("web_token")
	assert.False(t, ok)

	// mutating a returned map must not leak into the next call
	inline[0].Token = "changed"
	assert.Equal(t, "<unk>", SpecialTokens(VariantInline)[0].Token)
}

func TestSpecialTokensMissing(t *testing.T) {
	m := SpecialTokens(VariantInline)
	missing := m.Missing(TokenSet{"<unk>", "<s>"})
	assert.Len(t, missing, 12)
	assert.NotContains(t, missing, "<unk>")
	assert.Contains(t, missing, "<web>")

	assert.Empty(t, SpecialTokens(VariantFixedDefault).Missing(FixedDefault()))
}

func TestDefaultInlineText(t *testing.T) {
	ts, err := Resolve(VariantInline, DefaultInlineText())
	require.NoError(t, err)

	// the space and comma seeds cannot survive a comma split
	assert.Len(t, ts, len(defaultInlineSeeds)-2)
	assert.Equal(t, SpecialTokens(VariantInline).Tokens(), []string(ts[:14]))
	assert.NotContains(t, ts, ",")
	assert.NotContains(t, ts, " ")
	assert.Contains(t, ts, "ё")
	assert.Contains(t, ts, "₿")
	assert.Empty(t, SpecialTokens(VariantInline).Missing(ts))
}
