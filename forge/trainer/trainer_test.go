package trainer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/hfjson"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	good := Request{
		Tokens:      tokenset.TokenSet{"<unk>"},
		VocabSize:   10,
		MaxLen:      16,
		CorpusLines: []string{"hello"},
	}
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"no tokens", func(r *Request) { r.Tokens = nil }},
		{"zero vocab", func(r *Request) { r.VocabSize = 0 }},
		{"negative vocab", func(r *Request) { r.VocabSize = -5 }},
		{"no corpus", func(r *Request) { r.CorpusLines = nil }},
		{"blank corpus", func(r *Request) { r.CorpusLines = []string{"", "\n", "\r\n"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrTrainingFailed)
		})
	}
}

func TestByteLevelRejectsBeforeTraining(t *testing.T) {
	b := NewByteLevelBPE(0, zerolog.Nop())
	b.WorkDir = t.TempDir()

	_, err := b.Train(Request{Tokens: tokenset.TokenSet{"<unk>"}, VocabSize: 10})
	assert.ErrorIs(t, err, common.ErrTrainingFailed)

	entries, err := os.ReadDir(b.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewResultState(t *testing.T) {
	vocab := map[string]int{"<unk>": 0, "<s>": 1, "h": 2, "e": 3, "he": 4}
	res, err := NewResult(tokenset.TokenSet{"<unk>", "<s>"}, vocab, []string{"h e"})
	require.NoError(t, err)

	doc, err := hfjson.ParseDocument(res.State)
	require.NoError(t, err)
	assert.Equal(t, []string{"h e"}, doc.MergeStrings())
	assert.Equal(t, hfjson.Vocab(vocab), doc.Model.Vocab)
	assert.Len(t, doc.AddedTokens, 2)
}

func TestFuncAdapter(t *testing.T) {
	boom := errors.New("boom")
	var tr Trainer = Func(func(req Request) (*Result, error) { return nil, boom })
	_, err := tr.Train(Request{})
	assert.Equal(t, boom, err)
}

func TestReadModelMerges(t *testing.T) {
	dir := t.TempDir()
	content := "#version: 0.2 - Trained by `huggingface/tokenizers`\nĠ t\nh e\r\n\nĠt he\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merges.txt"), []byte(content), 0o644))

	merges, err := readModelMerges(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ġ t", "h e", "Ġt he"}, merges)

	_, err = readModelMerges(t.TempDir())
	assert.Error(t, err)
}

func TestWriteLinesNormalisesEndings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, writeLines(path, []string{"one\r\n", "two\n", "three"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", string(data))
}

func TestByteLevelTrainsSmallCorpus(t *testing.T) {
	b := NewByteLevelBPE(0, zerolog.Nop())
	b.WorkDir = t.TempDir()

	req := Request{
		Tokens:      tokenset.TokenSet{"<unk>", "<s>"},
		VocabSize:   40,
		MaxLen:      32,
		CorpusLines: []string{"hello world", "hello there", "hello hello world"},
	}
	res, err := b.Train(req)
	require.NoError(t, err)
	require.NotNil(t, res)

	for _, tok := range req.Tokens {
		assert.Contains(t, res.Vocabulary, tok)
	}

	ids := make(map[int]string, len(res.Vocabulary))
	for tok, id := range res.Vocabulary {
		prev, dup := ids[id]
		assert.False(t, dup, "id %d shared by %q and %q", id, prev, tok)
		ids[id] = tok
	}

	doc, err := hfjson.ParseDocument(res.State)
	require.NoError(t, err)
	assert.Equal(t, res.Merges, doc.MergeStrings())
	require.NotNil(t, doc.PreTokenizer)
	assert.True(t, doc.PreTokenizer.AddPrefixSpace)

	entries, err := os.ReadDir(b.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work files must be removed")
}

func TestCheckLoadableMissingFile(t *testing.T) {
	assert.Error(t, CheckLoadable(filepath.Join(t.TempDir(), "tokenizer.json")))
}

func TestByteLevelVocabBelowSeedCount(t *testing.T) {
	tokens, err := tokenset.Resolve(tokenset.VariantInline, tokenset.DefaultInlineText())
	require.NoError(t, err)

	b := NewByteLevelBPE(0, zerolog.Nop())
	b.WorkDir = t.TempDir()

	var res *Result
	require.NotPanics(t, func() {
		res, err = b.Train(Request{
			Tokens:      tokens,
			VocabSize:   1,
			MaxLen:      16,
			CorpusLines: []string{"hello world"},
		})
	})
	require.NoError(t, err)
	for _, tok := range tokens {
		assert.Contains(t, res.Vocabulary, tok)
	}
}

func TestCaptureStdoutForwardsToLog(t *testing.T) {
	var buf bytes.Buffer
	b := NewByteLevelBPE(0, zerolog.New(&buf).Level(zerolog.DebugLevel))
	prev := os.Stdout

	b.captureStdout(func() {
		fmt.Println("Start collecting words...")
		fmt.Print("[1/3] step\r[2/3] step\n")
	})

	assert.Same(t, prev, os.Stdout)
	out := buf.String()
	assert.Contains(t, out, `"message":"Start collecting words..."`)
	assert.Contains(t, out, `"message":"[1/3] step"`)
	assert.Contains(t, out, `"message":"[2/3] step"`)
	assert.Contains(t, out, `"source":"sugarme"`)
}
