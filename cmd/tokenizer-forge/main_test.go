package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/artifacts"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/config"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/trainer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTrainer puts the tokens first and then the corpus characters.
func stubTrainer(_ *config.Config, _ zerolog.Logger) trainer.Trainer {
	return trainer.Func(func(req trainer.Request) (*trainer.Result, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		vocab := map[string]int{}
		for _, t := range req.Tokens {
			if _, ok := vocab[t]; !ok {
				vocab[t] = len(vocab)
			}
		}
		for _, l := range req.CorpusLines {
			for _, r := range l {
				if _, ok := vocab[string(r)]; !ok && len(vocab) < req.VocabSize {
					vocab[string(r)] = len(vocab)
				}
			}
		}
		return trainer.NewResult(req.Tokens, vocab, []string{})
	})
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel, logFormat = "", "", ""
	prev := newTrainer
	newTrainer = stubTrainer
	t.Cleanup(func() { newTrainer = prev })

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"tokenizer-forge"}, args...))
	return out.String(), err
}

const quietConfig = "history:\n  enabled: false\nlog:\n  level: error\n"

func TestInlineWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, quietConfig)
	out := filepath.Join(dir, "tok")

	stdout, err := runApp(t, "--config", cfg, "inline",
		"--tokens", "<unk>, <s>", "--text", "hello world\nhello there",
		"--vocab-size", "10", "--max-len", "64", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Tokenizer saved to "+out)

	for _, name := range artifacts.FileNames {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	tc, err := os.ReadFile(filepath.Join(out, artifacts.TokenizerConfigFile))
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"max_len\": 64,\n    \"do_lower_case\": false\n}", string(tc))

	stdout, err = runApp(t, "--config", cfg, "verify", "--dir", out, "--variant", "inline")
	require.NoError(t, err)
	assert.Contains(t, stdout, out+": ok")

	stdout, err = runApp(t, "--config", cfg, "inspect", "--dir", out, "--prefix", "<", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stats:")
	assert.Contains(t, stdout, "<s>")
}

func TestInlineEmptyTokens(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, quietConfig)
	out := filepath.Join(dir, "tok")

	_, err := runApp(t, "--config", cfg, "inline", "--tokens", " , ", "--text", "hello", "--out", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEmptyInput)
	assert.Equal(t, "no tokens provided", common.UserMessage(err))
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInlineOutputFromConfig(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config")
	cfg := writeConfig(t, dir, quietConfig+fmt.Sprintf("output:\n  dir: %s\n", out))

	_, err := runApp(t, "--config", cfg, "inline", "--tokens", "<unk>", "--vocab-size", "8", "--max-len", "4")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, artifacts.VocabFile))
	assert.NoError(t, err)
}

func TestFileMissingCorpus(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, quietConfig)
	missing := filepath.Join(dir, "missing.txt")

	_, err := runApp(t, "--config", cfg, "file", "--corpus", missing, "--out", filepath.Join(dir, "tok"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFileRead)
	assert.Contains(t, common.UserMessage(err), missing)
}

func TestFileRequiresOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, quietConfig)
	corpus := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpus, []byte("hello\n"), 0o644))

	_, err := runApp(t, "--config", cfg, "file", "--corpus", corpus)
	require.Error(t, err)
	assert.Equal(t, "output directory is required", common.UserMessage(err))
}

func TestVerifyReportsProblems(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, quietConfig)
	out := filepath.Join(dir, "tok")
	require.NoError(t, os.MkdirAll(out, 0o755))

	stdout, err := runApp(t, "--config", cfg, "verify", "--dir", out)
	require.Error(t, err)
	assert.Contains(t, stdout, "problem: tokenizer.json is missing")
}

func TestHistoryRecordsRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("libsql history test skipped in short mode")
	}
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "history.db")
	cfg := writeConfig(t, dir, fmt.Sprintf("history:\n  enabled: true\n  dsn: %s\nlog:\n  level: error\n", dsn))
	corpus := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpus, []byte("hello world\n"), 0o644))

	_, err := runApp(t, "--config", cfg, "file", "--corpus", corpus, "--out", filepath.Join(dir, "ok"))
	require.NoError(t, err)
	_, err = runApp(t, "--config", cfg, "file", "--corpus", filepath.Join(dir, "nope.txt"), "--out", filepath.Join(dir, "bad"))
	require.Error(t, err)

	stdout, err := runApp(t, "--config", cfg, "history", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "status: succeeded")
	assert.Contains(t, stdout, "status: failed")
	assert.Contains(t, stdout, "error_kind: FileReadError")
}
