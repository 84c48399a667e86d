package artifacts

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/hfjson"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/trainer"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Fixed artifact file names, in write order.
const (
	TokenizerFile       = "tokenizer.json"
	VocabFile           = "vocab.json"
	MergesFile          = "merges.txt"
	SpecialTokensFile   = "special_tokens_map.json"
	TokenizerConfigFile = "tokenizer_config.json"
)

// FileNames lists every artifact in the order Persist writes them.
var FileNames = []string{TokenizerFile, VocabFile, MergesFile, SpecialTokensFile, TokenizerConfigFile}

const indent = "    "

// TokenizerConfig is tokenizer_config.json.
type TokenizerConfig struct {
	MaxLen      int  `json:"max_len"`
	DoLowerCase bool `json:"do_lower_case"`
}

// NewTokenizerConfig returns the config for maxLen. Lower-casing is never on.
func NewTokenizerConfig(maxLen int) TokenizerConfig {
	return TokenizerConfig{MaxLen: maxLen}
}

// Persister writes the artifact set of one run.
type Persister struct {
	fs  afero.Fs
	log zerolog.Logger
}

// NewPersister creates a persister on fs. A nil fs means the OS filesystem.
func NewPersister(fs afero.Fs, logger zerolog.Logger) *Persister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Persister{fs: fs, log: logger}
}

// Persist writes the five artifacts into dir, one after another. It is not
// transactional: on failure the returned error names the file that failed
// and the files written before it stay on disk. The returned paths are the
// files written so far.
func (p *Persister) Persist(dir string, res *trainer.Result, specials tokenset.SpecialTokenMap, cfg TokenizerConfig) ([]string, error) {
	var written []string

	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		return written, common.Persistence(dir, err)
	}

	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := afero.WriteFile(p.fs, path, data, 0o644); err != nil {
			return common.Persistence(name, err)
		}
		written = append(written, path)
		p.log.Debug().Str("file", path).Int("bytes", len(data)).Msg("artifact written")
		return nil
	}

	if err := write(TokenizerFile, res.State); err != nil {
		return written, err
	}

	vocab, err := EncodeVocab(res.Vocabulary)
	if err != nil {
		return written, common.Persistence(VocabFile, err)
	}
	if err := write(VocabFile, vocab); err != nil {
		return written, err
	}

	// merges.txt comes from the tokenizer.json just saved, not from memory
	merges, err := ReadMerges(p.fs, filepath.Join(dir, TokenizerFile))
	if err != nil {
		return written, common.Persistence(MergesFile, err)
	}
	if res.Merges != nil && !slices.Equal(merges, res.Merges) {
		return written, common.Persistence(MergesFile, fmt.Errorf(
			"saved %s holds %d merges that differ from the %d trained merges",
			TokenizerFile, len(merges), len(res.Merges)))
	}
	if err := write(MergesFile, EncodeMerges(merges)); err != nil {
		return written, err
	}

	sp, err := EncodeSpecialTokens(specials)
	if err != nil {
		return written, common.Persistence(SpecialTokensFile, err)
	}
	if err := write(SpecialTokensFile, sp); err != nil {
		return written, err
	}

	tc, err := hfjson.Marshal(cfg, indent)
	if err != nil {
		return written, common.Persistence(TokenizerConfigFile, err)
	}
	if err := write(TokenizerConfigFile, tc); err != nil {
		return written, err
	}

	return written, nil
}

// EncodeVocab renders vocab.json: ordered by id, four-space indent.
func EncodeVocab(vocab map[string]int) ([]byte, error) {
	return hfjson.Marshal(hfjson.Vocab(vocab), indent)
}

// EncodeMerges renders merges.txt, one rule per line in the given order.
func EncodeMerges(merges []string) []byte {
	var buf bytes.Buffer
	for _, m := range merges {
		buf.WriteString(m)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// EncodeSpecialTokens renders special_tokens_map.json in role order.
func EncodeSpecialTokens(m tokenset.SpecialTokenMap) ([]byte, error) {
	obj := make(hfjson.Object, len(m))
	for i, rt := range m {
		obj[i] = hfjson.Field{Key: rt.Role, Value: rt.Token}
	}
	return hfjson.Marshal(obj, indent)
}

// ReadDocument loads and parses a tokenizer.json.
func ReadDocument(fs afero.Fs, path string) (*hfjson.Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return hfjson.ParseDocument(data)
}

// ReadMerges re-derives the merge list from a saved tokenizer.json.
func ReadMerges(fs afero.Fs, tokenizerPath string) ([]string, error) {
	doc, err := ReadDocument(fs, tokenizerPath)
	if err != nil {
		return nil, err
	}
	return doc.MergeStrings(), nil
}

// ReadVocab loads a vocab.json.
func ReadVocab(fs afero.Fs, path string) (map[string]int, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	vocab := map[string]int{}
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return vocab, nil
}

// ReadMergesFile loads a merges.txt. A leading "#version" header is skipped.
func ReadMergesFile(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	merges := []string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first && strings.HasPrefix(line, "#version") {
			first = false
			continue
		}
		first = false
		merges = append(merges, line)
	}
	return merges, sc.Err()
}

// ReadSpecialTokens loads special_tokens_map.json, keeping key order.
func ReadSpecialTokens(fs afero.Fs, path string) (tokenset.SpecialTokenMap, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	obj, err := hfjson.ParseStringObject(data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	out := make(tokenset.SpecialTokenMap, len(obj))
	for i, f := range obj {
		out[i] = tokenset.RoleToken{Role: f.Key, Token: f.Value.(string)}
	}
	return out, nil
}

// ReadTokenizerConfig loads tokenizer_config.json.
func ReadTokenizerConfig(fs afero.Fs, path string) (TokenizerConfig, error) {
	var cfg TokenizerConfig
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}
