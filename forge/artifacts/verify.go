package artifacts

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/hfjson"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/spf13/afero"
)

// VerifyReport lists what is wrong with an artifact directory. Problems
// break the artifact contract; warnings are expected quirks, such as role
// tokens that were never trained into the vocabulary.
type VerifyReport struct {
	Dir        string
	VocabSize  int
	MergeCount int
	Problems   []string
	Warnings   []string
}

// OK reports whether no problems were found.
func (r *VerifyReport) OK() bool { return len(r.Problems) == 0 }

func (r *VerifyReport) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

func (r *VerifyReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// VerifyOptions tunes Verify.
type VerifyOptions struct {
	// Variant selects the expected special_tokens_map roles.
	Variant tokenset.Variant
	// Load, when set, is called with the tokenizer.json path to check that
	// a tokenizer library can load it.
	Load func(path string) error
}

// Verify checks that the artifacts in dir come from one consistent run.
// The error is only for a directory that cannot be read at all.
func Verify(fs afero.Fs, dir string, opts VerifyOptions) (*VerifyReport, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if ok, err := afero.DirExists(fs, dir); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("artifact directory %s does not exist", dir)
	}

	r := &VerifyReport{Dir: dir}
	path := func(name string) string { return filepath.Join(dir, name) }

	for _, name := range FileNames {
		if ok, _ := afero.Exists(fs, path(name)); !ok {
			r.problem("%s is missing", name)
		}
	}

	doc, err := ReadDocument(fs, path(TokenizerFile))
	if err != nil {
		r.problem("%s: %v", TokenizerFile, err)
	}

	vocab, err := ReadVocab(fs, path(VocabFile))
	if err != nil {
		r.problem("%s: %v", VocabFile, err)
	} else {
		r.VocabSize = len(vocab)
		checkIDs(r, vocab)
	}

	merges, err := ReadMergesFile(fs, path(MergesFile))
	if err != nil {
		r.problem("%s: %v", MergesFile, err)
	} else {
		r.MergeCount = len(merges)
	}

	if doc != nil {
		if vocab != nil {
			model := map[string]int(doc.Model.Vocab)
			for tok, id := range model {
				if got, ok := vocab[tok]; !ok {
					r.problem("%s lacks %q from %s", VocabFile, tok, TokenizerFile)
				} else if got != id {
					r.problem("%q has id %d in %s but %d in %s", tok, got, VocabFile, id, TokenizerFile)
				}
			}
			added := make(map[string]int, len(doc.AddedTokens))
			for _, at := range doc.AddedTokens {
				added[at.Content] = at.ID
			}
			for tok, id := range vocab {
				if _, ok := model[tok]; ok {
					continue
				}
				if aid, ok := added[tok]; !ok || aid != id {
					r.problem("%q in %s is not part of %s", tok, VocabFile, TokenizerFile)
				}
			}
		}
		if merges != nil {
			saved := doc.MergeStrings()
			if !slices.Equal(saved, merges) {
				r.problem("%s has %d merges, %s has %d (or a different order)",
					MergesFile, len(merges), TokenizerFile, len(saved))
			}
		}
		if vocab != nil {
			for _, m := range doc.MergeStrings() {
				left, right, ok := strings.Cut(m, " ")
				if !ok {
					r.problem("merge %q is not a pair", m)
					continue
				}
				if _, ok := vocab[left+right]; !ok {
					r.problem("merge %q produces a token missing from %s", m, VocabFile)
				}
			}
		}
	}

	specials, err := ReadSpecialTokens(fs, path(SpecialTokensFile))
	if err != nil {
		r.problem("%s: %v", SpecialTokensFile, err)
	} else {
		checkSpecials(r, specials, vocab, opts.Variant)
	}

	cfg, err := ReadTokenizerConfig(fs, path(TokenizerConfigFile))
	if err != nil {
		r.problem("%s: %v", TokenizerConfigFile, err)
	} else {
		if cfg.MaxLen <= 0 {
			r.problem("%s: max_len must be positive, got %d", TokenizerConfigFile, cfg.MaxLen)
		}
		if cfg.DoLowerCase {
			r.problem("%s: do_lower_case must be false", TokenizerConfigFile)
		}
	}

	if opts.Load != nil && doc != nil {
		if err := opts.Load(path(TokenizerFile)); err != nil {
			r.problem("%s does not load: %v", TokenizerFile, err)
		}
	}

	return r, nil
}

// checkIDs flags negative and shared ids, and warns on gaps.
func checkIDs(r *VerifyReport, vocab map[string]int) {
	seen := roaring.New()
	owner := make(map[int]string, len(vocab))
	for _, e := range hfjson.Vocab(vocab).Entries() {
		if e.ID < 0 {
			r.problem("%q has negative id %d", e.Token, e.ID)
			continue
		}
		if !seen.CheckedAdd(uint32(e.ID)) {
			r.problem("id %d is shared by %q and %q", e.ID, owner[e.ID], e.Token)
			continue
		}
		owner[e.ID] = e.Token
	}
	if seen.IsEmpty() {
		return
	}
	if span := uint64(seen.Maximum()) + 1; span != seen.GetCardinality() {
		r.warn("ids are not contiguous: %d ids span 0..%d", seen.GetCardinality(), seen.Maximum())
	}
}

func checkSpecials(r *VerifyReport, got tokenset.SpecialTokenMap, vocab map[string]int, variant tokenset.Variant) {
	if variant != "" {
		want := tokenset.SpecialTokens(variant)
		if !slices.Equal(got.Roles(), want.Roles()) {
			r.problem("%s roles %v, want %v", SpecialTokensFile, got.Roles(), want.Roles())
		} else if !slices.Equal(got.Tokens(), want.Tokens()) {
			r.problem("%s tokens %v, want %v", SpecialTokensFile, got.Tokens(), want.Tokens())
		}
	}
	if vocab == nil {
		return
	}
	for _, rt := range got {
		if _, ok := vocab[rt.Token]; !ok {
			r.warn("%s %s=%q is not in the vocabulary", SpecialTokensFile, rt.Role, rt.Token)
		}
	}
}
