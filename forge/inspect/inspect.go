// Package inspect answers questions about a saved vocabulary.
package inspect

import (
	"math"
	"path/filepath"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/artifacts"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/hfjson"

	"github.com/armon/go-radix"
	"github.com/spf13/afero"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises a vocabulary.
type Stats struct {
	Count        int     `yaml:"count"`
	MinID        int     `yaml:"min_id"`
	MaxID        int     `yaml:"max_id"`
	MeanRunes    float64 `yaml:"mean_runes"`
	StdDevRunes  float64 `yaml:"stddev_runes"`
	LongestToken string  `yaml:"longest_token"`
}

// Index is a prefix tree over the tokens of a vocabulary.
type Index struct {
	tree  *radix.Tree
	stats Stats
}

// Load reads vocab.json from an artifact directory.
func Load(fs afero.Fs, dir string) (*Index, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	vocab, err := artifacts.ReadVocab(fs, filepath.Join(dir, artifacts.VocabFile))
	if err != nil {
		return nil, err
	}
	return New(vocab), nil
}

// New indexes vocab.
func New(vocab map[string]int) *Index {
	idx := &Index{tree: radix.New()}
	lengths := make([]float64, 0, len(vocab))
	longest := -1

	for _, e := range hfjson.Vocab(vocab).Entries() {
		idx.tree.Insert(e.Token, e.ID)
		n := utf8.RuneCountInString(e.Token)
		lengths = append(lengths, float64(n))
		if n > longest {
			longest = n
			idx.stats.LongestToken = e.Token
		}
		if len(lengths) == 1 || e.ID < idx.stats.MinID {
			idx.stats.MinID = e.ID
		}
		if e.ID > idx.stats.MaxID {
			idx.stats.MaxID = e.ID
		}
	}

	idx.stats.Count = len(lengths)
	if len(lengths) > 0 {
		mean, std := stat.MeanStdDev(lengths, nil)
		if math.IsNaN(std) {
			std = 0
		}
		idx.stats.MeanRunes = mean
		idx.stats.StdDevRunes = std
	}
	return idx
}

// Len is the number of tokens.
func (i *Index) Len() int { return i.tree.Len() }

// Lookup returns the id of token.
func (i *Index) Lookup(token string) (int, bool) {
	v, ok := i.tree.Get(token)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// Prefix lists tokens starting with p in byte order, at most limit of
// them. limit <= 0 means all.
func (i *Index) Prefix(p string, limit int) []hfjson.Entry {
	var out []hfjson.Entry
	i.tree.WalkPrefix(p, func(k string, v any) bool {
		out = append(out, hfjson.Entry{Token: k, ID: v.(int)})
		return limit > 0 && len(out) >= limit
	})
	return out
}

// Stats returns the vocabulary summary.
func (i *Index) Stats() Stats { return i.stats }
