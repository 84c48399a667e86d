package trainer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/hfjson"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"
)

// Request is one training invocation.
type Request struct {
	Tokens      tokenset.TokenSet
	VocabSize   int
	MaxLen      int
	CorpusLines []string
}

// Result is the snapshot every artifact of a run is written from.
// State is the canonical tokenizer.json of the same snapshot.
type Result struct {
	Vocabulary map[string]int
	Merges     []string
	State      []byte
}

// Trainer trains a byte-level BPE tokenizer.
type Trainer interface {
	Train(req Request) (*Result, error)
}

// Func adapts a function to the Trainer interface.
type Func func(req Request) (*Result, error)

func (f Func) Train(req Request) (*Result, error) { return f(req) }

// Validate checks a request before any trainer work. Failures are
// training failures.
func (r Request) Validate() error {
	if len(r.Tokens) == 0 {
		return common.TrainingFailed(errors.New("special token set is empty"))
	}
	if r.VocabSize <= 0 {
		return common.TrainingFailed(fmt.Errorf("vocab size must be positive, got %d", r.VocabSize))
	}
	if !hasText(r.CorpusLines) {
		return common.TrainingFailed(errors.New("corpus is empty"))
	}
	return nil
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimRight(l, "\r\n") != "" {
			return true
		}
	}
	return false
}

// NewResult builds a Result and its tokenizer.json state.
func NewResult(tokens tokenset.TokenSet, vocab map[string]int, merges []string) (*Result, error) {
	state, err := hfjson.NewDocument(tokens, vocab, merges).Encode()
	if err != nil {
		return nil, fmt.Errorf("encode tokenizer state: %w", err)
	}
	return &Result{Vocabulary: vocab, Merges: merges, State: state}, nil
}
