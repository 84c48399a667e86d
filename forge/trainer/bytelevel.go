package trainer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/bpe"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// ByteLevelBPE trains with sugarme/tokenizer: a BPE model behind a
// ByteLevel pre-tokenizer that inserts a leading space, decoded by the
// matching ByteLevel decoder.
type ByteLevelBPE struct {
	// MinFrequency is the minimum pair count for a merge.
	MinFrequency int
	// WorkDir holds the temporary corpus and model files. Empty means the
	// system temp dir.
	WorkDir string

	log zerolog.Logger
}

// NewByteLevelBPE creates the sugarme-backed trainer.
func NewByteLevelBPE(minFrequency int, logger zerolog.Logger) *ByteLevelBPE {
	return &ByteLevelBPE{MinFrequency: minFrequency, log: logger}
}

// Train runs one training pass. Any error or panic from the library is
// returned as a training failure.
func (b *ByteLevelBPE) Train(req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	work, err := os.MkdirTemp(b.WorkDir, "tkforge-train-*")
	if err != nil {
		return nil, common.TrainingFailed(fmt.Errorf("create work dir: %w", err))
	}
	defer os.RemoveAll(work)

	corpus := filepath.Join(work, "corpus.txt")
	if err := writeLines(corpus, req.CorpusLines); err != nil {
		return nil, common.TrainingFailed(fmt.Errorf("stage corpus: %w", err))
	}

	start := time.Now()
	var (
		res *Result
		pc  panics.Catcher
	)
	b.captureStdout(func() {
		pc.Try(func() { res, err = b.train(req, corpus, work) })
	})
	if r := pc.Recovered(); r != nil {
		b.log.Error().Interface("panic", r.Value).Msg("tokenizer library panicked")
		return nil, common.TrainingFailed(r.AsError())
	}
	if err != nil {
		return nil, common.TrainingFailed(err)
	}

	b.log.Debug().
		Int("vocab", len(res.Vocabulary)).
		Int("merges", len(res.Merges)).
		Dur("took", time.Since(start)).
		Msg("bpe training finished")
	return res, nil
}

func (b *ByteLevelBPE) train(req Request, corpus, work string) (*Result, error) {
	model, err := bpe.NewBpeBuilder().Build()
	if err != nil {
		return nil, fmt.Errorf("build bpe model: %w", err)
	}

	t := tk.NewTokenizer(model)
	bl := pretokenizer.NewByteLevel()
	bl.SetAddPrefixSpace(true)
	t.WithPreTokenizer(bl)
	t.WithDecoder(bl)

	specials := make([]tk.AddedToken, 0, len(req.Tokens))
	for _, s := range req.Tokens {
		specials = append(specials, tk.NewAddedToken(s, true))
	}

	trainer := bpe.NewBpeTrainer(b.MinFrequency, req.VocabSize)
	trainer.ShowProgress = false
	trainer.SpecialTokens = specials

	if err := t.Train(trainer, []string{corpus}); err != nil {
		return nil, err
	}

	vocab := t.GetVocab(true)
	if len(vocab) == 0 {
		return nil, errors.New("trainer produced an empty vocabulary")
	}

	modelDir := filepath.Join(work, "model")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, err
	}
	if err := t.GetModel().Save(modelDir); err != nil {
		return nil, fmt.Errorf("save bpe model: %w", err)
	}
	merges, err := readModelMerges(modelDir)
	if err != nil {
		return nil, err
	}

	return NewResult(req.Tokens, vocab, merges)
}

// captureStdout points os.Stdout at a pipe while fn runs and forwards each
// line to the debug log. The tokenizer library prints its progress there
// regardless of ShowProgress, which would mix with the command output.
func (b *ByteLevelBPE) captureStdout(fn func()) {
	r, w, err := os.Pipe()
	if err != nil {
		fn()
		return
	}
	prev := os.Stdout
	os.Stdout = w

	var wg conc.WaitGroup
	wg.Go(func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), 1024*1024)
		for sc.Scan() {
			for _, part := range strings.Split(sc.Text(), "\r") {
				if line := strings.TrimSpace(part); line != "" {
					b.log.Debug().Str("source", "sugarme").Msg(line)
				}
			}
		}
		io.Copy(io.Discard, r)
	})
	defer func() {
		os.Stdout = prev
		w.Close()
		wg.Wait()
		r.Close()
	}()
	fn()
}

// readModelMerges reads the merges file the model saved, keeping its order.
func readModelMerges(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*merges.txt"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("bpe model saved no merges file in %s", dir)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	merges := []string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#version") {
			continue
		}
		merges = append(merges, line)
	}
	return merges, sc.Err()
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		w.WriteString(strings.TrimRight(l, "\r\n"))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
