// Package history records one row per pipeline run. Nothing here feeds
// back into later runs.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/pipeline"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("run not found")

// Status is the terminal state of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one history row.
type Run struct {
	ID           uuid.UUID `yaml:"id"`
	Variant      string    `yaml:"variant"`
	OutputDir    string    `yaml:"output_dir"`
	VocabSize    int       `yaml:"vocab_size"`
	MaxLen       int       `yaml:"max_len"`
	ActualVocab  int       `yaml:"actual_vocab"`
	MergeCount   int       `yaml:"merge_count"`
	Status       Status    `yaml:"status"`
	ErrorKind    string    `yaml:"error_kind,omitempty"`
	ErrorMessage string    `yaml:"error_message,omitempty"`
	StartedAt    time.Time `yaml:"started_at"`
	FinishedAt   time.Time `yaml:"finished_at"`
}

// Store persists runs.
type Store interface {
	Record(ctx context.Context, run *Run) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// NewRun builds the row for a finished run. rep is nil when err is set.
func NewRun(req pipeline.Request, rep *pipeline.Report, err error, started time.Time) *Run {
	run := &Run{
		ID:         uuid.New(),
		Variant:    string(req.Variant),
		OutputDir:  req.OutputDir,
		VocabSize:  req.VocabSize,
		MaxLen:     req.MaxLen,
		Status:     StatusSucceeded,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if rep != nil {
		run.ID = rep.RunID
		run.ActualVocab = rep.VocabSize
		run.MergeCount = rep.MergeCount
		run.StartedAt = rep.Started.UTC()
	}
	if err != nil {
		run.Status = StatusFailed
		run.ErrorKind = common.KindName(common.KindOf(err))
		run.ErrorMessage = common.UserMessage(err)
	}
	return run
}
