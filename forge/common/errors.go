package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure surfaced by a run wraps exactly one of these.
var (
	ErrEmptyInput     = errors.New("missing input")
	ErrFileRead       = errors.New("cannot read corpus file")
	ErrTrainingFailed = errors.New("training failed")
	ErrPersistence    = errors.New("cannot write artifact")
)

// Stage names a step of a run.
type Stage string

const (
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageCorpus   Stage = "corpus"
	StageTrain    Stage = "train"
	StagePersist  Stage = "persist"
)

// StageError is the tagged error returned by every pipeline step.
// Path holds the corpus path for ErrFileRead and the artifact file for
// ErrPersistence.
type StageError struct {
	Kind  error
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Stage))
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *StageError) Is(target error) bool {
	return target == e.Kind
}

// Message is the single user-facing line for the error.
func (e *StageError) Message() string {
	switch e.Kind {
	case ErrEmptyInput:
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Kind.Error()
	case ErrFileRead:
		return fmt.Sprintf("cannot read corpus file %s: %v", e.Path, e.Err)
	case ErrTrainingFailed:
		return fmt.Sprintf("training failed: %v", e.Err)
	case ErrPersistence:
		return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
	}
	return e.Error()
}

// EmptyInput reports a required input that was not supplied.
func EmptyInput(stage Stage, msg string) error {
	return &StageError{Kind: ErrEmptyInput, Stage: stage, Err: errors.New(msg)}
}

// FileRead reports a corpus file that could not be opened or decoded.
func FileRead(path string, err error) error {
	return &StageError{Kind: ErrFileRead, Stage: StageCorpus, Path: path, Err: err}
}

// TrainingFailed wraps any trainer rejection.
func TrainingFailed(err error) error {
	return &StageError{Kind: ErrTrainingFailed, Stage: StageTrain, Err: err}
}

// Persistence reports a write failure for the named file.
func Persistence(file string, err error) error {
	return &StageError{Kind: ErrPersistence, Stage: StagePersist, Path: file, Err: err}
}

// KindOf returns the kind sentinel of err, or nil if err is not a StageError.
func KindOf(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}

// KindName is a stable short name for a kind, used in run history.
func KindName(kind error) string {
	switch kind {
	case ErrEmptyInput:
		return "EmptyInputError"
	case ErrFileRead:
		return "FileReadError"
	case ErrTrainingFailed:
		return "TrainingFailedError"
	case ErrPersistence:
		return "PersistenceError"
	}
	return ""
}

// UserMessage renders err for display, preferring StageError.Message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}
