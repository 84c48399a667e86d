package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/pipeline"
	"github.com/ZanzyTHEbar/tokenizer-forge/forge/tokenset"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestNewRunSuccess(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := pipeline.Request{Variant: tokenset.VariantInline, VocabSize: 512, MaxLen: 2048, OutputDir: "/out"}
	rep := &pipeline.Report{RunID: uuid.New(), VocabSize: 300, MergeCount: 42, Started: started}

	run := NewRun(req, rep, nil, time.Now())
	assert.Equal(t, rep.RunID, run.ID)
	assert.Equal(t, StatusSucceeded, run.Status)
	assert.Equal(t, "inline", run.Variant)
	assert.Equal(t, 512, run.VocabSize)
	assert.Equal(t, 300, run.ActualVocab)
	assert.Equal(t, 42, run.MergeCount)
	assert.Equal(t, started, run.StartedAt)
	assert.Empty(t, run.ErrorKind)
}

func TestNewRunFailure(t *testing.T) {
	req := pipeline.Request{Variant: tokenset.VariantFixedDefault, OutputDir: "/out"}
	err := common.Persistence("vocab.json", errors.New("disk full"))

	run := NewRun(req, nil, err, time.Now())
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "PersistenceError", run.ErrorKind)
	assert.Equal(t, "failed to write vocab.json: disk full", run.ErrorMessage)
}

// StoreSuite runs the same checks against every Store.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *StoreSuite) run(variant string, started time.Time) *Run {
	return &Run{
		ID:         uuid.New(),
		Variant:    variant,
		OutputDir:  "/out/" + variant,
		VocabSize:  512,
		MaxLen:     2048,
		Status:     StatusSucceeded,
		StartedAt:  started.UTC(),
		FinishedAt: started.Add(time.Second).UTC(),
	}
}

func (s *StoreSuite) TestRecordAndGet() {
	ctx := context.Background()
	run := s.run("inline", time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC))
	run.Status = StatusFailed
	run.ErrorKind = "TrainingFailedError"
	run.ErrorMessage = "training failed: corpus is empty"
	s.Require().NoError(s.store.Record(ctx, run))

	got, err := s.store.Get(ctx, run.ID)
	s.Require().NoError(err)
	s.Equal(*run, *got)
}

func (s *StoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestRecordDuplicate() {
	ctx := context.Background()
	run := s.run("inline", time.Now())
	s.Require().NoError(s.store.Record(ctx, run))
	s.Error(s.store.Record(ctx, run))
}

func (s *StoreSuite) TestListNewestFirst() {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := s.run("inline", base)
	mid := s.run("fixed-default", base.Add(time.Minute))
	newest := s.run("inline", base.Add(time.Hour))
	for _, r := range []*Run{mid, newest, old} {
		s.Require().NoError(s.store.Record(ctx, r))
	}

	all, err := s.store.List(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]uuid.UUID{newest.ID, mid.ID, old.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	two, err := s.store.List(ctx, 2)
	s.Require().NoError(err)
	s.Len(two, 2)
	s.Equal(newest.ID, two[0].ID)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store { return NewMemoryStore() }})
}

func TestSQLStore(t *testing.T) {
	if testing.Short() {
		t.Skip("libsql store test skipped in short mode")
	}
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		dsn := "file:" + filepath.Join(t.TempDir(), "nested", "history.db")
		s, err := Open(dsn, zerolog.Nop())
		require.NoError(t, err)
		return s
	}})
}
