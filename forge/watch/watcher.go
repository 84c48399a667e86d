// Package watch rebuilds a tokenizer whenever its corpus file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/pipeline"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
)

// Event is one change to the watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Config tunes a Watcher.
type Config struct {
	DebounceDelay    time.Duration
	MaxDebounceDelay time.Duration
	QueueCapacity    int
}

// Watcher reports settled changes to a single file. It watches the parent
// directory so that editors replacing the file by rename are seen too.
type Watcher struct {
	target string
	fsw    *fsnotify.Watcher
	deb    *Debouncer
	log    zerolog.Logger
	wg     conc.WaitGroup
	cancel context.CancelFunc
}

// New starts watching path.
func New(path string, cfg Config, logger zerolog.Logger) (*Watcher, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		target: target,
		fsw:    fsw,
		deb:    NewDebouncer(cfg.DebounceDelay, cfg.MaxDebounceDelay, cfg.QueueCapacity),
		log:    logger.With().Str("watch", target).Logger(),
		cancel: cancel,
	}
	w.wg.Go(func() { w.loop(ctx) })
	w.log.Info().Msg("watching corpus file")
	return w, nil
}

// Changes delivers one batch per settled burst of writes.
func (w *Watcher) Changes() <-chan EventBatch {
	return w.deb.Batches()
}

// Close stops watching and closes Changes.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.deb.Close()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug().Str("op", ev.Op.String()).Msg("corpus changed")
			w.deb.Add(Event{Path: w.target, Op: ev.Op, Time: time.Now()})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Rebuild submits req to runner once per batch from changes until ctx is
// done or changes is closed. done, if set, sees every outcome.
func Rebuild(ctx context.Context, changes <-chan EventBatch, runner *pipeline.Runner, req pipeline.Request, done func(pipeline.Outcome)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			out := <-runner.Submit(req)
			if done != nil {
				done(out)
			}
		}
	}
}
