package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
)

// ErrWatchTrigger wraps the failure of a rebuild started by a change.
var ErrWatchTrigger = errors.New("watch-triggered rebuild failed")

// DefaultDebounce matches the polling interval the site was originally watched with.
const DefaultDebounce = 100 * time.Millisecond

// Rebuilder runs the rebuild actions.
type Rebuilder interface {
	BuildLocale(ctx context.Context, locale string) (*build.LocaleResult, error)
	FullBuild(ctx context.Context) (*build.FullResult, error)
	CopyStatic(ctx context.Context) error
}

// Options configures a Scheduler.
type Options struct {
	Debounce     time.Duration
	Poll         bool
	PollInterval time.Duration
	Recorder     metrics.Recorder
	// OnRebuilt is called after every triggered rebuild with its outcome.
	OnRebuilt func(Action, error)
	// Ready, when set, holds triggered rebuilds until it is closed. Changes
	// observed before then are still recorded and built afterwards.
	Ready <-chan struct{}
}

// Scheduler debounces actions per scope and runs at most one rebuild per
// scope at a time. Requests arriving while a scope is building collapse into
// one follow-up build.
type Scheduler struct {
	session   *Session
	rebuilder Rebuilder
	opts      Options

	mu      sync.Mutex
	scopes  map[string]*scopeState
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

type scopeState struct {
	action  Action
	timer   *time.Timer
	running bool
	pending bool
}

// NewScheduler creates a scheduler acting on session's trees.
func NewScheduler(session *Session, rebuilder Rebuilder, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Scheduler{
		session:   session,
		rebuilder: rebuilder,
		opts:      opts,
		scopes:    make(map[string]*scopeState),
		quit:      make(chan struct{}),
	}
}

// Run observes the trees until ctx is done, then waits for in-flight rebuilds.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.drain()
	if s.opts.Poll {
		return s.runPolling(ctx)
	}
	return s.runNotify(ctx)
}

func (s *Scheduler) runNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create filesystem watcher").Build()
	}
	defer func() { _ = watcher.Close() }()

	for tree, dir := range s.session.Dirs() {
		if !isDir(dir) {
			observability.WarnContext(ctx, "watched tree missing", logfields.Tree(string(tree)), logfields.Path(dir))
			continue
		}
		if err := addDirsRecursive(watcher, dir); err != nil {
			return err
		}
	}
	observability.InfoContext(ctx, "watching for changes", slog.String("mode", "notify"))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			e := fromNotify(ev)
			if e.Op == OpCreate && e.IsDir {
				_ = addDirsRecursive(watcher, e.Path)
			}
			s.Handle(ctx, e)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			observability.WarnContext(ctx, "watcher error", logfields.Error(err))
		}
	}
}

func (s *Scheduler) runPolling(ctx context.Context) error {
	dirs := s.session.Dirs()
	roots := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		roots = append(roots, dir)
	}
	poller, err := NewPoller(roots, s.opts.PollInterval)
	if err != nil {
		return err
	}
	events, err := poller.Start()
	if err != nil {
		return err
	}
	defer func() { _ = poller.Stop() }()
	observability.InfoContext(ctx, "watching for changes", slog.String("mode", "poll"),
		slog.Duration("interval", s.opts.PollInterval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			s.Handle(ctx, e)
		}
	}
}

// Handle classifies one event and schedules its action.
func (s *Scheduler) Handle(ctx context.Context, e Event) {
	tree, ok := s.session.TreeOf(e.Path)
	if !ok {
		return
	}
	action := s.session.Classify(tree, e)
	if action.Kind == ActionNone {
		return
	}
	observability.DebugContext(ctx, "change detected",
		logfields.Tree(string(tree)),
		logfields.Path(e.Path),
		logfields.Scope(action.scope()))
	s.trigger(ctx, action)
}

func (s *Scheduler) trigger(ctx context.Context, action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scopes[action.scope()]
	if !ok {
		st = &scopeState{}
		s.scopes[action.scope()] = st
	}
	st.action = action
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(s.opts.Debounce, func() { s.fire(ctx, st) })
}

func (s *Scheduler) fire(ctx context.Context, st *scopeState) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if st.running {
		st.pending = true
		s.mu.Unlock()
		return
	}
	st.running = true
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if !s.waitReady(ctx) {
		s.mu.Lock()
		st.running = false
		st.pending = false
		s.mu.Unlock()
		return
	}

	for {
		s.mu.Lock()
		action := st.action
		s.mu.Unlock()

		s.execute(ctx, action)

		s.mu.Lock()
		if st.pending && ctx.Err() == nil {
			st.pending = false
			s.mu.Unlock()
			continue
		}
		st.running = false
		st.pending = false
		s.mu.Unlock()
		return
	}
}

// waitReady blocks until Options.Ready is closed. It reports false when the
// scheduler stops first.
func (s *Scheduler) waitReady(ctx context.Context) bool {
	if s.opts.Ready == nil {
		return true
	}
	select {
	case <-s.opts.Ready:
		return true
	case <-ctx.Done():
		return false
	case <-s.quit:
		return false
	}
}

func (s *Scheduler) execute(ctx context.Context, action Action) {
	var err error
	switch action.Kind {
	case ActionLocaleBuild:
		_, err = s.rebuilder.BuildLocale(ctx, action.Locale)
	case ActionFullBuild:
		_, err = s.rebuilder.FullBuild(ctx)
	case ActionStaticCopy:
		err = s.rebuilder.CopyStatic(ctx)
	default:
		return
	}

	s.opts.Recorder.IncWatchTrigger(string(action.Tree), action.Kind.String(), err == nil)
	if err != nil {
		err = ferrors.WrapError(fmt.Errorf("%w: %w", ErrWatchTrigger, err), ferrors.CategoryRuntime, "rebuild failed").
			Warning().
			WithContext("scope", action.scope()).
			Build()
		observability.WarnContext(ctx, "watch-triggered rebuild failed",
			logfields.Scope(action.scope()),
			logfields.Error(err))
	}
	if s.opts.OnRebuilt != nil {
		s.opts.OnRebuilt(action, err)
	}
}

// drain stops pending timers and waits for running rebuilds. No rebuild
// starts once drain has begun.
func (s *Scheduler) drain() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.quit)
	}
	for _, st := range s.scopes {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func fromNotify(ev fsnotify.Event) Event {
	e := Event{Path: ev.Name}
	switch {
	case ev.Has(fsnotify.Create):
		e.Op = OpCreate
		e.IsDir = isDir(ev.Name)
	case ev.Has(fsnotify.Write):
		e.Op = OpWrite
	case ev.Has(fsnotify.Remove):
		e.Op = OpRemove
	case ev.Has(fsnotify.Rename):
		e.Op = OpRename
	default:
		e.Op = OpChmod
	}
	return e
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldIgnoreEvent(path) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}
