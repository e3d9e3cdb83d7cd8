package watch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type fileState struct {
	modTime time.Time
	size    int64
}

// Poller detects changes by rescanning the roots on a gocron interval job,
// for filesystems without change notification. New files are reported as
// creates, changed files as writes. Removals are not reported.
type Poller struct {
	roots    []string
	interval time.Duration

	mu        sync.Mutex
	snapshot  map[string]fileState
	events    chan Event
	done      chan struct{}
	scheduler gocron.Scheduler
}

// NewPoller prepares a poller over roots.
func NewPoller(roots []string, interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be > 0, got %s", interval)
	}
	return &Poller{roots: roots, interval: interval, events: make(chan Event, 256), done: make(chan struct{})}, nil
}

// Start records the current state of the roots and begins polling. Files
// present at start produce no events.
func (p *Poller) Start() (<-chan Event, error) {
	p.mu.Lock()
	p.snapshot = p.walk()
	p.mu.Unlock()

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.poll),
		gocron.WithName("watch-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create poll job: %w", err)
	}
	p.scheduler = s
	s.Start()
	return p.events, nil
}

// Stop shuts the polling job down.
func (p *Poller) Stop() error {
	if p.scheduler == nil {
		return nil
	}
	close(p.done)
	return p.scheduler.Shutdown()
}

func (p *Poller) poll() {
	for _, e := range p.scan() {
		select {
		case p.events <- e:
		case <-p.done:
			return
		}
	}
}

// scan diffs the roots against the last snapshot.
func (p *Poller) scan() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.walk()
	var out []Event
	for path, st := range current {
		prev, ok := p.snapshot[path]
		switch {
		case !ok:
			out = append(out, Event{Path: path, Op: OpCreate})
		case !prev.modTime.Equal(st.modTime) || prev.size != st.size:
			out = append(out, Event{Path: path, Op: OpWrite})
		}
	}
	p.snapshot = current
	return out
}

func (p *Poller) walk() map[string]fileState {
	out := make(map[string]fileState)
	for _, root := range p.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			out[filepath.Clean(path)] = fileState{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	return out
}
