package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fixture(t *testing.T) (string, *Session) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "locale", "en", "site.json"), "{}")
	writeFile(t, filepath.Join(root, "locale", "fr", "site.json"), "{}")
	writeFile(t, filepath.Join(root, "locale", "fr", "index.md"), "salut")
	writeFile(t, filepath.Join(root, "layouts", "page.hbs"), "{{{contents}}}")
	writeFile(t, filepath.Join(root, "static", "app.js"), "")
	return root, NewSession(Roots{
		Content:       filepath.Join(root, "locale"),
		Templates:     filepath.Join(root, "layouts"),
		Static:        filepath.Join(root, "static"),
		DefaultLocale: "en",
		MetadataFile:  "site.json",
	})
}

func TestSession_InitialScanTracksWithoutActing(t *testing.T) {
	root, s := fixture(t)
	require.True(t, s.Tracked(TreeContent, filepath.Join(root, "locale", "fr", "index.md")))
	require.True(t, s.Tracked(TreeTemplates, filepath.Join(root, "layouts", "page.hbs")))
	require.True(t, s.Tracked(TreeStatic, filepath.Join(root, "static", "app.js")))

	tree, ok := s.TreeOf(filepath.Join(root, "locale", "fr", "index.md"))
	require.True(t, ok)
	require.Equal(t, TreeContent, tree)
	_, ok = s.TreeOf(filepath.Join(root, "build", "fr", "index.html"))
	require.False(t, ok)
}

func TestSession_Classify(t *testing.T) {
	root, s := fixture(t)
	post := filepath.Join(root, "locale", "fr", "blog", "post.md")
	writeFile(t, post, "nouveau")

	tests := []struct {
		name string
		tree Tree
		ev   Event
		want Action
	}{
		{"new content file", TreeContent, Event{Path: post, Op: OpCreate}, Action{Kind: ActionLocaleBuild, Locale: "fr", Tree: TreeContent}},
		{"tracked content write", TreeContent, Event{Path: filepath.Join(root, "locale", "fr", "index.md"), Op: OpWrite}, Action{Kind: ActionLocaleBuild, Locale: "fr", Tree: TreeContent}},
		{"locale metadata", TreeContent, Event{Path: filepath.Join(root, "locale", "fr", "site.json"), Op: OpWrite}, Action{Kind: ActionLocaleBuild, Locale: "fr", Tree: TreeContent}},
		{"default metadata", TreeContent, Event{Path: filepath.Join(root, "locale", "en", "site.json"), Op: OpWrite}, Action{Kind: ActionFullBuild, Tree: TreeContent}},
		{"file in locale root", TreeContent, Event{Path: filepath.Join(root, "locale", "README.md"), Op: OpCreate}, Action{Tree: TreeContent}},
		{"removal", TreeContent, Event{Path: post, Op: OpRemove}, Action{Tree: TreeContent}},
		{"rename", TreeContent, Event{Path: post, Op: OpRename}, Action{Tree: TreeContent}},
		{"swap file", TreeContent, Event{Path: filepath.Join(root, "locale", "fr", ".index.md.swp"), Op: OpCreate}, Action{Tree: TreeContent}},
		{"template", TreeTemplates, Event{Path: filepath.Join(root, "layouts", "page.hbs"), Op: OpWrite}, Action{Kind: ActionFullBuild, Tree: TreeTemplates}},
		{"static", TreeStatic, Event{Path: filepath.Join(root, "static", "logo.svg"), Op: OpCreate}, Action{Kind: ActionStaticCopy, Tree: TreeStatic}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, s.Classify(tt.tree, tt.ev))
		})
	}
	require.True(t, s.Tracked(TreeContent, post))
}

func TestSession_NewDirectoryTracksFilesInside(t *testing.T) {
	root, s := fixture(t)
	dir := filepath.Join(root, "locale", "de")
	writeFile(t, filepath.Join(dir, "site.json"), "{}")
	writeFile(t, filepath.Join(dir, "blog", "a.md"), "a")

	got := s.Classify(TreeContent, Event{Path: dir, Op: OpCreate, IsDir: true})
	require.Equal(t, Action{Kind: ActionLocaleBuild, Locale: "de", Tree: TreeContent}, got)
	require.True(t, s.Tracked(TreeContent, filepath.Join(dir, "blog", "a.md")))

	empty := filepath.Join(root, "static", "img")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	require.Equal(t, ActionNone, s.Classify(TreeStatic, Event{Path: empty, Op: OpCreate, IsDir: true}).Kind)
}

type fakeRebuilder struct {
	mu      sync.Mutex
	calls   []string
	release chan struct{}
	err     error
}

func (f *fakeRebuilder) record(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return f.err
}

func (f *fakeRebuilder) BuildLocale(_ context.Context, locale string) (*build.LocaleResult, error) {
	return &build.LocaleResult{Locale: locale}, f.record("locale:" + locale)
}

func (f *fakeRebuilder) FullBuild(context.Context) (*build.FullResult, error) {
	return &build.FullResult{}, f.record("full")
}

func (f *fakeRebuilder) CopyStatic(context.Context) error { return f.record("static") }

func (f *fakeRebuilder) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

const debounce = 20 * time.Millisecond

func TestScheduler_NewContentFileRebuildsOnlyItsLocale(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{}
	sched := NewScheduler(s, rb, Options{Debounce: debounce})
	t.Cleanup(sched.drain)

	post := filepath.Join(root, "locale", "fr", "blog", "post.md")
	writeFile(t, post, "x")
	sched.Handle(t.Context(), Event{Path: post, Op: OpCreate})
	for range 4 {
		sched.Handle(t.Context(), Event{Path: post, Op: OpWrite})
	}

	require.Eventually(t, func() bool { return len(rb.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(5 * debounce)
	require.Equal(t, []string{"locale:fr"}, rb.snapshot())
}

func TestScheduler_TemplateChangeRunsFullBuild(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{}
	sched := NewScheduler(s, rb, Options{Debounce: debounce})
	t.Cleanup(sched.drain)

	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "layouts", "page.hbs"), Op: OpWrite})
	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "static", "app.js"), Op: OpWrite})

	require.Eventually(t, func() bool { return len(rb.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []string{"full", "static"}, rb.snapshot())
}

func TestScheduler_RequestsDuringBuildCoalesce(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{release: make(chan struct{})}
	sched := NewScheduler(s, rb, Options{Debounce: debounce})
	t.Cleanup(sched.drain)

	index := filepath.Join(root, "locale", "fr", "index.md")
	sched.Handle(t.Context(), Event{Path: index, Op: OpWrite})
	require.Eventually(t, func() bool { return len(rb.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	for range 3 {
		sched.Handle(t.Context(), Event{Path: index, Op: OpWrite})
		time.Sleep(2 * debounce)
	}
	close(rb.release)

	require.Eventually(t, func() bool { return len(rb.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(5 * debounce)
	require.Equal(t, []string{"locale:fr", "locale:fr"}, rb.snapshot())
}

func TestScheduler_FailureIsReportedAndWatchingContinues(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{err: errors.New("render exploded")}

	var (
		mu   sync.Mutex
		errs []error
	)
	sched := NewScheduler(s, rb, Options{Debounce: debounce, OnRebuilt: func(_ Action, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}})
	t.Cleanup(sched.drain)

	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "locale", "fr", "index.md"), Op: OpWrite})
	require.Eventually(t, func() bool { return len(rb.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "static", "app.js"), Op: OpWrite})
	require.Eventually(t, func() bool { return len(rb.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for _, err := range errs {
		require.ErrorIs(t, err, ErrWatchTrigger)
	}
}

func TestScheduler_HoldsRebuildsUntilReady(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{}
	ready := make(chan struct{})
	sched := NewScheduler(s, rb, Options{Debounce: debounce, Ready: ready})
	t.Cleanup(sched.drain)

	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "locale", "fr", "index.md"), Op: OpWrite})
	time.Sleep(5 * debounce)
	require.Empty(t, rb.snapshot())

	close(ready)
	require.Eventually(t, func() bool { return len(rb.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"locale:fr"}, rb.snapshot())
}

func TestScheduler_NoRebuildStartsAfterDrain(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{}
	sched := NewScheduler(s, rb, Options{Debounce: debounce})

	sched.drain()
	sched.fire(t.Context(), &scopeState{action: Action{Kind: ActionFullBuild, Tree: TreeTemplates}})
	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "layouts", "page.hbs"), Op: OpWrite})
	time.Sleep(5 * debounce)

	require.Empty(t, rb.snapshot())
	sched.drain()
}

func TestScheduler_DrainReleasesRebuildsWaitingForReady(t *testing.T) {
	root, s := fixture(t)
	rb := &fakeRebuilder{}
	sched := NewScheduler(s, rb, Options{Debounce: debounce, Ready: make(chan struct{})})

	sched.Handle(t.Context(), Event{Path: filepath.Join(root, "static", "app.js"), Op: OpWrite})
	time.Sleep(3 * debounce)

	done := make(chan struct{})
	go func() {
		sched.drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain blocked on a rebuild waiting for readiness")
	}
	require.Empty(t, rb.snapshot())
}

func TestPoller_ScanReportsNewAndChangedFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "a.md")
	writeFile(t, existing, "one")

	p, err := NewPoller([]string{root}, time.Hour)
	require.NoError(t, err)
	p.snapshot = p.walk()
	require.Empty(t, p.scan())

	added := filepath.Join(root, "sub", "b.md")
	writeFile(t, added, "new")
	writeFile(t, existing, "changed")

	got := map[string]Op{}
	for _, e := range p.scan() {
		got[e.Path] = e.Op
	}
	require.Equal(t, map[string]Op{added: OpCreate, existing: OpWrite}, got)

	require.NoError(t, os.Remove(added))
	require.Empty(t, p.scan())

	_, err = NewPoller(nil, 0)
	require.Error(t, err)
}
