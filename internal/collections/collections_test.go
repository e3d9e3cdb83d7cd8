package collections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

func post(path string, date any) *content.Item {
	meta := map[string]any{}
	if date != nil {
		meta["date"] = date
	}
	return &content.Item{Path: path, Meta: meta}
}

func paths(items []*content.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Path
	}
	return out
}

func TestCompute_ReverseDateOrderAndLimit(t *testing.T) {
	files := content.NewFiles(
		post("blog/weekly-updates/a.md", "2020-01-01"),
		post("blog/weekly-updates/b.md", "2021-01-01"),
		post("blog/weekly-updates/c.md", "2019-01-01"),
		post("blog/release/v1.md", time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)),
		post("index.md", nil),
	)

	set, err := Compute(files, []Definition{
		{Name: "blog", Pattern: "blog/**/*.md", SortBy: "date", Reverse: true},
		{Name: "lastWeekly", Pattern: "blog/weekly-updates/*.md", SortBy: "date", Reverse: true, Limit: 1},
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"blog/release/v1.md",
		"blog/weekly-updates/b.md",
		"blog/weekly-updates/a.md",
		"blog/weekly-updates/c.md",
	}, paths(set.Get("blog")))
	require.Equal(t, []string{"blog/weekly-updates/b.md"}, paths(set.Get("lastWeekly")))
	require.Equal(t, []string{"blog", "lastWeekly"}, set.Names())

	b, _ := files.Get("blog/weekly-updates/b.md")
	require.Equal(t, []string{"blog", "lastWeekly"}, b.Meta[MetaKey])
	idx, _ := files.Get("index.md")
	require.NotContains(t, idx.Meta, MetaKey)
}

func TestCompute_TiesAndUndatedItemsAreDeterministic(t *testing.T) {
	files := content.NewFiles(
		post("news/b.md", "2020-01-01"),
		post("news/a.md", "2020-01-01"),
		post("news/undated.md", nil),
		post("news/garbage.md", "someday"),
	)
	set, err := Compute(files, []Definition{{Name: "news", Pattern: "news/*.md", SortBy: "date"}})
	require.NoError(t, err)
	require.Equal(t, []string{"news/undated.md", "news/garbage.md", "news/a.md", "news/b.md"}, paths(set.Get("news")))

	// recomputing yields the same order and does not duplicate membership
	set, err = Compute(files, []Definition{{Name: "news", Pattern: "news/*.md", SortBy: "date"}})
	require.NoError(t, err)
	require.Len(t, set.Get("news"), 4)
	a, _ := files.Get("news/a.md")
	require.Equal(t, []string{"news"}, a.Meta[MetaKey])
}

func TestCompute_EmptyCollectionAndErrors(t *testing.T) {
	files := content.NewFiles(post("index.md", nil))

	set, err := Compute(files, []Definition{{Name: "tscMinutes", Pattern: "foundation/tsc/minutes/*.md"}})
	require.NoError(t, err)
	require.Empty(t, set.Get("tscMinutes"))
	require.Equal(t, map[string]any{"tscMinutes": []any{}}, set.Native())

	_, err = Compute(files, []Definition{{Name: "x", Pattern: "a/["}})
	require.Error(t, err)
	_, err = Compute(files, []Definition{{Name: "x", Pattern: "*"}, {Name: "x", Pattern: "*"}})
	require.Error(t, err)
}

func TestSet_NativeExposesPathAndContents(t *testing.T) {
	it := post("blog/a.md", "2020-01-01")
	it.Meta["title"] = "A"
	it.Contents = []byte("<p>a</p>")
	set, err := Compute(content.NewFiles(it), []Definition{{Name: "blog", Pattern: "blog/*.md"}})
	require.NoError(t, err)

	entries := set.Native()["blog"].([]any)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	require.Equal(t, "A", entry["title"])
	require.Equal(t, "blog/a.md", entry["path"])
	require.Equal(t, "<p>a</p>", entry["contents"])
}
