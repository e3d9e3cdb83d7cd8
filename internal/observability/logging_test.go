package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogContext_Accumulates(t *testing.T) {
	ctx := WithBuildID(t.Context(), "build-123")
	ctx = WithLocale(ctx, "fr")
	ctx = WithStage(ctx, "render")

	lc := GetContext(ctx)
	require.Equal(t, "build-123", lc.BuildID)
	require.Equal(t, "fr", lc.Locale)
	require.Equal(t, "render", lc.Stage)
}

func TestInfoContext_AppendsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithLocale(WithBuildID(t.Context(), "b-1"), "de")
	InfoContext(ctx, "stage finished", slog.Int("items", 4))

	out := buf.String()
	require.Contains(t, out, "build_id=b-1")
	require.Contains(t, out, "locale=de")
	require.Contains(t, out, "items=4")
	require.NotContains(t, out, "stage=")
}
