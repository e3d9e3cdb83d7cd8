package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v1.2.0"
	require.Equal(t, "sitebuilder v1.2.0 (commit unknown, built unknown)", String())
}
