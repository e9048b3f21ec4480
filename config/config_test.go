package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate(), "Defaults should always validate")
	require.Equal(t, AlgorithmUCT, cfg.Algorithm)
}

func TestLoad(t *testing.T) {
	t.Run("overrides named fields and keeps defaults for the rest", func(t *testing.T) {
		path := writeConfig(t, "algorithm: adp\nbudget: 250\ndiscount: 0.95\nseed: 7\n")

		cfg, err := Load(path)

		require.NoError(t, err)
		require.Equal(t, AlgorithmADP, cfg.Algorithm)
		require.Equal(t, 250, cfg.Budget)
		require.Equal(t, 0.95, cfg.Discount)
		require.Equal(t, uint64(7), cfg.Seed)
		require.Equal(t, Default().Horizon, cfg.Horizon, "Unset fields should keep their defaults")
	})

	t.Run("rejects unknown algorithms", func(t *testing.T) {
		path := writeConfig(t, "algorithm: minimax\n")

		_, err := Load(path)

		require.ErrorContains(t, err, "unknown algorithm")
	})

	t.Run("rejects an out-of-range discount", func(t *testing.T) {
		path := writeConfig(t, "discount: 1.5\n")

		_, err := Load(path)

		require.ErrorContains(t, err, "discount")
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		require.Error(t, err)
	})
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Reuse = true
	cfg.Seed = 3

	options := cfg.Options()

	require.NotEmpty(t, options)
}
