package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"use"},
		{"classify"},
		{"profile", "list"},
		{"profile", "show"},
		{"profile", "add"},
		{"profile", "edit"},
		{"profile", "delete"},
		{"profile", "switch"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"mode", "profile", "top"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestIndexOf(t *testing.T) {
	items := []string{"onnx", "openai"}
	assert.Equal(t, 1, indexOf(items, "openai"))
	assert.Equal(t, 0, indexOf(items, "tfjs"))
}
