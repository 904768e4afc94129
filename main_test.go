package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	root := newRootCmd()

	// Then: usage stays quiet on run errors and both roles are wired
	assert.True(t, root.SilenceUsage)
	require.NotNil(t, root.PersistentFlags().Lookup("config"))

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, serve.Flags().Lookup("with-worker"))

	worker, _, err := root.Find([]string{"worker"})
	require.NoError(t, err)
	assert.Equal(t, "worker", worker.Name())
}
