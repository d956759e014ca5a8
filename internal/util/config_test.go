package util

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", config.ListenAddress)
	assert.Equal(t, uint32(30), config.ActionTimeoutSec)
	assert.Equal(t, int64(1000), config.DefaultBuyIn)
	assert.Equal(t, 100, config.MaxChatHistory)
	assert.Equal(t, 50, config.MaxActionHistory)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := "listen_address: \":9000\"\naction_timeout_sec: 15\ndefault_buyin: 500\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", config.ListenAddress)
	assert.Equal(t, uint32(15), config.ActionTimeoutSec)
	assert.Equal(t, int64(500), config.DefaultBuyIn)
	// unset keys keep their defaults
	assert.Equal(t, 100, config.MaxChatHistory)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", ":7777")
	t.Setenv("ACTION_TIMEOUT", "12")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", config.ListenAddress)
	assert.Equal(t, uint32(12), config.ActionTimeoutSec)
}
