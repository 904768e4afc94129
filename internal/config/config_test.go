package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("yaml with defaults", func(t *testing.T) {
		// Given: a config file that sets only a few keys
		path := filepath.Join(t.TempDir(), "config.yml")
		content := "log-level: debug\nredis:\n  host: cache\ngame:\n  win-score: 5\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		// When: it is loaded
		conf, err := Load(path)
		require.NoError(t, err)

		// Then: explicit values win and the rest fall back to defaults
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "cache:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, int64(5), conf.Game.WinScore)
		assert.Equal(t, 5, conf.Game.WordLength)
		assert.Equal(t, 120*time.Second, conf.Game.MatchDuration)
		assert.Equal(t, time.Second, conf.Matchmaker.RequeueDelay)
		assert.Equal(t, BusDriverRedis, conf.Bus.Driver)
	})

	t.Run("unknown bus driver", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("bus:\n  driver: kafka\n"), 0o600))

		_, err := Load(path)

		require.Error(t, err)
	})

	t.Run("environment only", func(t *testing.T) {
		t.Setenv("BUS_DRIVER", BusDriverNATS)
		t.Setenv("GAME_MATCH_DURATION", "30s")

		conf, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, BusDriverNATS, conf.Bus.Driver)
		assert.Equal(t, 30*time.Second, conf.Game.MatchDuration)
	})
}
