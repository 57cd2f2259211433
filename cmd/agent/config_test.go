package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_Priority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: file:1\ntopic: from/file\npoll_interval: 5s\nrate_limit: 3\n"), 0o600))
	t.Setenv("TOPIC", "from/env")

	cfg, err := loadConfig(newFlagSet(), []string{"-c", path, "-a", "flag:2", "-r", "30"})
	require.NoError(t, err)

	assert.Equal(t, "flag:2", cfg.Address)
	assert.Equal(t, "from/env", cfg.Topic)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.ReportInterval)
	assert.Equal(t, 3, cfg.RateLimit)
}

func TestLoadConfig_BadInterval(t *testing.T) {
	_, err := loadConfig(newFlagSet(), []string{"-p", "never"})
	assert.Error(t, err)
}
