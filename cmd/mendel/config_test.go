package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
handlers:
  - id: raw
    type: value
topics:
  - subject: sensors.raw
    handlers: [raw]
values:
  - value: room:raw
    handlers:
      - handler_id: raw
actions:
  - type: kalman
    action_id: filter
    values:
      room:raw: t
    output:
      topic: filtered
      value_id: room:filtered
`

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("mendel", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	f, err := parseFlags(fs, []string{"-f", "x.yaml", "-l", "out.log", "-n", "-a", ":9000"})
	require.NoError(t, err)
	assert.Equal(t, "x.yaml", f.ConfigFile)
	assert.Equal(t, "out.log", f.LogFile)
	assert.Equal(t, ":9000", f.Address)
	assert.True(t, f.NoRun)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mendel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	t.Setenv("ADDRESS", "env:1")

	cfg, err := loadConfig(&Flags{ConfigFile: path, Address: "flag:2", NATSURL: "nats://x:4222"})
	require.NoError(t, err)
	assert.Equal(t, "flag:2", cfg.HTTP.Address)
	assert.Equal(t, "nats://x:4222", cfg.NATS.URL)
	require.NoError(t, cfg.Validate())
}

func TestRun_NoRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mendel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	logFile := filepath.Join(t.TempDir(), "mendel.log")

	require.NoError(t, run([]string{"-f", path, "-n", "-l", logFile}))
	assert.FileExists(t, logFile)
}

func TestRun_MissingConfig(t *testing.T) {
	assert.Error(t, run([]string{"-f", filepath.Join(t.TempDir(), "none.yaml"), "-n"}))
}
