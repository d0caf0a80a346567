package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o644))

	assert.Equal(t, 1, run(path))
}

func TestRunReportsServeFailureAndCleansUp(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "sketchroom.log")
	config := fmt.Sprintf(`http:
  host: 127.0.0.1
  port: %d
logger:
  level: info
  file_path: %s
`, busy.Addr().(*net.TCPAddr).Port, logPath)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))

	// Reaching the assertions at all means the process was not killed.
	assert.Equal(t, 1, run(configPath))

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "server stopped with error")
	assert.Contains(t, string(logged), "address already in use")
}
