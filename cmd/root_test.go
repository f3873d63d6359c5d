// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/docdriver/internal/config"
	"github.com/xkilldash9x/docdriver/internal/host"
	"github.com/xkilldash9x/docdriver/internal/observability"
)

// executeCommand runs a fresh command tree with args and returns its output.
// Default config files are not searched so the developer's own settings do
// not leak in.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	t.Setenv("DOCDRIVER_LOGGER_LEVEL", "fatal")

	saved := configSearchPath
	configSearchPath = nil
	t.Cleanup(func() { configSearchPath = saved })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// stubHost makes every command use h and records the host config it was built from.
func stubHost(t *testing.T, h host.Host) *config.HostConfig {
	t.Helper()
	got := &config.HostConfig{}
	saved := newHost
	newHost = func(ctx context.Context, cfg config.HostConfig, logger *zap.Logger) (host.Host, func(context.Context) error, error) {
		*got = cfg
		return h, func(context.Context) error { return nil }, nil
	}
	t.Cleanup(func() { newHost = saved })
	return got
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCmd_VersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "docdriver drives a live browser document through its scripting host.")
	assert.Contains(t, out, "compile")
}

func TestRootCmd_FlagsOverrideConfig(t *testing.T) {
	h := newLoadedHost()
	got := stubHost(t, h)

	_, err := executeCommand(t, "url", "--backend", "cdp", "--headless=false")
	require.NoError(t, err)
	assert.Equal(t, config.BackendCDP, got.Backend)
	assert.False(t, got.Headless)
}

func TestRootCmd_InvalidBackendFlag(t *testing.T) {
	stubHost(t, newLoadedHost())

	_, err := executeCommand(t, "url", "--backend", "lynx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `host.backend must be "safari", "cdp" or "offline"`)
}

func TestRootCmd_EnvironmentValidation(t *testing.T) {
	stubHost(t, newLoadedHost())
	t.Setenv("DOCDRIVER_SYNC_MAX_ROUNDS", "0")

	_, err := executeCommand(t, "url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "sync.max_rounds")
}

func TestRootCmd_ConfigFile(t *testing.T) {
	got := stubHost(t, newLoadedHost())

	path := filepath.Join(t.TempDir(), "docdriver.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host:\n  app_name: Safari Technology Preview\n"), 0o600))

	_, err := executeCommand(t, "url", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "Safari Technology Preview", got.AppName)
}

func TestRootCmd_MissingExplicitConfigFile(t *testing.T) {
	stubHost(t, newLoadedHost())

	_, err := executeCommand(t, "url", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(present, []byte("{}"), 0o600))

	saved := configSearchPath
	t.Cleanup(func() { configSearchPath = saved })

	configSearchPath = []string{filepath.Join(dir, "missing.yaml"), present}
	path, err := findConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, present, path)

	configSearchPath = []string{filepath.Join(dir, "missing.yaml")}
	path, err = findConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path, "no default file is not an error")

	path, err = findConfigFile("/etc/docdriver.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/docdriver.yaml", path)
}
