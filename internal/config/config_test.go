package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAndLoad(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Initialize("http://backend.example:8780")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.example:8780", cfg.APIURL)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.APIURL, loaded.APIURL)
	assert.Equal(t, cfg.Root(), loaded.Root())
}

func TestInitializeTwiceFails(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Initialize("http://backend.example:8780")
	require.NoError(t, err)

	_, err = Initialize("http://backend.example:8780")
	assert.Error(t, err)
}

func TestFindRootWalksUp(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	_, err := Initialize("http://backend.example:8780")
	require.NoError(t, err)

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	found, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, CampoSyncDir), found)
}

func TestFindRootOutsideWorkspace(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FindRoot()
	assert.Error(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	root := filepath.Join(t.TempDir(), CampoSyncDir)
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFile),
		[]byte(`api_url = "http://backend.example:8780"`), 0644))

	cfg, err := LoadFrom(root)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Sync.ProbeInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Initialize("http://backend.example:8780")
	require.NoError(t, err)

	cfg.Sync.MaxAttempts = 5
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Sync.MaxAttempts)
}

func TestDatabasePath(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Initialize("http://backend.example:8780")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Root(), DatabaseFile), cfg.DatabasePath())
}

func TestCredentials(t *testing.T) {
	root := t.TempDir()
	creds := NewCredentials(root)

	// Missing file yields the empty token, never an error.
	assert.Equal(t, "", creds.Token())

	require.NoError(t, creds.SetToken("secreto"))
	assert.Equal(t, "secreto", creds.Token())

	// Owner-only permissions on the stored credential.
	info, err := os.Stat(filepath.Join(root, CredentialsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, creds.ClearToken())
	assert.Equal(t, "", creds.Token())

	// Clearing an absent credential is a no-op.
	require.NoError(t, creds.ClearToken())
}

func TestCredentialsUnreadableFileYieldsEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, CredentialsFile),
		[]byte("not = [valid toml"), 0600))

	creds := NewCredentials(root)
	assert.Equal(t, "", creds.Token())
}
