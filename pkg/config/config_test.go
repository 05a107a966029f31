package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
client_id: 42
token: secret
`))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.ClientID)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, DefaultGateURL, cfg.GateURL)
	assert.Equal(t, DefaultMaxBatchBytes, cfg.MaxBatchBytes)
	assert.Equal(t, DefaultMaxBatchRecords, cfg.MaxBatchRecords)
	assert.Equal(t, DefaultFlushInterval, cfg.FlushInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFromReader_JSONCompatible(t *testing.T) {
	// Singer targets conventionally take a JSON config file; YAML parses it.
	cfg, err := LoadConfigFromReader(strings.NewReader(
		`{"client_id": 7, "token": "tok", "namespace": "prod"}`))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.ClientID)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "prod", cfg.Namespace)
}

func TestLoadConfigFromReader_MissingCredentials(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`token: only`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")

	_, err = LoadConfigFromReader(strings.NewReader(`client_id: 1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_SpoolRequirements(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientID = 1
	cfg.Token = "t"
	cfg.Spool.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3_bucket")

	cfg.Spool.S3Bucket = "bucket"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace")

	cfg.Namespace = "ns"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_BadBatchLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientID = 1
	cfg.Token = "t"
	cfg.MaxBatchBytes = -1

	assert.Error(t, cfg.Validate())
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.ClientID = 99
	cfg.Token = "tok"
	cfg.FlushInterval = 5 * time.Second
	require.NoError(t, cfg.SaveConfig(path))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 99, loaded.ClientID)
	assert.Equal(t, 5*time.Second, loaded.FlushInterval)
}

func TestVerifySSL(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.VerifySSL())

	f := false
	cfg.SSLVerify = &f
	assert.False(t, cfg.VerifySSL())

	cfg.SSLVerify = nil
	t.Setenv(SSLVerifyEnv, "false")
	assert.False(t, cfg.VerifySSL())

	t.Setenv(SSLVerifyEnv, "true")
	assert.True(t, cfg.VerifySSL())
}

func TestSpoolNotifyURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientID = 123
	assert.Equal(t, "https://spool.stitchdata.com/v2/clients/123/batches", cfg.SpoolNotifyURL())

	cfg.SpoolURL = "http://localhost:8080/batches"
	assert.Equal(t, "http://localhost:8080/batches", cfg.SpoolNotifyURL())
}
