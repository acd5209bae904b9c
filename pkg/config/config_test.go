// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelACosta/uhu/pkg/config"
)

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestChunkSize(t *testing.T) {
	testcases := map[string]struct {
		EnvValue string
		Expected int64
	}{
		"default":     {EnvValue: "", Expected: config.DefaultChunkSize},
		"overridden":  {EnvValue: "1", Expected: 1},
		"not-numeric": {EnvValue: "spam", Expected: config.DefaultChunkSize},
		"negative":    {EnvValue: "-2", Expected: config.DefaultChunkSize},
		"zero":        {EnvValue: "0", Expected: config.DefaultChunkSize},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Setenv(config.ChunkSizeVar, tc.EnvValue)
			assert.Equal(t, tc.Expected, config.ChunkSize())
		})
	}
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestServerURL(t *testing.T) {
	t.Setenv(config.ServerURLVar, "")
	assert.Equal(t, config.DefaultServerURL, config.ServerURL(""))

	t.Setenv(config.ServerURLVar, "http://updatehub.example.com")
	assert.Equal(t, "http://updatehub.example.com", config.ServerURL(""))
	assert.Equal(t, "http://updatehub.example.com/test", config.ServerURL("/test"))

	t.Setenv(config.ServerURLVar, "http://updatehub.example.com/")
	assert.Equal(t, "http://updatehub.example.com/test", config.ServerURL("/test"))
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestConfigFilenames(t *testing.T) {
	t.Setenv(config.GlobalConfigVar, "/tmp/super_file")
	assert.Equal(t, "/tmp/super_file", config.GlobalConfigFilename())

	t.Setenv(config.LocalConfigVar, "/tmp/.uhu")
	assert.Equal(t, "/tmp/.uhu", config.LocalConfigFilename())

	t.Setenv(config.LocalConfigVar, "")
	assert.Equal(t, ".uhu", config.LocalConfigFilename())
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestReadCredentialsFromEnvironment(t *testing.T) {
	t.Setenv(config.AccessIDVar, "access")
	t.Setenv(config.AccessSecretVar, "secret")

	creds, err := config.ReadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessID)
	assert.Equal(t, "secret", creds.AccessSecret)
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestReadCredentialsFromFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(filename, []byte(""+
		"access_id: access\n"+
		"access_secret: secret\n"+
		"server_url: http://updatehub.example.com\n"), 0o600))

	t.Setenv(config.AccessIDVar, "")
	t.Setenv(config.AccessSecretVar, "")
	t.Setenv(config.GlobalConfigVar, filename)

	creds, err := config.ReadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessID)
	assert.Equal(t, "secret", creds.AccessSecret)
	assert.Equal(t, "http://updatehub.example.com", creds.ServerURL)
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestReadCredentialsErrors(t *testing.T) {
	tmpdir := t.TempDir()

	t.Setenv(config.AccessIDVar, "")
	t.Setenv(config.AccessSecretVar, "")
	t.Setenv(config.GlobalConfigVar, filepath.Join(tmpdir, "missing"))

	_, err := config.ReadCredentials()
	assert.Error(t, err)

	filename := filepath.Join(tmpdir, "partial")
	require.NoError(t, os.WriteFile(filename, []byte("access_id: access\n"), 0o600))
	t.Setenv(config.GlobalConfigVar, filename)

	_, err = config.ReadCredentials()
	assert.Error(t, err)
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestWriteCredentialsRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config")
	t.Setenv(config.GlobalConfigVar, filename)
	t.Setenv(config.AccessIDVar, "")
	t.Setenv(config.AccessSecretVar, "")

	require.NoError(t, config.WriteCredentials(&config.Credentials{
		AccessID:     "access",
		AccessSecret: "secret",
	}))

	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	creds, err := config.ReadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "access", creds.AccessID)
	assert.Equal(t, "secret", creds.AccessSecret)
}
