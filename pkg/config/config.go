// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

// Package config resolves the uhu settings from environment variables and
// the global configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

// Environment variables honored by uhu.  Each one overrides the
// corresponding default below.
const (
	ServerURLVar    = "UHU_SERVER_URL"
	ChunkSizeVar    = "UHU_CHUNK_SIZE"
	GlobalConfigVar = "UHU_GLOBAL_CONFIG"
	LocalConfigVar  = "UHU_LOCAL_CONFIG"
	AccessIDVar     = "UHU_ACCESS_ID"
	AccessSecretVar = "UHU_ACCESS_SECRET"
)

const (
	DefaultServerURL = "https://api.updatehub.io"
	DefaultChunkSize = 131072

	defaultGlobalConfigName = ".uhu"
	defaultLocalConfigName  = ".uhu"
)

// Credentials is the content of the global configuration file.
type Credentials struct {
	AccessID     string `json:"access_id"`
	AccessSecret string `json:"access_secret"`
	ServerURL    string `json:"server_url,omitempty"`
}

// ChunkSize returns the read/upload chunk size in bytes.  A missing or
// malformed UHU_CHUNK_SIZE falls back to DefaultChunkSize.
func ChunkSize() int64 {
	if str := os.Getenv(ChunkSizeVar); str != "" {
		if size, err := strconv.ParseInt(str, 10, 64); err == nil && size > 0 {
			return size
		}
	}
	return DefaultChunkSize
}

// ServerURL returns the server URL joined with path.
func ServerURL(path string) string {
	base := os.Getenv(ServerURLVar)
	if base == "" {
		base = DefaultServerURL
	}
	return strings.TrimRight(base, "/") + path
}

// GlobalConfigFilename returns the filename of the global configuration
// file ("~/.uhu" unless overridden).
func GlobalConfigFilename() string {
	if fn := os.Getenv(GlobalConfigVar); fn != "" {
		return fn
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultGlobalConfigName
	}
	return filepath.Join(home, defaultGlobalConfigName)
}

// LocalConfigFilename returns the filename of the local package file
// ("./.uhu" unless overridden).
func LocalConfigFilename() string {
	if fn := os.Getenv(LocalConfigVar); fn != "" {
		return fn
	}
	return defaultLocalConfigName
}

// ReadCredentials loads the access credentials, preferring the environment
// over the global configuration file.  It is not an error for the file to
// be missing if both credential variables are set.
func ReadCredentials() (*Credentials, error) {
	creds := &Credentials{
		AccessID:     os.Getenv(AccessIDVar),
		AccessSecret: os.Getenv(AccessSecretVar),
	}
	if creds.AccessID != "" && creds.AccessSecret != "" {
		return creds, nil
	}

	filename := GlobalConfigFilename()
	yamlBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var fileCreds Credentials
	if err := yaml.Unmarshal(yamlBytes, &fileCreds, yaml.DisallowUnknownFields); err != nil {
		return nil, fmt.Errorf("read credentials: %s: %w", filename, err)
	}
	if creds.AccessID == "" {
		creds.AccessID = fileCreds.AccessID
	}
	if creds.AccessSecret == "" {
		creds.AccessSecret = fileCreds.AccessSecret
	}
	creds.ServerURL = fileCreds.ServerURL

	if creds.AccessID == "" || creds.AccessSecret == "" {
		return nil, fmt.Errorf("read credentials: %s: missing access_id or access_secret", filename)
	}
	return creds, nil
}

// WriteCredentials stores creds in the global configuration file with
// owner-only permissions.
func WriteCredentials(creds *Credentials) error {
	yamlBytes, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(GlobalConfigFilename(), yamlBytes, 0o600)
}
