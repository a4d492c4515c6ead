package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cachekit"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := filepath.ToSlash(filepath.Join(t.TempDir(), "cache"))
	cfg := writeConfig(t, "enabled: true\ncompress: true\ndir: "+dir+"\nexpire: 60\nbackend: file\n")

	_, _, err := run(t, "--config", cfg, "set", "users/42", "ada")
	require.NoError(t, err)

	out, stderr, err := run(t, "--config", cfg, "--stats", "get", "users/42")
	require.NoError(t, err)
	require.Equal(t, "ada\n", out)
	require.Contains(t, stderr, "reads=1 writes=0 ops=1")
	require.Contains(t, stderr, "read (n=1)")

	out, _, err = run(t, "--config", cfg, "locked", "users/42")
	require.NoError(t, err)
	require.Equal(t, "false\n", out)

	_, _, err = run(t, "--config", cfg, "lock", "users/42")
	require.NoError(t, err)
	out, _, _ = run(t, "--config", cfg, "locked", "users/42")
	require.Equal(t, "true\n", out)
	_, _, err = run(t, "--config", cfg, "unlock", "users/42")
	require.NoError(t, err)

	_, _, err = run(t, "--config", cfg, "clear", "users")
	require.NoError(t, err)
	_, _, err = run(t, "--config", cfg, "get", "users/42")
	require.True(t, errors.Is(err, errNotFound), "err=%v", err)

	_, _, err = run(t, "--config", cfg, "del", "users/42")
	require.NoError(t, err)
}

func TestSetExpireFlag(t *testing.T) {
	dir := filepath.ToSlash(filepath.Join(t.TempDir(), "cache"))
	cfg := writeConfig(t, "enabled: true\ncompress: false\ndir: "+dir+"\nexpire: 60\n")

	// negative expiry => stored without expiry
	_, _, err := run(t, "--config", cfg, "set", "--expire", "-1", "k", "v")
	require.NoError(t, err)
	out, _, err := run(t, "--config", cfg, "get", "k")
	require.NoError(t, err)
	require.Equal(t, "v\n", out)
}

func TestConfigErrors(t *testing.T) {
	_, _, err := run(t, "--config", writeConfig(t, "backend: file\n"), "get", "k")
	require.ErrorIs(t, err, cachekit.ErrConfig)

	_, _, err = run(t, "--config", writeConfig(t, "enabled: true\ndir: d\n"), "get", "k")
	require.ErrorIs(t, err, cachekit.ErrConfig)
	require.True(t, strings.Contains(err.Error(), "compress"), err.Error())

	valid := "enabled: true\ncompress: false\ndir: d\nexpire: 1\n"
	_, _, err = run(t, "--config", writeConfig(t, valid), "--backend", "memcached", "get", "k")
	require.ErrorIs(t, err, cachekit.ErrConfig)

	_, _, err = run(t, "--config", writeConfig(t, valid), "--backend", "redis", "get", "k")
	require.ErrorIs(t, err, cachekit.ErrConfig, "redis without url")

	_, _, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "get", "k")
	require.ErrorIs(t, err, cachekit.ErrConfig)
}

func TestDisabledCache(t *testing.T) {
	cfg := writeConfig(t, "enabled: false\ncompress: false\ndir: "+filepath.ToSlash(t.TempDir())+"\nexpire: 1\n")

	_, _, err := run(t, "--config", cfg, "set", "k", "v")
	require.NoError(t, err)
	_, _, err = run(t, "--config", cfg, "get", "k")
	require.ErrorIs(t, err, errNotFound)
}

func TestVerboseReportsForcedUnlock(t *testing.T) {
	dir := filepath.ToSlash(filepath.Join(t.TempDir(), "cache"))
	cfg := writeConfig(t, "enabled: true\ncompress: false\ndir: "+dir+"\nexpire: 60\n")

	_, _, err := run(t, "--config", cfg, "lock", "k")
	require.NoError(t, err)

	_, stderr, err := run(t, "--config", cfg, "--verbose", "set", "k", "v")
	require.NoError(t, err)
	require.Contains(t, stderr, "cachekit.lock_forced")
	require.Contains(t, stderr, dir+"/k")
}
