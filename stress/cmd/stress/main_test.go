package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 100\nnotify_delay: 10ms\nlog_level: error\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--scenario", "mutex,arc", "--workers", "2"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "mutex")
	require.Contains(t, out.String(), "arc")
	require.NotContains(t, out.String(), "rwlock")
}

func TestRootCmdFlagOverridesInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\niterations: 100\nlog_level: error\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--workers", "4", "--scenario", "mutex"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "ops=400")
}

func TestRootCmdInvalidWorkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stress.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\nlog_level: error\n"), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--scenario", "mutex"})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRootCmdBadLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "--scenario", "arc"})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}
