package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-resolver/internal/daemon"
	"github.com/dep2p/go-resolver/internal/registry"
	"github.com/dep2p/go-resolver/pkg/lib/log"
)

func startDaemon(t *testing.T) string {
	t.Helper()
	reg, err := registry.NewMemoryRegistry(64)
	require.NoError(t, err)
	cfg := daemon.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	d, err := daemon.New(cfg, reg)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() {
		_ = d.Stop()
		_ = reg.Close()
	})
	return d.Addr().String()
}

func TestRun(t *testing.T) {
	defer log.SetLevel(log.LevelInfo)
	addr := startDaemon(t)
	invoke := func(args ...string) (int, string, string) {
		var stdout, stderr bytes.Buffer
		code := run(append([]string{"-addr", addr, "-timeout", time.Second.String()}, args...), &stdout, &stderr)
		return code, stdout.String(), stderr.String()
	}

	code, out, _ := invoke("register", "foo.service", "tcp://127.0.0.1:9000")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "foo.service -> tcp://127.0.0.1:9000")

	code, out, _ = invoke("lookup", "foo.service")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "tcp://127.0.0.1:9000\n", out)

	code, _, _ = invoke("unregister", "foo.service")
	require.Equal(t, exitOK, code)

	code, _, errOut := invoke("lookup", "foo.service")
	assert.Equal(t, exitNotFound, code)
	assert.Contains(t, errOut, "OBJECT_NOT_FOUND")
}

func TestRun_Usage(t *testing.T) {
	defer log.SetLevel(log.LevelInfo)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run([]string{"lookup"}, &stdout, &stderr))
	assert.Equal(t, exitUsage, run([]string{"register", "svc"}, &stdout, &stderr))
	assert.Equal(t, exitUsage, run([]string{"frobnicate", "svc"}, &stdout, &stderr))
	assert.Equal(t, exitUsage, run([]string{"-nope"}, &stdout, &stderr))
}

func TestRun_BadEndpoint(t *testing.T) {
	defer log.SetLevel(log.LevelInfo)
	var stdout, stderr bytes.Buffer
	code := run([]string{"-addr", "127.0.0.1:1", "register", "svc", "nonsense"}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
}
