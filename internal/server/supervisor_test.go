package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// fakeBinary writes a stand-in llama-server: it prints a line, records its
// pid, and sleeps until signalled.
func fakeBinary(t *testing.T) (binPath, pidPath string) {
	t.Helper()
	dir := t.TempDir()
	binPath = filepath.Join(dir, "llama-server")
	pidPath = filepath.Join(dir, "server.pid")

	script := "#!/bin/sh\necho \"llama loading model\"\necho $$ > " + pidPath + "\nsleep 60\n"
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))
	return binPath, pidPath
}

func healthServer(t *testing.T, status string) (*httptest.Server, *config.Config) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))

	host, portStr, err := net.SplitHostPort(srv.URL[len("http://"):])
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.ServerHost = host
	cfg.ServerPort = port
	return srv, cfg
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && len(bytes.TrimSpace(data)) > 0 {
			return string(bytes.TrimSpace(data))
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
	return ""
}

func processGone(pid int) bool {
	return syscall.Kill(pid, 0) != nil
}

func TestStartBecomesReady(t *testing.T) {
	srv, cfg := healthServer(t, "ok")
	defer srv.Close()

	binPath, _ := fakeBinary(t)
	cfg.LlamaServerPath = binPath

	sup := NewSupervisor(cfg)
	sup.PollInterval = 10 * time.Millisecond

	h, err := sup.Start(context.Background(), "/models/test.gguf", 4)
	require.NoError(t, err)
	require.NotNil(t, h)

	pid := h.PID()
	sup.Stop(h)

	// Stop blocks until exit; the process must be fully gone.
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 20*time.Millisecond)
}

func TestStartGivesUpWhenNeverReady(t *testing.T) {
	srv, cfg := healthServer(t, "loading")
	defer srv.Close()

	binPath, pidPath := fakeBinary(t)
	cfg.LlamaServerPath = binPath

	var logs bytes.Buffer
	output.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	defer output.SetLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	sup := NewSupervisor(cfg)
	sup.MaxRetries = 3
	sup.PollInterval = 10 * time.Millisecond

	h, err := sup.Start(context.Background(), "/models/test.gguf", 4)
	require.Error(t, err)
	assert.Nil(t, h)

	// The child was terminated after the retry budget ran out.
	pid, convErr := strconv.Atoi(waitForFile(t, pidPath))
	require.NoError(t, convErr)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 20*time.Millisecond)

	// Its buffered output surfaced in the diagnostics.
	assert.Contains(t, logs.String(), "llama loading model")
}

// chattyBinary writes a stand-in server that emits output continuously, so
// reading the diagnostics buffer would race the exec copier goroutines
// unless Start terminates and waits for the child first.
func chattyBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "llama-server")
	script := "#!/bin/sh\nwhile true; do echo \"llama chatter\"; sleep 0.01; done\n"
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))
	return binPath
}

func TestStartFailureDiagnosticsWithChattyServer(t *testing.T) {
	srv, cfg := healthServer(t, "loading")
	defer srv.Close()

	cfg.LlamaServerPath = chattyBinary(t)

	var logs bytes.Buffer
	output.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	defer output.SetLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	sup := NewSupervisor(cfg)
	sup.MaxRetries = 3
	sup.PollInterval = 10 * time.Millisecond

	h, err := sup.Start(context.Background(), "/models/test.gguf", 4)
	require.Error(t, err)
	assert.Nil(t, h)

	// The child kept writing until it was stopped; its output still makes
	// it into the diagnostics, read only after Wait returned.
	assert.Contains(t, logs.String(), "llama chatter")
}

func TestStopNilHandleIsNoOp(t *testing.T) {
	sup := NewSupervisor(config.DefaultConfig())
	assert.NotPanics(t, func() { sup.Stop(nil) })
}

func TestBuildArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ServerHost = "10.0.0.5"
	cfg.ServerPort = 9090
	cfg.ChatTemplate = "phi4"
	sup := NewSupervisor(cfg)

	args := sup.buildArgs("/models/phi4.gguf", 8)
	assert.Equal(t, []string{
		"-m", "/models/phi4.gguf",
		"-c", "4096",
		"-t", "8",
		"--host", "10.0.0.5",
		"--port", "9090",
		"--chat-template", "phi4",
	}, args)

	cfg.ChatTemplateFile = "/etc/templates/custom.jinja"
	args = sup.buildArgs("/models/phi4.gguf", 8)
	assert.Contains(t, args, "--chat-template-file")
	assert.NotContains(t, args, "--chat-template")
}
