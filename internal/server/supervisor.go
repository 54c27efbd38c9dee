/*
PURPOSE:
  Starts and stops the llama-server child process for one model at a time
  and polls it for readiness.

REQUIREMENTS:
  User-specified:
  - Launch llama-server bound to server_host:server_port with the model
    path, a fixed 4096 context, the thread count, and the configured chat
    template (named template or template file).
  - Poll GET /health at 1-second intervals up to 45 times; ready means a
    JSON body with status == "ok".
  - Readiness timeout: log the process's buffered output for diagnostics,
    terminate it, and report failure. The caller skips this model.
  - Stop sends SIGTERM and blocks until exit; a nil handle is a no-op.

  Implementation-discovered:
  - stdout and stderr are captured into one buffer (the server interleaves
    useful loader diagnostics across both).
  - Exactly one live handle at a time; the orchestration loop guarantees
    Stop before the next Start via defer.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Start failure is fatal-to-model, not fatal-to-run.

IMPLEMENTATION RULES:
  - os/exec, SIGTERM (not Kill) so the server can release the port cleanly.
  - MaxRetries/PollInterval are fields to keep the polling loop testable.

USAGE:
  sup := server.NewSupervisor(cfg)
  h, err := sup.Start(ctx, modelPath, threads)
  defer sup.Stop(h)

SELF-HEALING INSTRUCTIONS:
  - If llama-server changes its flag names, update buildArgs.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Update if llama.cpp grows a richer readiness signal than /health.
*/

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// contextSize is fixed: two chat turns with generous answers fit in 4096.
const contextSize = 4096

// Handle is one live supervised llama-server process.
type Handle struct {
	cmd *exec.Cmd
	// out accumulates combined stdout+stderr for post-mortem logging.
	out *bytes.Buffer
}

// PID returns the child process id for log correlation.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Output returns whatever the server has written so far.
func (h *Handle) Output() string {
	return h.out.String()
}

// Supervisor owns the single llama-server process slot.
type Supervisor struct {
	cfg *config.Config

	// MaxRetries and PollInterval bound the readiness polling loop.
	MaxRetries   int
	PollInterval time.Duration

	client *http.Client
}

// NewSupervisor creates a Supervisor with the standard 45x1s retry budget.
func NewSupervisor(cfg *config.Config) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		MaxRetries:   45,
		PollInterval: time.Second,
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *Supervisor) buildArgs(modelPath string, threads int) []string {
	args := []string{
		"-m", modelPath,
		"-c", strconv.Itoa(contextSize),
		"-t", strconv.Itoa(threads),
		"--host", s.cfg.ServerHost,
		"--port", strconv.Itoa(s.cfg.ServerPort),
	}
	if s.cfg.ChatTemplateFile != "" {
		args = append(args, "--chat-template-file", s.cfg.ChatTemplateFile)
	} else {
		args = append(args, "--chat-template", s.cfg.ChatTemplate)
	}
	return args
}

// Start launches llama-server for modelPath and blocks until it reports
// healthy or the retry budget is exhausted.
func (s *Supervisor) Start(ctx context.Context, modelPath string, threads int) (*Handle, error) {
	args := s.buildArgs(modelPath, threads)
	output.Logger.Info("Starting server", "binary", s.cfg.LlamaServerPath, "args", args)

	cmd := exec.Command(s.cfg.LlamaServerPath, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", s.cfg.LlamaServerPath, err)
	}

	h := &Handle{cmd: cmd, out: &buf}

	healthURL := s.cfg.ServerURL() + "/health"
	for i := 0; i < s.MaxRetries; i++ {
		select {
		case <-ctx.Done():
			s.Stop(h)
			return nil, ctx.Err()
		default:
		}

		if s.healthy(healthURL) {
			output.Logger.Info("Server ready", "pid", h.PID(), "model", modelPath)
			return h, nil
		}

		output.Logger.Info("Waiting for server...", "attempt", i+1, "max", s.MaxRetries)
		time.Sleep(s.PollInterval)
	}

	// Not ready in time: put it down first. Wait joins the stdout/stderr
	// copy goroutines, so the buffer is only read once the child is gone.
	s.Stop(h)
	output.Logger.Error("Server did not become ready in time",
		"model", modelPath, "retries", s.MaxRetries, "server_output", h.Output())
	return nil, fmt.Errorf("server for %s not ready after %d attempts", modelPath, s.MaxRetries)
}

func (s *Supervisor) healthy(url string) bool {
	resp, err := s.client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	return payload.Status == "ok"
}

// Stop terminates the supervised process and waits for it to exit.
// A nil handle is a no-op.
func (s *Supervisor) Stop(h *Handle) {
	if h == nil {
		return
	}

	output.Logger.Info("Stopping server", "pid", h.PID())
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		output.Logger.Warn("SIGTERM failed, killing process", "pid", h.PID(), "error", err)
		_ = h.cmd.Process.Kill()
	}
	_ = h.cmd.Wait()
	output.Logger.Info("Server stopped", "pid", h.PID())
}
