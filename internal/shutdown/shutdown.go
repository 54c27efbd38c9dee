/*
PURPOSE:
  Optional post-run OS shutdown with a cancellation window.
  Long unattended sweeps power the bench machine down when done.

REQUIREMENTS:
  User-specified:
  - Only runs after all models are evaluated and the report is flushed.
  - Counts down a configurable delay, logging remaining time; an interrupt
    (Ctrl-C) during the window aborts the shutdown.

  Implementation-discovered:
  - signal.NotifyContext gives the abort semantics for free.
  - The actual power-off is delegated to the platform shutdown command via
    os/exec.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli after engine.Run returns.
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - A failed shutdown command is logged, not returned: the benchmark itself
    already succeeded.

IMPLEMENTATION RULES:
  - Never shut down when the config gate is off.

USAGE:
  shutdown.MaybeShutdown(cfg)

SELF-HEALING INSTRUCTIONS:
  - If the host distro lacks `shutdown`, point shutdownCommand at
    `systemctl poweroff` equivalents.

RELATED FILES:
  - internal/cli/run.go

MAINTENANCE:
  - Windows support would need a different command invocation.
*/

package shutdown

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/output"
)

// shutdownCommand is what gets executed once the countdown expires.
var shutdownCommand = []string{"shutdown", "-h", "now"}

// MaybeShutdown powers the machine off if the config gate is enabled,
// after a countdown that an interrupt aborts.
func MaybeShutdown(cfg *config.Config) {
	if !cfg.Shutdown.Enabled {
		return
	}

	delay := cfg.Shutdown.DelaySeconds
	if delay <= 0 {
		delay = 60
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	output.Logger.Warn("System shutdown scheduled; press Ctrl-C to abort",
		"delay_seconds", delay)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining := delay; remaining > 0; {
		select {
		case <-ctx.Done():
			output.Logger.Info("Shutdown aborted by interrupt")
			return
		case <-ticker.C:
			remaining--
			if remaining > 0 && remaining%10 == 0 {
				output.Logger.Info("Shutting down...", "in_seconds", remaining)
			}
		}
	}

	output.Logger.Warn("Executing system shutdown")
	cmd := exec.Command(shutdownCommand[0], shutdownCommand[1:]...)
	if err := cmd.Run(); err != nil {
		output.Logger.Error("Shutdown command failed", "error", err)
	}
}
