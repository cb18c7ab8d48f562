package translator

import (
	"os/exec"

	"github.com/resonance-relay/sniffer/logging"
)

// serverGuard ties the inference child's lifetime to the worker: Close kills
// it unconditionally, called via defer from the worker's entrypoint so it
// runs on every exit path including a recovered panic.
type serverGuard struct {
	cmd *exec.Cmd
	log logging.L
}

func (g *serverGuard) Close() {
	if g == nil || g.cmd == nil || g.cmd.Process == nil {
		return
	}
	if err := g.cmd.Process.Kill(); err != nil && g.log != nil {
		g.log.Warnf("failed to kill inference child: %v\n", err)
	}
}
