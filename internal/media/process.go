package media

import (
	"os/exec"
	"sync"
)

// Process is the handle to a live ffmpeg invocation, held by the job
// registry so operator tooling can inspect it.
type Process struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

func (p *Process) SetCmd(c *exec.Cmd) {
	p.mu.Lock()
	p.cmd = c
	p.mu.Unlock()
}

func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}
