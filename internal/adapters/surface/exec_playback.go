package surface

import (
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

const minLoopRestart = 500 * time.Millisecond

// ExecPlayback drives an external player (mpv by default) with the asset as
// its last argument. Looping assets are restarted when the player exits.
type ExecPlayback struct {
	command []string
	obs     ports.Observability

	mu  sync.Mutex
	run *playerRun
}

type playerRun struct {
	cmd     *exec.Cmd
	stopped bool
}

func NewExecPlayback(command []string, obs ports.Observability) (*ExecPlayback, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("surface: player command is required")
	}
	return &ExecPlayback{command: append([]string(nil), command...), obs: obs}, nil
}

func (p *ExecPlayback) Play(assetRef string, loop bool, onCompletion func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	run := &playerRun{}
	if err := p.startLocked(run, assetRef); err != nil {
		return err
	}
	p.run = run
	go p.wait(run, assetRef, loop, onCompletion)
	return nil
}

func (p *ExecPlayback) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *ExecPlayback) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run != nil && !p.run.stopped
}

func (p *ExecPlayback) startLocked(run *playerRun, assetRef string) error {
	args := append(append([]string(nil), p.command[1:]...), assetRef)
	cmd := exec.Command(p.command[0], args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	run.cmd = cmd
	p.obs.LogDebug("player_process_started",
		ports.Field{Key: "asset", Value: assetRef},
		ports.Field{Key: "pid", Value: cmd.Process.Pid})
	return nil
}

func (p *ExecPlayback) wait(run *playerRun, assetRef string, loop bool, onCompletion func()) {
	for {
		p.mu.Lock()
		cmd := run.cmd
		p.mu.Unlock()

		started := time.Now()
		err := cmd.Wait()

		p.mu.Lock()
		if run.stopped || p.run != run {
			p.mu.Unlock()
			return
		}
		if !loop {
			p.run = nil
			p.mu.Unlock()
			if err != nil {
				p.obs.LogError("player_exit", err, ports.Field{Key: "asset", Value: assetRef})
			}
			if onCompletion != nil {
				onCompletion()
			}
			return
		}
		p.mu.Unlock()

		if elapsed := time.Since(started); elapsed < minLoopRestart {
			time.Sleep(minLoopRestart - elapsed)
		}

		p.mu.Lock()
		if run.stopped || p.run != run {
			p.mu.Unlock()
			return
		}
		if err := p.startLocked(run, assetRef); err != nil {
			run.stopped = true
			p.run = nil
			p.mu.Unlock()
			p.obs.LogError("player_loop_restart_failed", err, ports.Field{Key: "asset", Value: assetRef})
			return
		}
		p.mu.Unlock()
	}
}

func (p *ExecPlayback) stopLocked() {
	if p.run == nil {
		return
	}
	p.run.stopped = true
	if p.run.cmd != nil && p.run.cmd.Process != nil {
		_ = p.run.cmd.Process.Kill()
	}
	p.run = nil
}

var _ ports.PlaybackSurface = (*ExecPlayback)(nil)
