// Package process supervises helper processes the browser depends on, such as a
// virtual X display when the browser is not running headless.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"baikalctl/internal/components/assert"
	"baikalctl/internal/components/telemetry"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	report_supervised_start = "supervised.start"
	report_supervised_stop  = "supervised.stop"
)

const DefaultStopTimeout = 5 * time.Second

var ErrZombie = errors.New("process did not exit after SIGKILL")

// Supervised starts a command unless a process with the same name is already
// running, and stops the command it started.
type Supervised struct {
	name string
	args []string
	tel  telemetry.API

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	pid  int32
}

func NewSupervised(tel telemetry.API, name string, args ...string) *Supervised {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(name, "name")

	return &Supervised{
		name: name,
		args: args,
		tel:  telemetry.NewScopedAPI("process", tel),
	}
}

// Pid returns the pid of the supervised (or adopted) process, 0 if none was seen.
func (s *Supervised) Pid() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// IsRunning returns true if the command we started is alive, or if any process
// on the host has the same executable name.
func (s *Supervised) IsRunning(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning(ctx)
}

func (s *Supervised) isRunning(ctx context.Context) (bool, error) {
	if s.cmd != nil {
		select {
		case <-s.done:
			s.cmd = nil
		default:
			s.pid = int32(s.cmd.Process.Pid)
			return true, nil
		}
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}
	base := filepath.Base(s.name)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if name == base {
			s.pid = p.Pid
			return true, nil
		}
	}
	return false, nil
}

// Start is a no-op when the process is already running.
func (s *Supervised) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	running, err := s.isRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		s.tel.ReportDebug("already running", s.name, s.pid)
		return nil
	}

	cmd := exec.Command(s.name, s.args...)
	if err := cmd.Start(); err != nil {
		s.tel.ReportBroken(report_supervised_start, err, s.name)
		return fmt.Errorf("start %s: %w", s.name, err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	s.cmd = cmd
	s.done = done
	s.pid = int32(cmd.Process.Pid)

	// catches commands that exit immediately (bad arguments, display in use)
	select {
	case <-done:
		s.cmd = nil
		err := fmt.Errorf("unexpected process termination: %s", s.name)
		s.tel.ReportBroken(report_supervised_start, err)
		return err
	case <-time.After(100 * time.Millisecond):
	}

	s.tel.ReportDebug("started", s.name, s.pid)
	return nil
}

// Stop sends SIGTERM then SIGKILL to a process we started, waiting up to timeout
// after each. Adopted processes are left alone.
func (s *Supervised) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	for _, sig := range []os.Signal{syscall.SIGTERM, syscall.SIGKILL} {
		if err := s.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.tel.ReportWarning(report_supervised_stop, err, sig.String())
		}
		select {
		case <-s.done:
			s.cmd = nil
			s.pid = 0
			return nil
		case <-time.After(timeout):
		}
	}

	s.tel.ReportBroken(report_supervised_stop, ErrZombie, s.name)
	return fmt.Errorf("%s: %w", s.name, ErrZombie)
}
