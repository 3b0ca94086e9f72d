package launch

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// Process is a running process as seen by the supervisor.
type Process struct {
	PID int32
	Exe string
}

// ProcessLister enumerates the executable images of running processes.
type ProcessLister interface {
	List(ctx context.Context) ([]Process, error)
}

// SystemProcesses reads the host process table.
type SystemProcesses struct{}

func (SystemProcesses) List(ctx context.Context) ([]Process, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Process, 0, len(processes))
	for _, p := range processes {
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			// processes of other users or already gone
			continue
		}
		result = append(result, Process{PID: p.Pid, Exe: exe})
	}
	log.Tracef("scanned %d processes with a readable executable", len(result))
	return result, nil
}
