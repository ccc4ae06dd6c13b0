package monitor

import (
	"context"
	"time"
)

// PollJob adapts the monitor's refresh cycle to the scheduler's Job
// interface.
type PollJob struct {
	monitor *Monitor
	timeout time.Duration
}

// NewPollJob creates the scheduled poll job. A zero timeout defaults to one
// minute per cycle.
func NewPollJob(monitor *Monitor, timeout time.Duration) *PollJob {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &PollJob{monitor: monitor, timeout: timeout}
}

// Run polls every configured pairing once.
func (j *PollJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.monitor.RefreshAll(ctx)
	return nil
}

// Name returns the job name for scheduler logging.
func (j *PollJob) Name() string {
	return "reconciliation_poll"
}
