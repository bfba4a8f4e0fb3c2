//go:build linux

package rtpriority

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// schedFIFOPriority is a conservative real-time priority: high enough to
// preempt normal SCHED_OTHER threads, low enough not to starve the kernel's
// own housekeeping threads if the process lacks CAP_SYS_NICE and the call
// fails loudly instead of silently degrading.
const schedFIFOPriority = 40

func promote() error {
	param := &unix.SchedParam{Priority: schedFIFOPriority}
	if err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, param); err != nil {
		return fmt.Errorf("rtpriority: SCHED_FIFO unavailable: %w", err)
	}
	return nil
}
