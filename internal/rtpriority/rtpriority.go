// Package rtpriority requests elevated OS thread scheduling for the
// real-time audio callback thread on a best-effort basis. No cross-platform
// Go equivalent of a thread-priority crate exists in the retrieval pack or
// is a well-known quantity in the ecosystem, so this is the one place the
// engine falls back to golang.org/x/sys/unix directly instead of a
// higher-level dependency.
package rtpriority

import (
	"log/slog"
	"sync"
)

var warnOnce sync.Once

// Boost returns a function suitable for sinknode.Config.BoostPriority:
// called once from inside the first real-time callback invocation, it
// requests real-time (SCHED_FIFO on Linux) scheduling for the calling OS
// thread. If that fails it logs one warning and the thread keeps its normal
// priority; no lower fallback priority is tried.
//
// Grounded on speaker_dest.rs's ensure_realtime_priority, which calls
// audio_thread_priority::promote_current_thread_to_real_time once per
// stream via a std::sync::Once guard.
func Boost() func() {
	return func() {
		if err := promote(); err != nil {
			warnOnce.Do(func() {
				slog.Warn("could not raise audio thread priority, continuing at normal priority", "error", err)
			})
		}
	}
}
