// Package recovery centralizes panic handling for main() and the graph's
// background goroutines, so a decode or mixing bug surfaces as a logged
// stack trace instead of a silent goroutine death.
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"
)

// HandlePanic should be deferred at the top of main(). It logs panic
// details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// HandlePanicFunc logs panic details and runs cleanup instead of exiting the
// process. Node producer goroutines defer this so a panic closes the node's
// done channel (unblocking Stop()) rather than leaving the graph hung.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		if cleanup != nil {
			cleanup()
		}
	}
}
