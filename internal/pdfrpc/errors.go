package pdfrpc

import "fmt"

// WorkerUnavailableError means the worker process died or its RPC
// channel broke. It is fatal to the current session: the manager never
// restarts a worker, callers must re-open.
type WorkerUnavailableError struct {
	Reason string
	Err    error
}

func (e *WorkerUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("worker unavailable: %s", e.Reason)
}

func (e *WorkerUnavailableError) Unwrap() error { return e.Err }
