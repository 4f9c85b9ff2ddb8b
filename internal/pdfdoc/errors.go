package pdfdoc

import "fmt"

// DocumentOpenError reports a missing, corrupt or unsupported document.
// It is fatal to the session that tried to open the file.
type DocumentOpenError struct {
	Path string
	Err  error
}

func (e *DocumentOpenError) Error() string {
	return fmt.Sprintf("open document %s: %v", e.Path, e.Err)
}

func (e *DocumentOpenError) Unwrap() error { return e.Err }
