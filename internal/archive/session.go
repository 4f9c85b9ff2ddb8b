package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/naminx/mcomix/internal/pdfrpc"
)

var errDisabled = errors.New("pdf backend disabled")

// Session is one caller's view of the archive. It lazily spawns its
// worker process on first use and owns it until Close. A session is
// not safe for concurrent use; callers needing parallelism take one
// session each.
type Session struct {
	path  string
	start startFunc
	mgr   wrangler
}

// open spawns the manager and opens the document on first use.
// Re-opening after Close creates a brand-new process.
func (s *Session) open() (wrangler, error) {
	if s.mgr != nil {
		return s.mgr, nil
	}
	m, err := s.start()
	if err != nil {
		return nil, err
	}
	if err := m.Open(s.path); err != nil {
		m.Close()
		return nil, err
	}
	s.mgr = m
	return m, nil
}

// Close destroys the worker process. Safe to call repeatedly and on a
// session that was never used.
func (s *Session) Close() {
	if s.mgr != nil {
		s.mgr.Close()
		s.mgr = nil
	}
}

// PageCount opens the document if needed and returns its page count.
func (s *Session) PageCount() (int, error) {
	m, err := s.open()
	if err != nil {
		return 0, err
	}
	return m.PageCount()
}

// ListContents returns the lazy page-name listing, one name per page in
// page order.
func (s *Session) ListContents() (pdfrpc.Iterator, error) {
	m, err := s.open()
	if err != nil {
		return nil, err
	}
	return m.ListContents()
}

// Extract extracts a single entry into destDir and reports whether
// exactly one result was produced. An extraction miss shows up as
// false with a nil error.
func (s *Session) Extract(name, destDir string) (bool, error) {
	it, err := s.ExtractMany([]string{name}, destDir)
	if err != nil {
		return false, err
	}
	produced := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		produced++
	}
	return produced == 1, nil
}

// ExtractMany streams the extraction of entries into destDir. Each
// yielded name acknowledges that its extraction was attempted; stopping
// early leaves the rest un-attempted.
func (s *Session) ExtractMany(entries []string, destDir string) (pdfrpc.Iterator, error) {
	m, err := s.open()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	return m.ExtractPages(entries, destDir)
}
