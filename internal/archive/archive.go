// Package archive exposes a PDF file as a page archive. Each caller
// works through its own Session, which owns a dedicated worker process;
// concurrent extraction from multiple goroutines is safe because the
// sessions share nothing, not because anything is locked.
package archive

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/naminx/mcomix/internal/config"
	"github.com/naminx/mcomix/internal/pdfrpc"
)

// wrangler is the manager surface a session drives. *pdfrpc.Manager is
// the production implementation.
type wrangler interface {
	Open(path string) error
	PageCount() (int, error)
	ListContents() (pdfrpc.Iterator, error)
	ExtractPages(entries []string, dest string) (pdfrpc.Iterator, error)
	Close() error
}

type startFunc func() (wrangler, error)

// Archive hands out per-caller sessions for one PDF file. The key →
// session map replaces thread-local storage: callers pick a stable key
// (worker goroutine id, task name), get their own session and with it
// their own worker process.
type Archive struct {
	path     string
	start    startFunc
	disabled bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an archive over the PDF at path.
func New(path string, cfg config.Config) *Archive {
	start := func() (wrangler, error) {
		return pdfrpc.Start(cfg.Worker.Binary, cfg.Worker.CallTimeout)
	}
	if cfg.Worker.Disabled {
		start = func() (wrangler, error) {
			return nil, errDisabled
		}
	}
	return &Archive{
		path:     path,
		start:    start,
		disabled: cfg.Worker.Disabled,
		sessions: make(map[string]*Session),
	}
}

// Available reports whether the PDF backend is enabled. The
// PDF_MULTI_DISABLE kill switch turns it off; sessions of an
// unavailable archive fail on first use.
func (a *Archive) Available() bool { return !a.disabled }

// SupportsConcurrentExtraction reports that sessions may extract in
// parallel. Always true: isolation guarantees it.
func (a *Archive) SupportsConcurrentExtraction() bool { return true }

// Session returns the session owned by key, creating it on first use.
// The returned session must stay on the calling goroutine.
func (a *Archive) Session(key string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[key]; ok {
		return s
	}
	s := &Session{path: a.path, start: a.start}
	a.sessions[key] = s
	log.Debug().Str("key", key).Str("path", a.path).Msg("session created")
	return s
}

// CloseAll tears down every session and its worker process.
func (a *Archive) CloseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, s := range a.sessions {
		s.Close()
		delete(a.sessions, key)
	}
}
