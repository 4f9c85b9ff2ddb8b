package pdfrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/naminx/mcomix/internal/metrics"
	"github.com/naminx/mcomix/internal/pdfdoc"
)

// WorkerArg is the argv marker that switches the binary into worker
// mode. The manager spawns its own executable with this argument.
const WorkerArg = "__pdfworker"

// Iterator is a pull-based remote stream. Next blocks for one round
// trip per element. Abandoning an iterator before exhaustion is
// allowed: later elements are simply never computed, and the worker
// process stays alive for further calls.
type Iterator interface {
	Next() (name string, ok bool, err error)
}

// Manager owns one worker process and bridges calls to it. A manager
// belongs to a single session; it must not be shared. Once the process
// dies or the channel breaks, every call fails with
// *WorkerUnavailableError and the manager is permanently unusable.
type Manager struct {
	mu          sync.Mutex
	enc         *json.Encoder
	dec         *json.Decoder
	nextID      uint64
	callTimeout time.Duration
	broken      bool
	closed      bool

	cmd   *exec.Cmd
	stdin io.Closer
}

// Start spawns a worker process and returns a manager attached to it.
// binary empty means re-exec the current executable. callTimeout
// bounds each round trip; zero disables the deadline.
func Start(binary string, callTimeout time.Duration) (*Manager, error) {
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate worker binary: %w", err)
		}
		binary = exe
	}

	cmd := exec.Command(binary, WorkerArg)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn worker: %w", err)
	}
	metrics.IncWorkerSpawn()
	log.Debug().Int("pid", cmd.Process.Pid).Str("binary", binary).Msg("worker process spawned")

	go forwardStderr(stderr)

	m := Attach(stdout, stdin)
	m.cmd = cmd
	m.stdin = stdin
	m.callTimeout = callTimeout
	return m, nil
}

// Attach builds a manager over an arbitrary transport. Tests use this
// with in-process pipes; Start uses it with the child's stdio.
func Attach(r io.Reader, w io.Writer) *Manager {
	return &Manager{
		enc: json.NewEncoder(w),
		dec: json.NewDecoder(r),
	}
}

// Open opens the document inside the worker process. A failure to
// parse the file surfaces as *pdfdoc.DocumentOpenError.
func (m *Manager) Open(path string) error {
	_, err := m.call(request{Op: opOpen, Path: path})
	return err
}

// PageCount returns the page count of the opened document.
func (m *Manager) PageCount() (int, error) {
	resp, err := m.call(request{Op: opPageCount})
	if err != nil {
		return 0, err
	}
	return resp.Pages, nil
}

// ListContents starts the remote page listing and returns its
// iterator. Names arrive in page order, one round trip each.
func (m *Manager) ListContents() (Iterator, error) {
	resp, err := m.call(request{Op: opListContents})
	if err != nil {
		return nil, err
	}
	return &stream{m: m, id: resp.Stream}, nil
}

// ExtractPages starts the remote extraction of entries into dest. The
// iterator yields each entry back once its extraction was attempted,
// in request order; consuming the whole stream is what guarantees
// every entry was attempted.
func (m *Manager) ExtractPages(entries []string, dest string) (Iterator, error) {
	resp, err := m.call(request{Op: opExtractPages, Entries: entries, Dest: dest})
	if err != nil {
		return nil, err
	}
	return &stream{m: m, id: resp.Stream}, nil
}

// Close terminates the worker process. The manager is unusable
// afterwards; Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.teardown()
	return nil
}

// teardown reaps the child. Callers hold m.mu.
func (m *Manager) teardown() {
	if m.stdin != nil {
		_ = m.stdin.Close()
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
		log.Debug().Int("pid", m.cmd.Process.Pid).Msg("worker process reaped")
	}
}

func (m *Manager) call(req request) (response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return response{}, &WorkerUnavailableError{Reason: "manager closed"}
	}
	if m.broken {
		return response{}, &WorkerUnavailableError{Reason: "worker process lost"}
	}

	m.nextID++
	req.ID = m.nextID

	if m.callTimeout > 0 {
		timer := time.AfterFunc(m.callTimeout, func() {
			// unblocks the pending decode with a transport error
			m.teardown()
		})
		defer timer.Stop()
	}

	start := time.Now()
	if err := m.enc.Encode(req); err != nil {
		return response{}, m.fail("send request", err)
	}
	var resp response
	if err := m.dec.Decode(&resp); err != nil {
		return response{}, m.fail("read response", err)
	}
	metrics.ObserveRPC(req.Op, time.Since(start))

	if resp.ID != req.ID {
		return response{}, m.fail("protocol desync", fmt.Errorf("request %d answered as %d", req.ID, resp.ID))
	}
	if resp.Error != nil {
		return response{}, remoteError(resp.Error, req)
	}
	return resp, nil
}

// fail marks the manager broken and reaps the child. Callers hold m.mu.
func (m *Manager) fail(reason string, err error) error {
	if !m.broken {
		m.broken = true
		metrics.IncWorkerFailure()
		log.Warn().Err(err).Str("reason", reason).Msg("worker channel broken")
		m.teardown()
	}
	return &WorkerUnavailableError{Reason: reason, Err: err}
}

// remoteError rebuilds a typed error from the wire representation.
func remoteError(we *wireError, req request) error {
	switch we.Code {
	case codeOpenFailed:
		return &pdfdoc.DocumentOpenError{Path: req.Path, Err: errors.New(we.Message)}
	default:
		return fmt.Errorf("worker %s: %s", req.Op, we.Message)
	}
}

// stream is the client half of a remote sequence.
type stream struct {
	m    *Manager
	id   string
	done bool
}

func (s *stream) Next() (string, bool, error) {
	if s.done {
		return "", false, nil
	}
	resp, err := s.m.call(request{Op: opNext, Stream: s.id})
	if err != nil {
		return "", false, err
	}
	if resp.Done {
		s.done = true
		return "", false, nil
	}
	return resp.Name, true, nil
}

// forwardStderr relays the child's log lines into the parent log.
func forwardStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		log.Debug().Str("source", "pdfworker").Msg(sc.Text())
	}
}
