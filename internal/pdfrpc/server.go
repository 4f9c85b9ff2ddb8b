package pdfrpc

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/naminx/mcomix/internal/pdfworker"
)

// OpenFunc opens a document path into a worker. The production value is
// a closure over pdfworker.Open with the process configuration.
type OpenFunc func(path string) (*pdfworker.Worker, error)

// pull produces the next element of a server-side stream.
type pull func() (name string, ok bool, err error)

// Serve runs the worker side of the protocol until the peer closes the
// request channel. It is called inside the spawned worker process with
// stdin/stdout, and by tests with in-process pipes.
//
// Requests are handled strictly one at a time; the worker's document
// handle is single-threaded by construction.
func Serve(r io.Reader, w io.Writer, open OpenFunc) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	var worker *pdfworker.Worker
	streams := make(map[string]pull)
	defer func() {
		if worker != nil {
			worker.Close()
		}
	}()

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				log.Debug().Msg("request channel closed, worker exiting")
				return nil
			}
			return err
		}

		resp := handle(&worker, streams, open, req)
		resp.ID = req.ID
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
}

func handle(worker **pdfworker.Worker, streams map[string]pull, open OpenFunc, req request) response {
	switch req.Op {
	case opOpen:
		if *worker != nil {
			return errResponse(codeBadRequest, "document already open")
		}
		w, err := open(req.Path)
		if err != nil {
			return errResponse(codeOpenFailed, err.Error())
		}
		*worker = w
		return response{}

	case opPageCount:
		if *worker == nil {
			return errResponse(codeBadRequest, "no document open")
		}
		return response{Pages: (*worker).PageCount()}

	case opListContents:
		if *worker == nil {
			return errResponse(codeBadRequest, "no document open")
		}
		it := (*worker).Contents()
		id := uuid.NewString()
		streams[id] = func() (string, bool, error) {
			name, ok := it.Next()
			return name, ok, nil
		}
		return response{Stream: id}

	case opExtractPages:
		if *worker == nil {
			return errResponse(codeBadRequest, "no document open")
		}
		w := *worker
		entries := req.Entries
		dest := req.Dest
		next := 0
		id := uuid.NewString()
		streams[id] = func() (string, bool, error) {
			if next >= len(entries) {
				return "", false, nil
			}
			entry := entries[next]
			next++
			if err := w.ExtractFile(entry, dest); err != nil {
				return "", false, err
			}
			// yielding the entry back acknowledges the attempt
			return entry, true, nil
		}
		return response{Stream: id}

	case opNext:
		f, ok := streams[req.Stream]
		if !ok {
			return errResponse(codeBadRequest, "unknown stream")
		}
		name, ok, err := f()
		if err != nil {
			delete(streams, req.Stream)
			return errResponse(codeInternal, err.Error())
		}
		if !ok {
			delete(streams, req.Stream)
			return response{Done: true}
		}
		return response{Name: name}

	default:
		return errResponse(codeBadRequest, "unknown op "+req.Op)
	}
}

func errResponse(code, msg string) response {
	return response{Error: &wireError{Code: code, Message: msg}}
}
