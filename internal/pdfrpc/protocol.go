// Package pdfrpc bridges calls to a PDF worker living in an isolated
// child process. The protocol is newline-delimited JSON over the
// child's stdin/stdout: one request, one response, strictly in order.
// Streamed sequences are pull-based; every element costs one round
// trip, so the parent never holds more than one element in flight.
package pdfrpc

// Operations understood by the worker process.
const (
	opOpen         = "open"
	opPageCount    = "page_count"
	opListContents = "list_contents"
	opExtractPages = "extract_pages"
	opNext         = "next"
)

// Error codes carried over the wire.
const (
	codeOpenFailed = "open_failed"
	codeBadRequest = "bad_request"
	codeInternal   = "internal"
)

type request struct {
	ID      uint64   `json:"id"`
	Op      string   `json:"op"`
	Path    string   `json:"path,omitempty"`
	Entries []string `json:"entries,omitempty"`
	Dest    string   `json:"dest,omitempty"`
	Stream  string   `json:"stream,omitempty"`
}

type response struct {
	ID     uint64     `json:"id"`
	Error  *wireError `json:"error,omitempty"`
	Pages  int        `json:"pages,omitempty"`
	Stream string     `json:"stream,omitempty"`
	Name   string     `json:"name,omitempty"`
	Done   bool       `json:"done,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
