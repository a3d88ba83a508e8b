// Package proto implements the wire protocol: a per-connection framer that
// incrementally decides when a full request has arrived, and the fixed
// response envelope. The surface is a deliberate subset of HTTP/1.0 — just
// enough framing to interoperate with browsers, wget and curl — so there is
// no general header parser here.
package proto

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// ReadChunkSize is how many bytes the server reads from a connection at a time.
const ReadChunkSize = 1024

// State is the framer's position in the request lifecycle. Complete and
// Rejected are terminal; the connection is closed after either.
type State int

const (
	// StateStart means no bytes have been seen yet.
	StateStart State = iota
	// StateHeader is a GET waiting for the blank-line header terminator.
	StateHeader
	// StateContentLength is a POST whose header block is still incomplete.
	StateContentLength
	// StateBody is a POST with a known total length, waiting for the rest.
	StateBody
	// StateComplete means a full request is buffered.
	StateComplete
	// StateRejected means the request violated framing; see Reason.
	StateRejected
)

// Rejection reasons, sent back to the client as "ERROR: <reason>" lines.
const (
	ReasonNotUnderstood = "request not understood"
	ReasonTooMuchData   = "too much data"
	ReasonNeedLength    = "need Content-Length"
	ReasonBadTransfer   = "bad transfer-encoding"
	ReasonBodyOverrun   = "more data than advertised, nice try"
)

var (
	postPrefix = []byte("POST /")
	crlfcrlf   = []byte("\r\n\r\n")

	// A GET request line: root (with its trailing space) or a paste token.
	getLine = regexp.MustCompile(`^GET /[A-Za-z0-9]* HTTP`)
)

// Framer accumulates the bytes of one request and reports when they form a
// complete GET or POST, using O(1) state beyond the buffer itself. It never
// reads from a socket; the caller feeds it whatever chunks arrive.
type Framer struct {
	maxBytes int
	buf      []byte
	state    State
	total    int // expected total request length once the POST header is parsed
	reason   string
}

// NewFramer returns a Framer that rejects requests larger than maxBytes.
func NewFramer(maxBytes int) *Framer {
	return &Framer{maxBytes: maxBytes}
}

// Feed appends a chunk and re-evaluates. Feeding a terminal framer is a no-op.
// The result is identical no matter how the request bytes are split across
// calls.
func (f *Framer) Feed(chunk []byte) State {
	if f.state == StateComplete || f.state == StateRejected {
		return f.state
	}

	f.buf = append(f.buf, chunk...)

	// The size cap applies before any parsing.
	if len(f.buf) > f.maxBytes {
		return f.reject(ReasonTooMuchData)
	}

	if f.state == StateStart {
		f.classify()
	}
	f.evaluate()
	return f.state
}

// State returns the current framing state.
func (f *Framer) State() State { return f.state }

// Bytes returns the accumulated request bytes.
func (f *Framer) Bytes() []byte { return f.buf }

// Reason returns the rejection reason, or "" if the framer is not rejected.
func (f *Framer) Reason() string { return f.reason }

// classify inspects the first chunk's prefix. Anything that is not an
// obvious GET or POST is rejected outright; there is no waiting for more
// bytes to disambiguate.
func (f *Framer) classify() {
	switch {
	case bytes.HasPrefix(f.buf, postPrefix):
		f.state = StateContentLength
	case getLine.Match(f.buf):
		f.state = StateHeader
	default:
		f.reject(ReasonNotUnderstood)
	}
}

func (f *Framer) evaluate() {
	for {
		switch f.state {
		case StateHeader:
			if bytes.Contains(f.buf, crlfcrlf) {
				// GET carries no body; anything after the separator is ignored.
				f.state = StateComplete
			}
			return

		case StateContentLength:
			sep := bytes.Index(f.buf, crlfcrlf)
			if sep < 0 {
				return
			}
			header := f.buf[:sep]
			n, ok := contentLength(header)
			if !ok {
				f.reject(ReasonNeedLength)
				return
			}
			if !transferEncodingAllowed(header) {
				f.reject(ReasonBadTransfer)
				return
			}
			f.total = sep + len(crlfcrlf) + n
			f.state = StateBody
			// Re-check immediately: the body (possibly empty) may already
			// be buffered.

		case StateBody:
			switch {
			case len(f.buf) == f.total:
				f.state = StateComplete
			case len(f.buf) > f.total:
				f.reject(ReasonBodyOverrun)
			}
			return

		default:
			return
		}
	}
}

func (f *Framer) reject(reason string) State {
	f.state = StateRejected
	f.reason = reason
	return f.state
}

// contentLength extracts the Content-Length value from a header block.
// Absent or non-numeric values report !ok.
func contentLength(header []byte) (int, bool) {
	v, found := headerValue(header, "content-length")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// transferEncodingAllowed accepts an absent Transfer-Encoding or the no-op
// "identity"; anything else (chunked in particular) is refused.
func transferEncodingAllowed(header []byte) bool {
	v, found := headerValue(header, "transfer-encoding")
	if !found {
		return true
	}
	return strings.EqualFold(v, "identity")
}

func headerValue(header []byte, name string) (string, bool) {
	for _, line := range bytes.Split(header, []byte("\r\n")) {
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		if !strings.EqualFold(string(bytes.TrimSpace(line[:colon])), name) {
			continue
		}
		return string(bytes.TrimSpace(line[colon+1:])), true
	}
	return "", false
}
