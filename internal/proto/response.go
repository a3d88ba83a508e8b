package proto

import (
	"bytes"
	"fmt"
	"io"
)

// WriteResponse writes the fixed response envelope followed by the body.
// The envelope always reports 200 OK: application-level failures ("No such
// paste.", ERROR lines) travel in the body. Only framing violations are
// distinguished, and those too arrive as ERROR bodies under this envelope.
func WriteResponse(w io.Writer, body []byte) error {
	var b bytes.Buffer
	fmt.Fprintf(&b,
		"HTTP/1.1 200 OK\r\nContent-Type: text/plain; charset=UTF-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n",
		len(body))
	b.Write(body)
	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// ErrorBody formats a framing or application error line for the client.
func ErrorBody(reason string) []byte {
	return []byte("ERROR: " + reason + "\n")
}
