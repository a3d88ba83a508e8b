package server

import (
	"bytes"
	_ "embed"
)

//go:embed manual.txt
var defaultManual []byte

var hostPlaceholder = []byte("{{host}}")

// manualDoc returns the manual document with the public hostname filled in.
func (s *Server) manualDoc() []byte {
	return bytes.ReplaceAll(s.manual, hostPlaceholder, []byte(s.host))
}
