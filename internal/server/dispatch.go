package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"nanopaste/internal/id"
	"nanopaste/internal/proto"
	"nanopaste/internal/storage"
)

var (
	postPrefix     = []byte("POST /")
	headerBodySep  = []byte("\r\n\r\n")
	getRequestLine = regexp.MustCompile(`^GET /([A-Za-z0-9]*) HTTP`)
)

// dispatch interprets a complete request and produces the response body.
// Every branch returns a line of text; nothing here can take the server
// down with it.
func (s *Server) dispatch(ctx context.Context, client string, req []byte) []byte {
	if bytes.HasPrefix(req, postPrefix) {
		return s.handlePost(ctx, client, req)
	}
	if m := getRequestLine.FindSubmatch(req); m != nil {
		token := string(m[1])
		if token == "" {
			return s.manualDoc()
		}
		return s.handleGet(ctx, token)
	}
	return proto.ErrorBody(proto.ReasonNotUnderstood)
}

func (s *Server) handlePost(ctx context.Context, client string, req []byte) []byte {
	sep := bytes.Index(req, headerBodySep)
	if sep < 0 {
		// The framer only completes a POST after seeing the separator.
		return proto.ErrorBody(proto.ReasonNotUnderstood)
	}
	content := req[sep+len(headerBodySep):]
	if len(content) == 0 {
		return proto.ErrorBody("empty paste")
	}

	if wait := s.limiter.Check(client); wait > 0 {
		s.logger.Info("submission rate limited", "client", client, "wait_seconds", wait)
		return proto.ErrorBody(fmt.Sprintf("you must wait %d more seconds before pasting again", wait))
	}

	// Existence check and write must not interleave with another
	// connection's allocation of the same ID.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pasteID, err := s.idGen.Generate(ctx)
	if err != nil {
		if errors.Is(err, id.ErrExhausted) {
			s.logger.Error("paste ID space exhausted")
			return proto.ErrorBody("no ID available")
		}
		s.logger.Error("generate paste ID", "error", err)
		return proto.ErrorBody("could not save paste")
	}
	if err := s.store.Put(ctx, pasteID, content); err != nil {
		s.logger.Error("save paste", "id", pasteID, "error", err)
		return proto.ErrorBody("could not save paste")
	}

	s.statsMu.Lock()
	s.created++
	s.statsMu.Unlock()
	s.logger.Info("paste created", "id", pasteID, "size", len(content), "client", client)

	return []byte(s.PublicURL(pasteID) + "\n")
}

func (s *Server) handleGet(ctx context.Context, token string) []byte {
	content, err := s.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []byte("No such paste.\n")
		}
		s.logger.Error("read paste", "id", token, "error", err)
		return proto.ErrorBody("could not read paste")
	}

	s.statsMu.Lock()
	s.served++
	s.statsMu.Unlock()

	return content
}
