package server

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/catatsuy/kusari/internal/llmgr"
	"github.com/catatsuy/kusari/internal/registry"
)

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if err := s.serveSession(bufio.NewReader(conn), bufio.NewWriter(conn), ""); err != nil {
		s.logf("read error: %v", err)
	}
}

// RunSession serves the text protocol over r and w until r is exhausted or
// the client quits. A non-empty prompt is written before every command.
func (s *Server) RunSession(r io.Reader, w io.Writer, prompt string) error {
	if err := s.preload(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	err := s.serveSession(bufio.NewReader(r), bw, prompt)
	if flushErr := bw.Flush(); err == nil {
		err = flushErr
	}
	return err
}

func (s *Server) serveSession(r *bufio.Reader, w *bufio.Writer, prompt string) error {
	for {
		if prompt != "" {
			if _, err := w.WriteString(prompt); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		line, err := readCommandLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		req, err := parseLine(line)
		if err != nil {
			_ = writeClientError(w, "bad command line format")
			if flushErr := w.Flush(); flushErr != nil {
				return nil
			}
			continue
		}
		if req.isQuit {
			return nil
		}

		switch req.cmd {
		case "register":
			err = s.handleRegister(w, req.args)
		case "deregister":
			err = s.handleDeregister(w, req.args)
		case "set":
			err = s.handleSet(r, w, req.args)
		case "add":
			err = s.handleAdd(r, w, req.args)
		case "get":
			err = s.handleGetLike(w, req.args, false)
		case "gets":
			err = s.handleGetLike(w, req.args, true)
		case "delete":
			err = s.handleDelete(w, req.args)
		case "delete_all":
			err = s.handleDeleteAll(w, req.args)
		case "point":
			err = s.handlePoint(w, req.args)
		case "token":
			err = s.handleToken(w, req.args)
		case "seek":
			err = s.handleSeek(w, req.args)
		case "count":
			err = s.handleCount(w, req.args)
		case "status":
			err = s.handleStatus(w, req.args)
		case "dump":
			err = s.handleDump(w, req.args)
		case "lists":
			err = s.handleLists(w)
		default:
			err = writeClientError(w, "unknown command")
		}
		if err != nil {
			return nil
		}
		if err := w.Flush(); err != nil {
			return nil
		}
	}
}

func (s *Server) handleRegister(w *bufio.Writer, args []string) error {
	list, size, err := parseRegisterArgs(args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	if err := s.lists.Register(list, size); err != nil {
		return s.writeListError(w, err)
	}
	s.logf("registered list %s size=%d", list, size)
	_, err = w.WriteString("REGISTERED\r\n")
	return err
}

func (s *Server) handleDeregister(w *bufio.Writer, args []string) error {
	list, err := parseListArg("deregister", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	if err := s.lists.Deregister(list); err != nil {
		return s.writeListError(w, err)
	}
	s.logf("deregistered list %s", list)
	_, err = w.WriteString("DEREGISTERED\r\n")
	return err
}

func (s *Server) handleSet(r *bufio.Reader, w *bufio.Writer, args []string) error {
	list, bytesN, err := parseSetArgs(args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	value, err := readDataChunk(r, bytesN)
	if err != nil {
		return writeClientError(w, err.Error())
	}

	if _, err := s.lists.Append(list, value); err != nil {
		return s.writeListError(w, err)
	}
	_, err = w.WriteString("STORED\r\n")
	return err
}

func (s *Server) handleAdd(r *bufio.Reader, w *bufio.Writer, args []string) error {
	list, pos, bytesN, err := parseAddArgs(args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	value, err := readDataChunk(r, bytesN)
	if err != nil {
		return writeClientError(w, err.Error())
	}

	elem, err := s.lists.Insert(list, pos, value)
	if err != nil {
		return s.writeListError(w, err)
	}
	_, err = fmt.Fprintf(w, "STORED %s\r\n", elem.Token)
	return err
}

func (s *Server) handleGetLike(w *bufio.Writer, args []string, withCAS bool) error {
	if len(args) == 0 {
		return writeClientError(w, "get requires at least one list")
	}

	for _, list := range args {
		elem, ok, err := s.lists.Current(list)
		if err != nil || !ok {
			continue
		}
		if withCAS {
			if _, err := fmt.Fprintf(w, "VALUE %s 0 %d %d\r\n", list, len(elem.Payload), elem.Nonce); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "VALUE %s 0 %d\r\n", list, len(elem.Payload)); err != nil {
				return err
			}
		}
		if _, err := w.Write(elem.Payload); err != nil {
			return err
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	_, err := w.WriteString("END\r\n")
	return err
}

func (s *Server) handleDelete(w *bufio.Writer, args []string) error {
	list, err := parseListArg("delete", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	err = s.lists.Delete(list)
	switch {
	case err == nil:
		_, err = w.WriteString("DELETED\r\n")
		return err
	case errors.Is(err, llmgr.ErrEmpty), errors.Is(err, registry.ErrUnknownList):
		_, err = w.WriteString("NOT_FOUND\r\n")
		return err
	}
	return s.writeListError(w, err)
}

func (s *Server) handleDeleteAll(w *bufio.Writer, args []string) error {
	list, err := parseListArg("delete_all", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	if err := s.lists.DeleteAll(list); err != nil {
		return s.writeListError(w, err)
	}
	_, err = w.WriteString("OK\r\n")
	return err
}

func (s *Server) handlePoint(w *bufio.Writer, args []string) error {
	list, mv, err := parsePointArgs(args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	err = s.lists.Point(list, mv)
	switch {
	case err == nil:
		_, err = w.WriteString("OK\r\n")
		return err
	case errors.Is(err, llmgr.ErrListEnd):
		_, err = w.WriteString("END\r\n")
		return err
	case errors.Is(err, llmgr.ErrEmpty):
		_, err = w.WriteString("NOT_FOUND\r\n")
		return err
	}
	return s.writeListError(w, err)
}

func (s *Server) handleToken(w *bufio.Writer, args []string) error {
	list, err := parseListArg("token", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	tok, err := s.lists.Token(list)
	switch {
	case err == nil:
		_, err = fmt.Fprintf(w, "TOKEN %s\r\n", tok)
		return err
	case errors.Is(err, llmgr.ErrEmpty):
		_, err = w.WriteString("NOT_FOUND\r\n")
		return err
	}
	return s.writeListError(w, err)
}

func (s *Server) handleSeek(w *bufio.Writer, args []string) error {
	list, tok, err := parseSeekArgs(args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	err = s.lists.Seek(list, tok)
	switch {
	case err == nil:
		_, err = w.WriteString("OK\r\n")
		return err
	case errors.Is(err, llmgr.ErrInvalidAddress):
		_, err = w.WriteString("NOT_FOUND\r\n")
		return err
	}
	return s.writeListError(w, err)
}

func (s *Server) handleCount(w *bufio.Writer, args []string) error {
	list, err := parseListArg("count", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	n, err := s.lists.Len(list)
	if err != nil {
		return s.writeListError(w, err)
	}
	_, err = fmt.Fprintf(w, "%d\r\n", n)
	return err
}

func (s *Server) handleStatus(w *bufio.Writer, args []string) error {
	list, err := parseListArg("status", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	st, err := s.lists.Status(list)
	if err != nil {
		return s.writeListError(w, err)
	}

	stats := []struct {
		key   string
		value any
	}{
		{"ok", st.OK},
		{"command", st.CommandName},
		{"file", st.File},
		{"line", st.Line},
		{"list", st.List},
		{"code", st.CodeName},
		{"message", st.Message},
	}
	for _, stat := range stats {
		if _, err := fmt.Fprintf(w, "STAT %s %v\r\n", stat.key, stat.value); err != nil {
			return err
		}
	}
	_, err = w.WriteString("END\r\n")
	return err
}

func (s *Server) handleDump(w *bufio.Writer, args []string) error {
	list, err := parseListArg("dump", args)
	if err != nil {
		return writeClientError(w, err.Error())
	}
	elems, err := s.lists.Dump(list)
	if err != nil {
		return s.writeListError(w, err)
	}
	for _, elem := range elems {
		if _, err := fmt.Fprintf(w, "ELEMENT %s %d\r\n", elem.Token, len(elem.Payload)); err != nil {
			return err
		}
		if _, err := w.Write(elem.Payload); err != nil {
			return err
		}
		if _, err := w.WriteString("\r\n"); err != nil {
			return err
		}
	}
	_, err = w.WriteString("END\r\n")
	return err
}

func (s *Server) handleLists(w *bufio.Writer) error {
	for _, info := range s.lists.Lists() {
		if _, err := fmt.Fprintf(w, "LIST %s %d %d\r\n", info.Name, info.ElementSize, info.Count); err != nil {
			return err
		}
	}
	_, err := w.WriteString("END\r\n")
	return err
}

// writeListError answers caller mistakes with CLIENT_ERROR and fatal list
// conditions with SERVER_ERROR.
func (s *Server) writeListError(w *bufio.Writer, err error) error {
	var se *llmgr.StatusError
	switch {
	case llmgr.IsFatal(err):
		if errors.As(err, &se) {
			s.logger.Error("list storage exhausted",
				"list", se.Status.List,
				"command", se.Status.CommandName,
				"file", se.Status.File,
				"line", se.Status.Line,
			)
			return writeServerError(w, se.Status.Message)
		}
		return writeServerError(w, err.Error())
	case errors.As(err, &se):
		return writeClientError(w, se.Status.Message)
	case errors.Is(err, registry.ErrUnknownList):
		return writeClientError(w, registry.ErrUnknownList.Error())
	case errors.Is(err, registry.ErrPayloadTooLarge):
		return writeClientError(w, registry.ErrPayloadTooLarge.Error())
	}
	s.logf("unexpected list error: %v", err)
	return writeServerError(w, "internal error")
}

func writeClientError(w *bufio.Writer, msg string) error {
	_, err := fmt.Fprintf(w, "CLIENT_ERROR %s\r\n", msg)
	return err
}

func writeServerError(w *bufio.Writer, msg string) error {
	_, err := fmt.Fprintf(w, "SERVER_ERROR %s\r\n", msg)
	return err
}

// readDataChunk reads a data block of n bytes and its terminator. Blocks
// larger than any element are drained so the stream stays in sync.
func readDataChunk(r *bufio.Reader, n int) ([]byte, error) {
	if n > llmgr.MaxElementSize {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, fmt.Errorf("bad data chunk")
		}
		if err := consumeChunkTerminator(r); err != nil {
			return nil, fmt.Errorf("bad data chunk")
		}
		return nil, registry.ErrPayloadTooLarge
	}

	value := make([]byte, n)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, fmt.Errorf("bad data chunk")
	}
	if err := consumeChunkTerminator(r); err != nil {
		return nil, fmt.Errorf("bad data chunk")
	}
	return value, nil
}

// readCommandLine accepts CRLF, LF, CR and CR NUL (common telnet newline).
func readCommandLine(r *bufio.Reader) (string, error) {
	var buf bytes.Buffer

	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && buf.Len() > 0 {
				return buf.String(), nil
			}
			return "", err
		}

		switch b {
		case '\n':
			return buf.String(), nil
		case '\r':
			next, err := r.ReadByte()
			if err == nil {
				if next != '\n' && next != 0x00 {
					if unreadErr := r.UnreadByte(); unreadErr != nil {
						return "", unreadErr
					}
				}
			} else if !errors.Is(err, io.EOF) {
				return "", err
			}
			return buf.String(), nil
		default:
			buf.WriteByte(b)
		}
	}
}

// consumeChunkTerminator accepts CRLF, LF, CR and CR NUL after a data block.
func consumeChunkTerminator(r *bufio.Reader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		return nil
	case '\r':
		next, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if next == '\n' || next == 0x00 {
			return nil
		}
		return fmt.Errorf("invalid chunk terminator")
	default:
		return fmt.Errorf("invalid chunk terminator")
	}
}
