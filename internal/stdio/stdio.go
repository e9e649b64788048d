// Package stdio binds the protocol adapter to a record-framed duplex
// channel, one newline-delimited JSON record per request or response.
// The process's stdin/stdout is the usual channel, but any reader/writer
// pair works, which keeps the binding testable.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"fetch-mcp/internal/mcp"
)

const maxRecordBytes = 10 * 1024 * 1024

// Session runs one protocol session for the lifetime of the channel.
type Session struct {
	adapter *mcp.Adapter
	logger  *slog.Logger
}

// New constructs a stdio session host for the given adapter.
func New(adapter *mcp.Adapter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{adapter: adapter, logger: logger}
}

// Serve reads requests from r and writes responses to w until the peer
// closes the channel or ctx is cancelled. The session is half-duplex: each
// response is fully written before the next request is dispatched, so
// request/response pairs never interleave. A malformed record produces a
// parse-error response and the session continues; only a transport-level
// read failure ends it.
func (s *Session) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	writer := bufio.NewWriter(w)

	// Cancellation gates the next read only: an in-flight dispatch runs on
	// a detached context so its fetch completes under its own timeout.
	dispatchCtx := context.WithoutCancel(ctx)

	records := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(records)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			record := make([]byte, len(line))
			copy(record, line)
			select {
			case records <- record:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.logger.Info("stdio session started",
		"server", s.adapter.Info().Name, "version", s.adapter.Info().Version)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stdio session interrupted")
			return nil
		case record, ok := <-records:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						s.logger.Error("stdio read failed", "error", err)
						return err
					}
				default:
				}
				s.logger.Info("stdio session closed by peer")
				return nil
			}
			resp := s.adapter.Dispatch(dispatchCtx, record)
			if resp == nil {
				continue
			}
			if err := writeRecord(writer, resp); err != nil {
				s.logger.Error("stdio write failed", "error", err)
				return err
			}
		}
	}
}

func writeRecord(w *bufio.Writer, resp *mcp.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	return w.Flush()
}
