package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"fetch-mcp/internal/mcp"
)

type stubPipeline struct {
	markdown string
}

func (s *stubPipeline) FetchMarkdown(_ context.Context, _ string) (string, error) {
	return s.markdown, nil
}

// slowPipeline fetches after a delay and reports cancellation of its
// context, so tests can tell a completed fetch from an aborted one.
type slowPipeline struct {
	markdown string
	delay    time.Duration
}

func (s *slowPipeline) FetchMarkdown(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.markdown, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	registry, err := mcp.NewRegistry(mcp.FetchURLTool(&stubPipeline{markdown: "# Hello\n"}))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	adapter := mcp.NewAdapter(mcp.ServerInfo{Name: "test-server", Version: "0.1.0"}, registry, nil)
	return New(adapter, nil)
}

func serve(t *testing.T, input string) []string {
	t.Helper()
	var out bytes.Buffer
	s := newTestSession(t)
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	var lines []string
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestServeHandshake(t *testing.T) {
	t.Parallel()

	lines := serve(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`+"\n")
	if len(lines) != 1 {
		t.Fatalf("expected one response, got %d", len(lines))
	}
	var resp struct {
		Result struct {
			ServerInfo mcp.ServerInfo `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.ServerInfo.Name != "test-server" || resp.Result.ServerInfo.Version != "0.1.0" {
		t.Fatalf("unexpected server info: %+v", resp.Result.ServerInfo)
	}
}

func TestServeSequentialOrdering(t *testing.T) {
	t.Parallel()

	input := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fetch_url","arguments":{"url":"https://example.com"}}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	lines := serve(t, input)
	if len(lines) != 2 {
		t.Fatalf("expected two responses, got %d", len(lines))
	}
	for i, want := range []string{"1", "2"} {
		var resp struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal([]byte(lines[i]), &resp); err != nil {
			t.Fatalf("decode response %d: %v", i, err)
		}
		if string(resp.ID) != want {
			t.Fatalf("response %d out of order: id %s, want %s", i, resp.ID, want)
		}
	}
}

func TestServeContinuesAfterParseError(t *testing.T) {
	t.Parallel()

	input := "this is not json\n" + `{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n"
	lines := serve(t, input)
	if len(lines) != 2 {
		t.Fatalf("expected two responses, got %d", len(lines))
	}
	var errResp struct {
		Error *mcp.RPCError `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != -32700 {
		t.Fatalf("expected parse error, got %+v", errResp.Error)
	}
	var pong struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &pong); err != nil {
		t.Fatalf("decode ping response: %v", err)
	}
	if string(pong.ID) != "7" {
		t.Fatalf("expected ping response for id 7, got %s", pong.ID)
	}
}

func TestServeIgnoresNotifications(t *testing.T) {
	t.Parallel()

	lines := serve(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	if len(lines) != 0 {
		t.Fatalf("expected no responses, got %d", len(lines))
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := newTestSession(t)
	// A blocking reader would hang forever if cancellation were ignored.
	r, w := newBlockingPipe()
	defer w.Close()

	if err := s.Serve(ctx, r, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestServeCompletesInFlightOnCancel(t *testing.T) {
	t.Parallel()

	registry, err := mcp.NewRegistry(mcp.FetchURLTool(&slowPipeline{
		markdown: "# Done\n",
		delay:    150 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	adapter := mcp.NewAdapter(mcp.ServerInfo{Name: "test-server", Version: "0.1.0"}, registry, nil)
	s := New(adapter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	defer pw.Close()

	// Cancel while the tool call is still fetching: the session must stop
	// reading but let the in-flight call run to completion.
	go func() {
		_, _ = pw.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fetch_url","arguments":{"url":"https://example.com"}}}` + "\n"))
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	var out bytes.Buffer
	if err := s.Serve(ctx, pr, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "# Done") {
		t.Fatalf("in-flight call did not complete: %q", got)
	}
	if strings.Contains(got, "context canceled") {
		t.Fatalf("in-flight call was aborted by shutdown: %q", got)
	}
}

// newBlockingPipe returns a reader that blocks until the writer is closed.
func newBlockingPipe() (*blockingReader, *blockingWriter) {
	ch := make(chan struct{})
	return &blockingReader{done: ch}, &blockingWriter{done: ch}
}

type blockingReader struct{ done chan struct{} }

func (r *blockingReader) Read(_ []byte) (int, error) {
	<-r.done
	return 0, io.EOF
}

type blockingWriter struct{ done chan struct{} }

func (w *blockingWriter) Close() error {
	close(w.done)
	return nil
}
