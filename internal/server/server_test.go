package server

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/internal/cache"
	"github.com/personamatch/engine/internal/logging"
	"github.com/personamatch/engine/pkg/types"
)

// newTestServer starts a server with the built-in handlers and returns the
// write end of its stdin, a reader over its stdout and the Run result channel.
func newTestServer(t *testing.T, deps ...Deps) (io.Writer, *bufio.Reader, <-chan error) {
	t.Helper()

	var d Deps
	if len(deps) > 0 {
		d = deps[0]
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	s := New(inR, outW, logging.Discard())
	if err := RegisterBuiltinHandlers(s, d); err != nil {
		t.Fatalf("RegisterBuiltinHandlers: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
		_ = outW.Close()
	}()

	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = inR.Close()
		_ = outR.Close()
	})

	return inW, bufio.NewReader(outR), done
}

// newTestStores opens profile and history stores on a temporary database.
func newTestStores(t *testing.T) Deps {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	profiles, err := cache.NewProfileStore(db)
	if err != nil {
		t.Fatalf("NewProfileStore: %v", err)
	}
	history, err := cache.NewHistoryStore(db)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	return Deps{Profiles: profiles, History: history, ReportCacheSize: 16}
}

func sendRequest(t *testing.T, w io.Writer, id int64, method string, params any) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	sendRaw(t, w, mustMarshal(t, types.Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}))
}

func sendRaw(t *testing.T, w io.Writer, line []byte) {
	t.Helper()
	if _, err := w.Write(append(line, '\n')); err != nil {
		t.Fatalf("write request: %v", err)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func readResponse(t *testing.T, r *bufio.Reader) *types.Response {
	t.Helper()

	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadBytes('\n')
		ch <- result{line, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("read response: %v", res.err)
		}
		var resp types.Response
		if err := json.Unmarshal(res.line, &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", res.line, err)
		}
		return &resp
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func initializeParams() types.InitializeParams {
	return types.InitializeParams{
		SDKName:         "match-sdk-test",
		SDKVersion:      "0.0.1",
		ProtocolVersion: 1,
	}
}

func TestServer_ParseError(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	sendRaw(t, stdin, []byte(`{not json`))
	resp := readResponse(t, stdout)

	if resp.Error == nil || resp.Error.Code != types.ErrParseError {
		t.Fatalf("Error = %+v, want parse error", resp.Error)
	}
	if resp.Error.Data.ErrorType != types.ErrTypeParseError {
		t.Errorf("ErrorType = %q", resp.Error.Data.ErrorType)
	}
}

func TestServer_InvalidRequest(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	sendRaw(t, stdin, []byte(`{"jsonrpc":"1.0","id":4,"method":"initialize"}`))
	resp := readResponse(t, stdout)

	if resp.Error == nil || resp.Error.Code != -32600 {
		t.Fatalf("Error = %+v, want invalid request", resp.Error)
	}
	if resp.ID != 4 {
		t.Errorf("ID = %d, want 4", resp.ID)
	}
}

func TestServer_MethodNotFound(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	sendRequest(t, stdin, 9, "evaluate_everything", map[string]any{})
	resp := readResponse(t, stdout)

	if resp.Error == nil || resp.Error.Code != types.ErrMethodNotFound {
		t.Fatalf("Error = %+v, want method not found", resp.Error)
	}
}

func TestServer_Initialize(t *testing.T) {
	stdin, stdout, _ := newTestServer(t, newTestStores(t))

	sendRequest(t, stdin, 1, "initialize", initializeParams())
	resp := readResponse(t, stdout)
	if resp.Error != nil {
		t.Fatalf("initialize: %+v", resp.Error)
	}

	var result types.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.EngineVersion != EngineVersion || result.ProtocolVersion != 1 {
		t.Errorf("result = %+v", result)
	}
	if !result.Compatible || len(result.Missing) != 0 {
		t.Errorf("Compatible = %v, Missing = %v", result.Compatible, result.Missing)
	}
	want := map[string]bool{"matching": true, "compatibility": true, "profiles": true, "history": true}
	for _, c := range result.Capabilities {
		delete(want, c)
	}
	if len(want) != 0 {
		t.Errorf("capabilities %v missing %v", result.Capabilities, want)
	}

	sendRequest(t, stdin, 2, "initialize", initializeParams())
	resp = readResponse(t, stdout)
	if resp.Error == nil || resp.Error.Code != types.ErrSessionError {
		t.Errorf("second initialize: Error = %+v, want session error", resp.Error)
	}
}

func TestServer_InitializeMissingCapability(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	p := initializeParams()
	p.RequiredCapabilities = []string{"matching", "advice"}
	sendRequest(t, stdin, 1, "initialize", p)
	resp := readResponse(t, stdout)
	if resp.Error != nil {
		t.Fatalf("initialize: %+v", resp.Error)
	}

	var result types.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Compatible {
		t.Error("Compatible = true without an advisor")
	}
	if len(result.Missing) != 1 || result.Missing[0] != "advice" {
		t.Errorf("Missing = %v, want [advice]", result.Missing)
	}
}

func TestServer_InitializeRejectsProtocolAndLocale(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	p := initializeParams()
	p.ProtocolVersion = 2
	sendRequest(t, stdin, 1, "initialize", p)
	if resp := readResponse(t, stdout); resp.Error == nil || resp.Error.Code != types.ErrSessionError {
		t.Fatalf("protocol 2: Error = %+v", resp.Error)
	}

	p = initializeParams()
	p.Locale = "fr"
	sendRequest(t, stdin, 2, "initialize", p)
	if resp := readResponse(t, stdout); resp.Error == nil || resp.Error.Code != types.ErrSessionError {
		t.Fatalf("locale fr: Error = %+v", resp.Error)
	}
}

func TestServer_ShutdownStopsLoop(t *testing.T) {
	stdin, stdout, done := newTestServer(t)

	sendRequest(t, stdin, 1, "initialize", initializeParams())
	readResponse(t, stdout)

	sendRequest(t, stdin, 2, "shutdown", nil)
	resp := readResponse(t, stdout)
	if resp.Error != nil {
		t.Fatalf("shutdown: %+v", resp.Error)
	}

	var result types.ShutdownResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.SessionsCompleted != 1 {
		t.Errorf("SessionsCompleted = %d, want 1", result.SessionsCompleted)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func TestServer_ShutdownBeforeInitialize(t *testing.T) {
	stdin, stdout, _ := newTestServer(t)

	sendRequest(t, stdin, 1, "shutdown", nil)
	resp := readResponse(t, stdout)
	if resp.Error == nil || resp.Error.Code != types.ErrSessionError {
		t.Fatalf("Error = %+v, want session error", resp.Error)
	}
}

func TestServer_ConcurrentDispatch(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	s := NewWithConcurrency(inR, outW, logging.Discard(), 4)
	if err := RegisterBuiltinHandlers(s, Deps{}); err != nil {
		t.Fatalf("RegisterBuiltinHandlers: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = outR.Close()
	})
	go func() {
		_ = s.Run(ctx)
		_ = outW.Close()
	}()
	stdout := bufio.NewReader(outR)

	sendRequest(t, inW, 1, "initialize", initializeParams())
	readResponse(t, stdout)

	const n = 8
	params := mustMarshal(t, map[string]any{
		"user_a": records(50, 60, 70, 80, 40, 60),
		"user_b": records(55, 65, 60, 85, 45, 70),
	})
	lines := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		req := types.Request{JSONRPC: "2.0", ID: int64(100 + i), Method: "matching_score", Params: params}
		lines = append(lines, append(mustMarshal(t, req), '\n'))
	}
	go func() {
		for _, line := range lines {
			if _, err := inW.Write(line); err != nil {
				return
			}
		}
	}()

	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		resp := readResponse(t, stdout)
		if resp.Error != nil {
			t.Fatalf("response %d: %+v", resp.ID, resp.Error)
		}
		seen[resp.ID] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct responses, want %d", len(seen), n)
	}
}
