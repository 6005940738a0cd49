package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	tinylisp "github.com/komamitsu/tinylisp/core"
)

func startServer(t *testing.T, sock string) *tinylisp.Server {
	t.Helper()
	srv := tinylisp.NewServer(tinylisp.NewSession(tinylisp.DefaultConfig()), nil)
	if err := srv.Listen(sock); err != nil {
		t.Fatal(err)
	}
	go srv.Run()
	t.Cleanup(srv.Shutdown)
	return srv
}

func newTestGatewayAt(t *testing.T, sock string) *gateway {
	t.Helper()
	client, err := tinylisp.Dial(sock)
	if err != nil {
		t.Fatal(err)
	}
	g := newGateway(sock, client)
	t.Cleanup(g.close)
	return g
}

func newTestGateway(t *testing.T) http.Handler {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "tl.sock")
	startServer(t, sock)
	return newTestGatewayAt(t, sock).routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-Id") == "" && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("%s %s: missing request id", method, path)
	}
	var resp map[string]any
	if rec.Code != http.StatusMethodNotAllowed {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: bad JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, resp
}

func TestGatewayEval(t *testing.T) {
	h := newTestGateway(t)

	code, resp := do(t, h, "POST", "/eval", "(setq sq (lambda (n) (* n n)))")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, resp)
	}
	code, resp = do(t, h, "POST", "/eval", "(sq 9)")
	if code != http.StatusOK || resp["value"] != "81" {
		t.Fatalf("unexpected response %d: %v", code, resp)
	}
}

func TestGatewayEvalError(t *testing.T) {
	h := newTestGateway(t)
	code, resp := do(t, h, "POST", "/eval", "(car 1)")
	if code != http.StatusUnprocessableEntity || resp["ok"] != false {
		t.Fatalf("expected 422, got %d: %v", code, resp)
	}
}

func TestGatewayBindingsAndReset(t *testing.T) {
	h := newTestGateway(t)
	do(t, h, "POST", "/eval", "(setq x 1)")

	_, resp := do(t, h, "GET", "/bindings", "")
	if list, _ := resp["value"].([]any); len(list) != 1 {
		t.Fatalf("expected one binding, got %v", resp)
	}

	if code, _ := do(t, h, "POST", "/reset", ""); code != http.StatusOK {
		t.Fatalf("reset failed: %d", code)
	}
	_, resp = do(t, h, "GET", "/bindings", "")
	if list, _ := resp["value"].([]any); len(list) != 0 {
		t.Fatalf("expected no bindings after reset, got %v", resp)
	}
}

func TestGatewayTraces(t *testing.T) {
	h := newTestGateway(t)
	do(t, h, "POST", "/eval", "1")
	do(t, h, "POST", "/eval", "2")

	_, resp := do(t, h, "GET", "/traces?n=1", "")
	list, _ := resp["value"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["entry"] != "2" {
		t.Fatalf("unexpected traces: %v", resp)
	}

	for _, bad := range []string{"abc", "1e3", "-1"} {
		req := httptest.NewRequest("GET", "/traces?n="+bad, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("n=%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestGatewayRedialsAfterServerRestart(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "tl.sock")
	first := startServer(t, sock)
	h := newTestGatewayAt(t, sock).routes()

	if code, resp := do(t, h, "POST", "/eval", "(+ 1 2)"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", code, resp)
	}

	first.Shutdown()
	startServer(t, sock)

	code, resp := do(t, h, "POST", "/eval", "(* 6 7)")
	if code != http.StatusOK || resp["value"] != "42" {
		t.Fatalf("expected 42 from restarted server, got %d: %v", code, resp)
	}
}

func TestGatewayServerDown(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "tl.sock")
	srv := startServer(t, sock)
	h := newTestGatewayAt(t, sock).routes()
	srv.Shutdown()

	req := httptest.NewRequest("POST", "/eval", strings.NewReader("1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestGatewayMethodNotAllowed(t *testing.T) {
	h := newTestGateway(t)
	code, _ := do(t, h, "GET", "/eval", "")
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", code)
	}
}
