package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	tinylisp "github.com/komamitsu/tinylisp/core"
)

const maxBodySize = 1 << 20

// gateway forwards HTTP requests to a tinylisp server. It redials the
// socket when a call fails, so it survives a server restart.
type gateway struct {
	sockPath string

	mu     sync.Mutex
	client *tinylisp.Client // nil until dialed
}

func newGateway(sockPath string, client *tinylisp.Client) *gateway {
	return &gateway{sockPath: sockPath, client: client}
}

// call sends req, redialing once if the current connection is broken.
func (g *gateway) call(req map[string]any) (map[string]any, error) {
	g.mu.Lock()
	c := g.client
	g.mu.Unlock()

	if c != nil {
		resp, err := c.Call(req)
		if err == nil {
			return resp, nil
		}
		log.Printf("tinylisp server call failed, redialing: %v", err)
	}
	c, err := g.redial(c)
	if err != nil {
		return nil, err
	}
	return c.Call(req)
}

// redial replaces stale with a fresh connection, unless another request
// already did.
func (g *gateway) redial(stale *tinylisp.Client) (*tinylisp.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.client != stale {
		return g.client, nil
	}
	if stale != nil {
		stale.Close()
	}
	g.client = nil
	c, err := tinylisp.Dial(g.sockPath)
	if err != nil {
		return nil, err
	}
	g.client = c
	return c, nil
}

func (g *gateway) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		g.client.Close()
		g.client = nil
	}
}

func (g *gateway) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /eval", g.handleEval)
	mux.HandleFunc("GET /bindings", g.handleBindings)
	mux.HandleFunc("GET /traces", g.handleTraces)
	mux.HandleFunc("POST /reset", g.handleReset)
	return mux
}

func (g *gateway) handleEval(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	g.forward(w, map[string]any{"op": "eval", "expr": string(body)})
}

func (g *gateway) handleBindings(w http.ResponseWriter, r *http.Request) {
	g.forward(w, map[string]any{"op": "bindings"})
}

func (g *gateway) handleTraces(w http.ResponseWriter, r *http.Request) {
	req := map[string]any{"op": "traces"}
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		req["n"] = n
	}
	g.forward(w, req)
}

func (g *gateway) handleReset(w http.ResponseWriter, r *http.Request) {
	g.forward(w, map[string]any{"op": "reset"})
}

// forward sends req to the server and writes its response as JSON.
// Evaluation errors are 422; an unreachable server is 502.
func (g *gateway) forward(w http.ResponseWriter, req map[string]any) {
	reqID := uuid.NewString()
	req["id"] = reqID
	w.Header().Set("X-Request-Id", reqID)

	resp, err := g.call(req)
	if err != nil {
		log.Printf("request %s: %v", reqID, err)
		http.Error(w, "failed to reach tinylisp server", http.StatusBadGateway)
		return
	}

	status := http.StatusOK
	if ok, _ := resp["ok"].(bool); !ok {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("request %s: write response: %v", reqID, err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	sockPath := envOr("TINYLISP_SOCK", "/tmp/tinylisp.sock")
	addr := envOr("TINYLISP_HTTP_ADDR", ":8080")

	client, err := tinylisp.Dial(sockPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("connected to tinylisp server: %s", sockPath)
	g := newGateway(sockPath, client)
	defer g.close()

	srv := &http.Server{
		Addr:    addr,
		Handler: g.routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
}
