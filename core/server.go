package tinylisp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// Journal persists evaluated lines. *journal.Journal satisfies it.
type Journal interface {
	Append(ctx context.Context, source, result, errMsg string) error
	Clear(ctx context.Context) error
}

// Server exposes one Session over a unix socket. A single actor goroutine
// owns the session; connections hand it requests through a channel.
type Server struct {
	session  *Session
	journal  Journal // may be nil
	requests chan serverRequest
	done     chan struct{}
	stopOnce sync.Once
	listener net.Listener
	connMu   sync.Mutex
	conns    map[net.Conn]struct{}
	traces   traceRing
	now      func() time.Time
}

type serverRequest struct {
	msg      map[string]any
	response chan map[string]any
}

// NewServer builds a server around session. Call Listen before Run.
func NewServer(session *Session, journal Journal) *Server {
	return &Server{
		session:  session,
		journal:  journal,
		requests: make(chan serverRequest, 64),
		done:     make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
		traces:   traceRing{max: 1000},
		now:      time.Now,
	}
}

// Listen binds the unix socket at sockPath, removing a stale one first.
func (s *Server) Listen(sockPath string) error {
	os.Remove(sockPath)
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", sockPath, err)
	}
	s.listener = listener
	return nil
}

// Run starts the actor goroutine and accepts connections until the
// listener is closed.
func (s *Server) Run() {
	go s.actorLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting connections, closes the open ones and ends the
// actor loop. A request already in flight gets a "server shutting down"
// error. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		close(s.done)

		s.connMu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.connMu.Unlock()
	})
}

// track registers conn so Shutdown can close it. It reports false once the
// server is stopped.
func (s *Server) track(conn net.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.stopped() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

func (s *Server) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// actorLoop is the only goroutine that touches the session.
func (s *Server) actorLoop() {
	for {
		select {
		case req := <-s.requests:
			req.response <- s.handleRequest(req.msg)
		case <-s.done:
			return
		}
	}
}

func (s *Server) sendToActor(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)
	if s.stopped() {
		return errorResponse(id, "server shutting down")
	}
	resp := make(chan map[string]any, 1)
	select {
	case s.requests <- serverRequest{msg: msg, response: resp}:
	case <-s.done:
		return errorResponse(id, "server shutting down")
	}
	select {
	case r := <-resp:
		return r
	case <-s.done:
		return errorResponse(id, "server shutting down")
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	if !s.track(conn) {
		return
	}
	defer s.untrack(conn)

	for {
		msg, err := ReadMsg(conn)
		if err != nil {
			if err != io.EOF && !s.stopped() {
				log.Printf("read client message: %v", err)
			}
			return
		}

		resp := s.sendToActor(msg)
		if err := WriteMsg(conn, resp); err != nil {
			if !s.stopped() {
				log.Printf("write client response: %v", err)
			}
			return
		}
		if s.stopped() {
			return
		}
	}
}

func (s *Server) handleRequest(msg map[string]any) map[string]any {
	id, _ := msg["id"].(string)

	op, _ := msg["op"].(string)
	switch op {
	case "":
		return s.manual(id)
	case "eval":
		return s.handleEval(id, msg)
	case "bindings":
		return s.handleBindings(id)
	case "traces":
		return s.handleTraces(id, msg)
	case "reset":
		return s.handleReset(id)
	default:
		return errorResponse(id, fmt.Sprintf("unknown op: %s", op))
	}
}

func (s *Server) manual(id string) map[string]any {
	forms := SpecialForms()
	formsAny := make([]any, len(forms))
	for i, f := range forms {
		formsAny[i] = f
	}
	return map[string]any{
		"id": id,
		"ok": true,
		"value": map[string]any{
			"name": "tinylisp",
			"ops": map[string]any{
				"eval":     "Evaluate one top-level form. Params: expr (string)",
				"bindings": "List every visible binding.",
				"traces":   "Recent evaluations. Params: n (int, optional)",
				"reset":    "Drop all bindings, traces and journal entries.",
			},
			"forms": formsAny,
		},
	}
}

func (s *Server) handleEval(id string, msg map[string]any) map[string]any {
	expr, ok := msg["expr"].(string)
	if !ok {
		return errorResponse(id, "eval: missing 'expr' string")
	}

	start := s.now()
	trace := NewTrace(expr, start)
	val, err := s.session.EvalLine(expr)
	trace.Finish(val, err, s.now().Sub(start))
	s.traces.add(trace)

	if s.journal != nil && !errors.Is(err, ErrEndOfInput) {
		result := ""
		if val != nil {
			result = val.String()
		}
		if jerr := s.journal.Append(context.Background(), expr, result, trace.Error); jerr != nil {
			log.Printf("journal append: %v", jerr)
		}
	}

	if err != nil {
		return errorResponse(id, err.Error())
	}
	return map[string]any{
		"id":    id,
		"ok":    true,
		"value": val.String(),
		"kind":  val.KindName(),
		"data":  NodeToGo(val),
	}
}

func (s *Server) handleBindings(id string) map[string]any {
	bindings := s.session.Env().Bindings()
	out := make([]any, len(bindings))
	for i, b := range bindings {
		out[i] = map[string]any{"name": b.Name, "value": b.Value.String()}
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleTraces(id string, msg map[string]any) map[string]any {
	n := -1
	if raw, exists := msg["n"]; exists {
		f, ok := raw.(float64)
		if !ok || f < 0 {
			return errorResponse(id, "traces: 'n' must be a non-negative number")
		}
		n = int(f)
	}
	traces := s.traces.last(n)
	out := make([]any, len(traces))
	for i := range traces {
		out[i] = traces[i].ToGo()
	}
	return map[string]any{"id": id, "ok": true, "value": out}
}

func (s *Server) handleReset(id string) map[string]any {
	s.session.Reset()
	s.traces.clear()
	if s.journal != nil {
		if err := s.journal.Clear(context.Background()); err != nil {
			return errorResponse(id, fmt.Sprintf("reset: %s", err))
		}
	}
	return map[string]any{"id": id, "ok": true, "value": "reset"}
}

func errorResponse(id, errMsg string) map[string]any {
	return map[string]any{"id": id, "ok": false, "error": errMsg}
}
