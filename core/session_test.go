package tinylisp

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestSessionPersistsBindings(t *testing.T) {
	s := NewSession(DefaultConfig())
	val := evalLines(t, s, "(setq x 40)", "(setq y 2)", "(+ x y)")
	if !Equal(val, IntNode(42)) {
		t.Fatalf("expected 42, got %s", val)
	}
}

func TestSessionBlankLine(t *testing.T) {
	s := NewSession(DefaultConfig())
	if _, err := s.EvalLine("   "); !errors.Is(err, ErrEndOfInput) {
		t.Fatalf("expected end of input, got %v", err)
	}
}

func TestSessionErrorKeepsEnv(t *testing.T) {
	s := NewSession(DefaultConfig())
	evalLines(t, s, "(setq x 1)")
	if _, err := s.EvalLine("(+ x (car 2))"); err == nil {
		t.Fatal("expected error")
	}
	if val := evalLines(t, s, "x"); !Equal(val, IntNode(1)) {
		t.Fatalf("expected x=1, got %s", val)
	}
}

func TestSessionEvalSource(t *testing.T) {
	s := NewSession(DefaultConfig())
	val, err := s.EvalSource(`
(setq sq (lambda (n) (* n n)))
(setq x 9)
(sq x)
`)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(val, IntNode(81)) {
		t.Fatalf("expected 81, got %s", val)
	}

	_, err = s.EvalSource("(setq y 1) (car 5) (setq z 2)")
	if !errors.Is(err, ErrType) {
		t.Fatalf("expected type error, got %v", err)
	}
	if !strings.Contains(err.Error(), "form 2") {
		t.Fatalf("error should name the failing form: %v", err)
	}
	if _, ok := s.Env().Lookup("z"); ok {
		t.Fatal("forms after the failure should not run")
	}

	if _, err := s.EvalSource(""); !errors.Is(err, ErrEndOfInput) {
		t.Fatalf("expected end of input, got %v", err)
	}
}

func TestSessionReplay(t *testing.T) {
	s := NewSession(DefaultConfig())
	failed := s.Replay([]string{
		"(setq fib (lambda (n) (if (<= n 1) 1 (+ (fib (- n 1)) (fib (- n 2))))))",
		"",
		"(setq n 10)",
	})
	if failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}
	if val := evalLines(t, s, "(fib n)"); !Equal(val, IntNode(89)) {
		t.Fatalf("expected 89, got %s", val)
	}
}

func TestSessionReplayKeepsPartialSetq(t *testing.T) {
	lines := []string{"(setq a 1 b (car 5))", "(setq c (+ a 1))", "(nosuch)"}

	live := NewSession(DefaultConfig())
	if _, err := live.EvalLine(lines[0]); !errors.Is(err, ErrType) {
		t.Fatalf("expected type error, got %v", err)
	}
	evalLines(t, live, lines[1])

	s := NewSession(DefaultConfig())
	if failed := s.Replay(lines); failed != 2 {
		t.Fatalf("expected 2 failed lines, got %d", failed)
	}
	if val := evalLines(t, s, "c"); !Equal(val, IntNode(2)) {
		t.Fatalf("expected c=2 after replay, got %s", val)
	}
	if _, ok := s.Env().Lookup("b"); ok {
		t.Fatal("b should stay unbound")
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession(DefaultConfig())
	evalLines(t, s, "(setq x 1)")
	s.Reset()
	if val := evalLines(t, s, "x"); !Equal(val, SymbolNode("x")) {
		t.Fatalf("x should be unbound after reset, got %s", val)
	}
}

func TestSessionCallLogging(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(Config{Logger: log.New(&buf, "", 0)})
	evalLines(t, s, "(setq add (lambda (a b) (+ a b)))", "(add 1 2)")
	out := buf.String()
	if !strings.Contains(out, "call add (a=1 b=2)") {
		t.Fatalf("expected call to be logged, got %q", out)
	}
}
