package tinylisp

import (
	"errors"
	"fmt"
)

// Session holds one persistent environment across evaluations, the way a
// REPL needs it. It is not safe for concurrent use.
type Session struct {
	cfg  Config
	env  *Env
	eval *Evaluator
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, env: NewEnv(), eval: NewEvaluator(cfg)}
}

// Env returns the session's environment.
func (s *Session) Env() *Env {
	return s.env
}

// Reset drops every binding.
func (s *Session) Reset() {
	s.env = NewEnv()
	s.eval = NewEvaluator(s.cfg)
}

// EvalLine parses exactly one top-level form from line and evaluates it.
// A blank line yields ErrEndOfInput.
func (s *Session) EvalLine(line string) (*Node, error) {
	node, err := Parse(line)
	if err != nil {
		return nil, err
	}
	return s.Eval(node)
}

// Eval evaluates an already parsed form.
func (s *Session) Eval(node *Node) (*Node, error) {
	return s.eval.Eval(s.env, node)
}

// EvalSource evaluates every top-level form in src and returns the last
// result. It stops at the first error.
func (s *Session) EvalSource(src string) (*Node, error) {
	forms, err := ParseAll(src)
	if err != nil {
		return nil, err
	}
	if len(forms) == 0 {
		return nil, ErrEndOfInput
	}
	var result *Node
	for i, form := range forms {
		result, err = s.Eval(form)
		if err != nil {
			return nil, fmt.Errorf("form %d: %w", i+1, err)
		}
	}
	return result, nil
}

// Replay re-evaluates journaled lines in order, rebuilding the bindings
// they made. Every line runs, including ones that failed when first
// entered: a failing setq may still have bound its earlier pairs, and later
// lines can depend on those bindings. Blank lines are skipped. Replay
// returns the number of lines that failed again.
func (s *Session) Replay(lines []string) int {
	failed := 0
	for _, line := range lines {
		if _, err := s.EvalLine(line); err != nil && !errors.Is(err, ErrEndOfInput) {
			failed++
		}
	}
	return failed
}
