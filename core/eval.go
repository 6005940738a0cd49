package tinylisp

import (
	"log"
	"strings"
)

// DefaultMaxDepth bounds nested Eval calls so runaway recursion fails with
// ErrDepthExceeded instead of exhausting the Go stack.
const DefaultMaxDepth = 10000

// Config tunes an Evaluator.
type Config struct {
	MaxDepth int         // 0 means DefaultMaxDepth
	Logger   *log.Logger // if set, every closure call is logged
}

func DefaultConfig() Config {
	return Config{MaxDepth: DefaultMaxDepth}
}

// Evaluator reduces nodes against an Env. It keeps only the depth counter
// between calls, so one Evaluator serves one Env at a time.
type Evaluator struct {
	maxDepth int
	logger   *log.Logger
	depth    int
}

func NewEvaluator(cfg Config) *Evaluator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Evaluator{maxDepth: cfg.MaxDepth, logger: cfg.Logger}
}

// Eval evaluates node in env. Integers, booleans and closures evaluate to
// themselves; a quoted list evaluates to the plain list it holds.
func (e *Evaluator) Eval(env *Env, node *Node) (*Node, error) {
	if e.depth >= e.maxDepth {
		return nil, evalErrorf(ErrDepthExceeded, node, "evaluation nested deeper than %d", e.maxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()

	switch node.Kind {
	case NodeInt, NodeClosure, NodeTrue, NodeFalse:
		return node, nil
	case NodeSymbol:
		return e.evalSymbol(env, node)
	case NodeQuoted:
		return ListNode(node.Children...), nil
	case NodeList:
		return e.evalList(env, node)
	default:
		return nil, evalErrorf(ErrType, node, "unknown node kind %d", node.Kind)
	}
}

// evalSymbol evaluates the value bound to a symbol. Unbound symbols stand
// for themselves.
func (e *Evaluator) evalSymbol(env *Env, node *Node) (*Node, error) {
	val, ok := env.Lookup(node.Str)
	if !ok {
		return node, nil
	}
	return e.Eval(env, val)
}

func (e *Evaluator) evalList(env *Env, node *Node) (*Node, error) {
	if len(node.Children) == 0 {
		return nil, evalErrorf(ErrEmptyForm, node, "cannot evaluate an empty list")
	}
	head := node.Children[0]
	if head.Kind != NodeSymbol {
		return nil, evalErrorf(ErrType, node, "head must be a symbol, got %s %s", head.KindName(), head)
	}
	if form, ok := specialForms[head.Str]; ok {
		return form(e, env, node, node.Children[1:])
	}

	fn, ok := env.Lookup(head.Str)
	if !ok {
		return nil, evalErrorf(ErrUnknownKeyword, node, "unknown keyword %s", head.Str)
	}
	if fn.Kind != NodeClosure {
		return nil, evalErrorf(ErrNotCallable, node, "%s is bound to %s %s, not a closure", head.Str, fn.KindName(), fn)
	}
	return e.call(env, node, head.Str, fn, node.Children[1:])
}

// call runs a closure. Arguments are evaluated after the call frame is
// pushed and bound into it; the frame is popped on every return path.
func (e *Evaluator) call(env *Env, node *Node, name string, fn *Node, argNodes []*Node) (*Node, error) {
	if len(argNodes) != len(fn.Params) {
		return nil, evalErrorf(ErrArity, node, "%s: expected %d args, got %d", name, len(fn.Params), len(argNodes))
	}

	env.PushFrame()
	defer env.PopFrame()

	args := make([]*Node, len(argNodes))
	for i, argNode := range argNodes {
		val, err := e.Eval(env, argNode)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	for i, param := range fn.Params {
		env.Bind(param, args[i])
	}

	if e.logger != nil {
		e.logger.Printf("call %s (%s) depth=%d", name, formatArgs(fn.Params, args), e.depth)
	}
	return e.Eval(env, ListNode(fn.Children...))
}

func formatArgs(params []string, args []*Node) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p + "=" + args[i].String()
	}
	return strings.Join(parts, " ")
}
