package tinylisp

// formFunc implements one special form. node is the whole form and args
// its unevaluated arguments.
type formFunc func(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error)

// specialForms is filled in init because the forms call back into Eval,
// which reads this table.
var specialForms map[string]formFunc

func init() {
	specialForms = map[string]formFunc{
		"+":      arithmetic(func(a, b int64) int64 { return a + b }),
		"-":      arithmetic(func(a, b int64) int64 { return a - b }),
		"*":      arithmetic(func(a, b int64) int64 { return a * b }),
		"/":      evalDiv,
		"=":      comparison(func(a, b int64) bool { return a == b }),
		">":      comparison(func(a, b int64) bool { return a > b }),
		">=":     comparison(func(a, b int64) bool { return a >= b }),
		"<":      comparison(func(a, b int64) bool { return a < b }),
		"<=":     comparison(func(a, b int64) bool { return a <= b }),
		"/=":     comparison(func(a, b int64) bool { return a != b }),
		"if":     evalIf,
		"car":    evalCar,
		"cdr":    evalCdr,
		"setq":   evalSetq,
		"lambda": evalLambda,
	}
}

// SpecialForms returns the names of the built-in forms.
func SpecialForms() []string {
	names := make([]string, 0, len(specialForms))
	for name := range specialForms {
		names = append(names, name)
	}
	return names
}

// --- Arithmetic and comparison ---

// integerArgs evaluates every argument and requires each to be an Integer.
func (e *Evaluator) integerArgs(env *Env, node *Node, args []*Node) ([]int64, error) {
	if len(args) == 0 {
		return nil, evalErrorf(ErrEmptyArgument, node, "empty argument")
	}
	ints := make([]int64, len(args))
	for i, arg := range args {
		val, err := e.Eval(env, arg)
		if err != nil {
			return nil, err
		}
		if val.Kind != NodeInt {
			return nil, evalErrorf(ErrType, node, "takes only integers, but got %s (%s)", arg, val.KindName())
		}
		ints[i] = val.Int
	}
	return ints, nil
}

func arithmetic(op func(a, b int64) int64) formFunc {
	return func(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
		ints, err := e.integerArgs(env, node, args)
		if err != nil {
			return nil, err
		}
		acc := ints[0]
		for _, n := range ints[1:] {
			acc = op(acc, n)
		}
		return IntNode(acc), nil
	}
}

func evalDiv(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	ints, err := e.integerArgs(env, node, args)
	if err != nil {
		return nil, err
	}
	acc := ints[0]
	for i, n := range ints[1:] {
		if n == 0 {
			return nil, evalErrorf(ErrDivisionByZero, node, "division by zero in argument %d (%s)", i+2, args[i+1])
		}
		acc /= n
	}
	return IntNode(acc), nil
}

func comparison(rel func(a, b int64) bool) formFunc {
	return func(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
		ints, err := e.integerArgs(env, node, args)
		if err != nil {
			return nil, err
		}
		result := true
		for i := 1; i < len(ints); i++ {
			result = result && rel(ints[i-1], ints[i])
		}
		return BoolNode(result), nil
	}
}

// --- Control ---

// evalIf: (if cond then [else]). A false condition without else yields ().
func evalIf(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, evalErrorf(ErrArity, node, "if: expected 2 or 3 args, got %d", len(args))
	}
	cond, err := e.Eval(env, args[0])
	if err != nil {
		return nil, err
	}
	switch cond.Kind {
	case NodeTrue:
		return e.Eval(env, args[1])
	case NodeFalse:
		if len(args) == 3 {
			return e.Eval(env, args[2])
		}
		return ListNode(), nil
	default:
		return nil, evalErrorf(ErrType, node, "if: condition %s evaluated to %s %s, not a boolean", args[0], cond.KindName(), cond)
	}
}

// --- Lists ---

// quotedArg returns the quoted list a car/cdr argument denotes. A literal
// quoted list is taken as is; anything else is evaluated first.
func (e *Evaluator) quotedArg(env *Env, node *Node, name string, args []*Node) (*Node, error) {
	if len(args) != 1 {
		return nil, evalErrorf(ErrArity, node, "%s: expected 1 arg, got %d", name, len(args))
	}
	arg := args[0]
	if arg.Kind != NodeQuoted {
		val, err := e.Eval(env, arg)
		if err != nil {
			return nil, err
		}
		arg = val
	}
	if arg.Kind != NodeQuoted {
		return nil, evalErrorf(ErrType, node, "%s takes only a quoted list, but got %s %s", name, arg.KindName(), arg)
	}
	return arg, nil
}

func evalCar(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	q, err := e.quotedArg(env, node, "car", args)
	if err != nil {
		return nil, err
	}
	if len(q.Children) == 0 {
		return ListNode(), nil
	}
	return q.Children[0], nil
}

func evalCdr(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	q, err := e.quotedArg(env, node, "cdr", args)
	if err != nil {
		return nil, err
	}
	if len(q.Children) == 0 {
		return ListNode(), nil
	}
	return QuotedNode(q.Children[1:]...), nil
}

// --- Bindings ---

// evalSetq: (setq k1 v1 k2 v2 ...). Binds into the innermost frame and
// returns the form itself.
func evalSetq(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	if len(args)%2 != 0 {
		return nil, evalErrorf(ErrArity, node, "setq: expected key/value pairs, got %d args", len(args))
	}
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		if key.Kind != NodeSymbol {
			return nil, evalErrorf(ErrType, node, "setq: key %s must be a symbol, got %s", key, key.KindName())
		}
		val, err := e.Eval(env, args[i+1])
		if err != nil {
			return nil, err
		}
		env.Bind(key.Str, val)
	}
	return node, nil
}

// evalLambda: (lambda (params...) (body...)). The closure does not capture
// env; free variables resolve against the frames live at call time.
func evalLambda(e *Evaluator, env *Env, node *Node, args []*Node) (*Node, error) {
	if len(args) != 2 {
		return nil, evalErrorf(ErrArity, node, "lambda: expected params and body, got %d args", len(args))
	}
	paramsNode, body := args[0], args[1]
	if paramsNode.Kind != NodeList {
		return nil, evalErrorf(ErrType, node, "lambda: params must be a list, got %s", paramsNode.KindName())
	}
	if body.Kind != NodeList {
		return nil, evalErrorf(ErrType, node, "lambda: body must be a list, got %s", body.KindName())
	}
	params := make([]string, len(paramsNode.Children))
	for i, p := range paramsNode.Children {
		if p.Kind != NodeSymbol {
			return nil, evalErrorf(ErrType, node, "lambda: param %s must be a symbol, got %s", p, p.KindName())
		}
		params[i] = p.Str
	}
	return ClosureNode(params, body.Children), nil
}
