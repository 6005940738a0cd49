package tinylisp

import (
	"fmt"
	"strconv"
	"strings"
)

type NodeKind int

const (
	NodeInt NodeKind = iota
	NodeSymbol
	NodeList
	NodeQuoted  // literal list data, Children unevaluated
	NodeClosure // Params + body in Children
	NodeTrue
	NodeFalse
)

// Node is both the syntax tree and the value domain. Nodes are shared by
// pointer and must not be modified once built.
type Node struct {
	Kind     NodeKind
	Int      int64
	Str      string
	Children []*Node
	Params   []string
}

var (
	trueNode  = &Node{Kind: NodeTrue}
	falseNode = &Node{Kind: NodeFalse}
)

func IntNode(n int64) *Node        { return &Node{Kind: NodeInt, Int: n} }
func SymbolNode(s string) *Node    { return &Node{Kind: NodeSymbol, Str: s} }
func ListNode(xs ...*Node) *Node   { return &Node{Kind: NodeList, Children: xs} }
func QuotedNode(xs ...*Node) *Node { return &Node{Kind: NodeQuoted, Children: xs} }
func ClosureNode(params []string, body []*Node) *Node {
	return &Node{Kind: NodeClosure, Params: params, Children: body}
}

// BoolNode returns the shared true or false node.
func BoolNode(b bool) *Node {
	if b {
		return trueNode
	}
	return falseNode
}

// IsEmptyList reports whether n is a List with no elements.
func (n *Node) IsEmptyList() bool {
	return n.Kind == NodeList && len(n.Children) == 0
}

func (n *Node) String() string {
	switch n.Kind {
	case NodeInt:
		return strconv.FormatInt(n.Int, 10)
	case NodeSymbol:
		return n.Str
	case NodeList:
		return "(" + joinNodes(n.Children) + ")"
	case NodeQuoted:
		return "'(" + joinNodes(n.Children) + ")"
	case NodeClosure:
		return fmt.Sprintf("<lambda (%s)>", strings.Join(n.Params, " "))
	case NodeTrue:
		return "true"
	case NodeFalse:
		return "false"
	default:
		return fmt.Sprintf("<unknown:%d>", n.Kind)
	}
}

func joinNodes(xs []*Node) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = x.String()
	}
	return strings.Join(parts, " ")
}

func (n *Node) KindName() string {
	return n.Kind.String()
}

func (k NodeKind) String() string {
	switch k {
	case NodeInt:
		return "Integer"
	case NodeSymbol:
		return "Symbol"
	case NodeList:
		return "List"
	case NodeQuoted:
		return "QuotedList"
	case NodeClosure:
		return "Closure"
	case NodeTrue, NodeFalse:
		return "Boolean"
	default:
		return "Unknown"
	}
}

// Equal compares two nodes structurally.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NodeInt:
		return a.Int == b.Int
	case NodeSymbol:
		return a.Str == b.Str
	case NodeTrue, NodeFalse:
		return true
	case NodeClosure:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i] != b.Params[i] {
				return false
			}
		}
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// NodeToGo converts a result node to a JSON-friendly Go value. Integers and
// booleans map to their Go counterparts; lists become arrays; symbols and
// closures are rendered as strings.
func NodeToGo(n *Node) any {
	switch n.Kind {
	case NodeInt:
		return n.Int
	case NodeTrue:
		return true
	case NodeFalse:
		return false
	case NodeList, NodeQuoted:
		arr := make([]any, len(n.Children))
		for i, c := range n.Children {
			arr[i] = NodeToGo(c)
		}
		return arr
	default:
		return n.String()
	}
}
