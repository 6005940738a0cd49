package tinylisp

import "fmt"

// Parser consumes a token slice front to back, yielding one form per Next.
type Parser struct {
	tokens []Token
	end    int // byte offset just past the last token, for error reporting
}

func NewParser(tokens []Token) *Parser {
	p := &Parser{tokens: tokens}
	if n := len(tokens); n > 0 {
		p.end = tokens[n-1].Offset + tokens[n-1].Len
	}
	return p
}

// Parse tokenizes src and returns its single top-level form.
func Parse(src string) (*Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	node, err := p.Next()
	if err != nil {
		return nil, err
	}
	if !p.Done() {
		return nil, &ParseError{Offset: p.tokens[0].Offset, Msg: "unexpected input after expression"}
	}
	return node, nil
}

// ParseAll tokenizes src and returns every top-level form in order.
func ParseAll(src string) ([]*Node, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(tokens)
	var forms []*Node
	for !p.Done() {
		node, err := p.Next()
		if err != nil {
			return nil, err
		}
		forms = append(forms, node)
	}
	return forms, nil
}

// Done reports whether every token has been consumed.
func (p *Parser) Done() bool {
	return len(p.tokens) == 0
}

func (p *Parser) pop() (Token, bool) {
	if len(p.tokens) == 0 {
		return Token{}, false
	}
	tok := p.tokens[0]
	p.tokens = p.tokens[1:]
	return tok, true
}

// Next returns the next form, or ErrEndOfInput once the tokens run out.
func (p *Parser) Next() (*Node, error) {
	tok, ok := p.pop()
	if !ok {
		return nil, ErrEndOfInput
	}
	switch tok.Kind {
	case TokLParen:
		children, err := p.parseList(tok)
		if err != nil {
			return nil, err
		}
		return ListNode(children...), nil
	case TokRParen:
		return nil, &ParseError{Offset: tok.Offset, Msg: "unexpected ')'"}
	case TokInteger:
		return IntNode(tok.Int), nil
	case TokSymbol:
		return SymbolNode(tok.Str), nil
	case TokQuote:
		return p.parseQuoted(tok)
	default:
		return nil, &ParseError{Offset: tok.Offset, Msg: fmt.Sprintf("unknown token %s", tok.Kind)}
	}
}

// parseList reads forms until the ')' matching open. The ')' is consumed.
func (p *Parser) parseList(open Token) ([]*Node, error) {
	children := []*Node{}
	for {
		if len(p.tokens) == 0 {
			return nil, &ParseError{Offset: p.end, Msg: fmt.Sprintf("unclosed list opened at offset %d", open.Offset), Incomplete: true}
		}
		if p.tokens[0].Kind == TokRParen {
			p.pop()
			return children, nil
		}
		child, err := p.Next()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
}

func (p *Parser) parseQuoted(quote Token) (*Node, error) {
	tok, ok := p.pop()
	if !ok {
		return nil, &ParseError{Offset: p.end, Msg: "quote at end of input", Incomplete: true}
	}
	if tok.Kind != TokLParen {
		return nil, &ParseError{Offset: tok.Offset, Msg: fmt.Sprintf("quote at offset %d must be followed by '('", quote.Offset)}
	}
	children, err := p.parseList(tok)
	if err != nil {
		return nil, err
	}
	return QuotedNode(children...), nil
}
