package tinylisp

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

type TokenKind int

const (
	TokLParen TokenKind = iota
	TokRParen
	TokQuote
	TokInteger
	TokSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokQuote:
		return "Quote"
	case TokInteger:
		return "Integer"
	case TokSymbol:
		return "Symbol"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is one lexical unit. Offset and Len are in bytes of the source.
type Token struct {
	Kind   TokenKind
	Int    int64
	Str    string
	Offset int
	Len    int
}

func (t Token) String() string {
	switch t.Kind {
	case TokInteger:
		return fmt.Sprintf("Integer(%d)@%d", t.Int, t.Offset)
	case TokSymbol:
		return fmt.Sprintf("Symbol(%s)@%d", t.Str, t.Offset)
	default:
		return fmt.Sprintf("%s@%d", t.Kind, t.Offset)
	}
}

// scanner walks the source one rune at a time. pending holds runes handed
// back with unread; they are returned before the source continues.
type scanner struct {
	src     string
	pos     int
	pending []rune
}

func (s *scanner) next() (rune, bool) {
	if n := len(s.pending); n > 0 {
		r := s.pending[n-1]
		s.pending = s.pending[:n-1]
		s.pos += utf8.RuneLen(r)
		return r, true
	}
	if s.pos >= len(s.src) {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += size
	return r, true
}

func (s *scanner) unread(r rune) {
	s.pending = append(s.pending, r)
	s.pos -= utf8.RuneLen(r)
}

// Tokenize splits src into tokens.
func Tokenize(src string) ([]Token, error) {
	s := &scanner{src: src}
	var tokens []Token
	for {
		start := s.pos
		c, ok := s.next()
		if !ok {
			return tokens, nil
		}
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		case c == '(':
			tokens = append(tokens, Token{Kind: TokLParen, Offset: start, Len: 1})
		case c == ')':
			tokens = append(tokens, Token{Kind: TokRParen, Offset: start, Len: 1})
		case c == '\'':
			tokens = append(tokens, Token{Kind: TokQuote, Offset: start, Len: 1})
		case c == '+' || c == '-' || c == '*' || c == '=':
			tokens = append(tokens, symbolToken(string(c), start))
		case c == '/' || c == '>' || c == '<':
			tokens = append(tokens, s.operator(c, start))
		case isWordStart(c):
			tok, err := s.word(c, start)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		default:
			return nil, &LexError{Offset: start, Char: c}
		}
	}
}

// operator reads a one- or two-character operator whose second character,
// if any, is '='.
func (s *scanner) operator(first rune, start int) Token {
	c, ok := s.next()
	if ok && c == '=' {
		return symbolToken(string(first)+"=", start)
	}
	if ok {
		s.unread(c)
	}
	return symbolToken(string(first), start)
}

func (s *scanner) word(first rune, start int) (Token, error) {
	for {
		c, ok := s.next()
		if !ok {
			break
		}
		if !isWordStart(c) && c != '-' {
			s.unread(c)
			break
		}
	}
	text := s.src[start:s.pos]
	if !allDigits(text) {
		return symbolToken(text, start), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, &LexError{Offset: start, Char: first, Msg: fmt.Sprintf("integer literal %s out of range", text)}
	}
	return Token{Kind: TokInteger, Int: n, Offset: start, Len: len(text)}, nil
}

func symbolToken(name string, offset int) Token {
	return Token{Kind: TokSymbol, Str: name, Offset: offset, Len: len(name)}
}

// isWordStart accepts ASCII letters and digits only.
func isWordStart(c rune) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
