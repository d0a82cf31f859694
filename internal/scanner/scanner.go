// Package scanner implements the conventional longest-match tokenizer that
// feeds the compiler. It is an external collaborator from the compiler's
// point of view: the compiler only ever sees the token.Token stream
// produced by Next.
package scanner

import (
	"strings"

	"noxy-vm/internal/token"
)

// Scanner turns source text into a stream of token.Token values, one call
// to Next at a time.
type Scanner struct {
	src     string
	start   int // start of the token currently being scanned
	current int // next byte to read
	line    int
}

// New returns a Scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Next scans and returns the next token, or an EOF token once the source
// is exhausted. An ERROR token carries the diagnostic message in Lexeme.
func (s *Scanner) Next() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case ';':
		return s.make(token.Semicolon)
	case '*':
		return s.make(token.Star)
	case '/':
		return s.make(token.Slash)
	case '!':
		if s.match('=') {
			return s.make(token.BangEqual)
		}
		return s.make(token.Bang)
	case '=':
		if s.match('=') {
			return s.make(token.EqualEqual)
		}
		return s.make(token.Equal)
	case '<':
		if s.match('=') {
			return s.make(token.LessEqual)
		}
		return s.make(token.Less)
	case '>':
		if s.match('=') {
			return s.make(token.GreaterEqual)
		}
		return s.make(token.Greater)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character")
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) match(expected byte) bool {
	if s.atEnd() || s.src[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	text := s.src[s.start:s.current]
	if kind, ok := token.Keywords[text]; ok {
		return s.make(kind)
	}
	return s.make(token.Identifier)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number)
}

// string scans a "..." literal, decoding the escapes \n \t \\ \" as it
// goes so the compiler receives the literal's already-decoded value.
func (s *Scanner) string() token.Token {
	var b strings.Builder
	for s.peek() != '"' && !s.atEnd() {
		c := s.peek()
		if c == '\n' {
			s.line++
		}
		if c == '\\' {
			switch s.peekNext() {
			case 'n':
				b.WriteByte('\n')
				s.advance()
				s.advance()
				continue
			case 't':
				b.WriteByte('\t')
				s.advance()
				s.advance()
				continue
			case '\\':
				b.WriteByte('\\')
				s.advance()
				s.advance()
				continue
			case '"':
				b.WriteByte('"')
				s.advance()
				s.advance()
				continue
			}
		}
		b.WriteByte(c)
		s.advance()
	}

	if s.atEnd() {
		return s.errorToken("Unterminated string")
	}
	s.advance() // closing quote

	tok := s.make(token.String)
	tok.Lexeme = b.String()
	return tok
}

func (s *Scanner) make(kind token.Type) token.Token {
	return token.Token{
		Type:   kind,
		Lexeme: s.src[s.start:s.current],
		Start:  s.start,
		Length: s.current - s.start,
		Line:   s.line,
	}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{
		Type:   token.Error,
		Lexeme: msg,
		Start:  s.start,
		Length: s.current - s.start,
		Line:   s.line,
	}
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
