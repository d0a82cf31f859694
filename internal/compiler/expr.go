package compiler

import (
	"noxy-vm/internal/chunk"
	"noxy-vm/internal/token"
	"noxy-vm/internal/value"
)

// precedence is the ordered set from spec §4.1.1: None < Assignment < Or
// < And < Equality < Comparison < Term < Factor < Unary < Call < Primary.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type (
	prefixFn func(s *state, canAssign bool)
	infixFn  func(s *state, canAssign bool)
)

type rule struct {
	prefix     prefixFn
	infix      infixFn
	precedence precedence
}

var rules map[token.Type]rule

func init() {
	rules = map[token.Type]rule{
		token.LeftParen:    {grouping, call, precCall},
		token.Minus:        {unary, binary, precTerm},
		token.Plus:         {nil, binary, precTerm},
		token.Slash:        {nil, binary, precFactor},
		token.Star:         {nil, binary, precFactor},
		token.Bang:         {unary, nil, precNone},
		token.BangEqual:    {nil, binary, precEquality},
		token.EqualEqual:   {nil, binary, precEquality},
		token.Greater:      {nil, binary, precComparison},
		token.GreaterEqual: {nil, binary, precComparison},
		token.Less:         {nil, binary, precComparison},
		token.LessEqual:    {nil, binary, precComparison},
		token.Identifier:   {variable, nil, precNone},
		token.String:       {stringLiteral, nil, precNone},
		token.Number:       {number, nil, precNone},
		token.And:          {nil, and_, precAnd},
		token.Or:           {nil, or_, precOr},
		token.False:        {literal, nil, precNone},
		token.Nil:          {literal, nil, precNone},
		token.True:         {literal, nil, precNone},
	}
}

func getRule(t token.Type) rule {
	if r, ok := rules[t]; ok {
		return r
	}
	return rule{precedence: precNone}
}

func (s *state) expression() {
	s.parsePrecedence(precAssignment)
}

func (s *state) parsePrecedence(prec precedence) {
	s.advance()
	prefix := getRule(s.previous.Type).prefix
	if prefix == nil {
		s.error("Expect expression")
		return
	}

	canAssign := prec <= precAssignment
	prefix(s, canAssign)

	for prec <= getRule(s.current.Type).precedence {
		s.advance()
		infix := getRule(s.previous.Type).infix
		infix(s, canAssign)
	}

	if canAssign && s.match(token.Equal) {
		s.error("Invalid assignment target")
	}
}

func grouping(s *state, _ bool) {
	s.expression()
	s.consume(token.RightParen, "Expect ')' after expression")
}

func unary(s *state, _ bool) {
	opType := s.previous.Type
	s.parsePrecedence(precUnary)
	switch opType {
	case token.Bang:
		s.emitOp(chunk.OpNot)
	case token.Minus:
		s.emitOp(chunk.OpNegate)
	}
}

func binary(s *state, _ bool) {
	opType := s.previous.Type
	r := getRule(opType)
	s.parsePrecedence(r.precedence + 1)

	switch opType {
	case token.BangEqual:
		s.emitOp(chunk.OpEqual)
		s.emitOp(chunk.OpNot)
	case token.EqualEqual:
		s.emitOp(chunk.OpEqual)
	case token.Greater:
		s.emitOp(chunk.OpGreater)
	case token.GreaterEqual:
		s.emitOp(chunk.OpLess)
		s.emitOp(chunk.OpNot)
	case token.Less:
		s.emitOp(chunk.OpLess)
	case token.LessEqual:
		s.emitOp(chunk.OpGreater)
		s.emitOp(chunk.OpNot)
	case token.Plus:
		s.emitOp(chunk.OpAdd)
	case token.Minus:
		s.emitOp(chunk.OpSubtract)
	case token.Star:
		s.emitOp(chunk.OpMultiply)
	case token.Slash:
		s.emitOp(chunk.OpDivide)
	}
}

func literal(s *state, _ bool) {
	switch s.previous.Type {
	case token.False:
		s.emitOp(chunk.OpFalse)
	case token.Nil:
		s.emitOp(chunk.OpNil)
	case token.True:
		s.emitOp(chunk.OpTrue)
	}
}

func number(s *state, _ bool) {
	s.emitConstant(numberValue(s.previous.Lexeme))
}

func stringLiteral(s *state, _ bool) {
	s.emitConstant(value.Str(s.previous.Lexeme))
}

func variable(s *state, canAssign bool) {
	s.namedVariable(s.previous, canAssign)
}

func (s *state) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	arg := s.fs.resolveLocal(name.Lexeme)
	switch {
	case arg == -2:
		s.error("Can't read local variable in its own initializer")
		arg = 0
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	case arg != -1:
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	default:
		arg = int(s.identifierConstant(name.Lexeme))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
	}

	if canAssign && s.match(token.Equal) {
		s.expression()
		s.emitOpByte(setOp, byte(arg))
	} else {
		s.emitOpByte(getOp, byte(arg))
	}
}

func and_(s *state, _ bool) {
	endJump := s.emitJump(chunk.OpJumpIfFalse)
	s.emitOp(chunk.OpPop)
	s.parsePrecedence(precAnd)
	s.patchJump(endJump)
}

func or_(s *state, _ bool) {
	elseJump := s.emitJump(chunk.OpJumpIfFalse)
	endJump := s.emitJump(chunk.OpJump)
	s.patchJump(elseJump)
	s.emitOp(chunk.OpPop)
	s.parsePrecedence(precOr)
	s.patchJump(endJump)
}

func call(s *state, _ bool) {
	argCount := s.argumentList()
	s.emitOpByte(chunk.OpCall, byte(argCount))
}

func (s *state) argumentList() int {
	count := 0
	if !s.check(token.RightParen) {
		for {
			s.expression()
			if count >= maxArity {
				s.error("Can't have more than 255 arguments")
			}
			count++
			if !s.match(token.Comma) {
				break
			}
		}
	}
	s.consume(token.RightParen, "Expect ')' after arguments")
	return count
}
