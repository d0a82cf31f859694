// Package compiler implements the single-pass Pratt compiler: it walks
// the token stream exactly once, emitting bytecode directly into the
// chunk store with no intermediate syntax tree, and resolves lexical
// scopes (locals vs. globals) as it goes.
package compiler

import (
	"strconv"

	"noxy-vm/internal/chunk"
	"noxy-vm/internal/scanner"
	"noxy-vm/internal/token"
	"noxy-vm/internal/value"
)

const maxArity = 255

// state is the single-pass parser's shared state: the token cursor and
// error/recovery bookkeeping live here, independent of which funcScope is
// currently being compiled into.
type state struct {
	scanner *scanner.Scanner

	previous token.Token
	current  token.Token

	errors    []*Error
	hadError  bool
	panicMode bool

	store *chunk.Store
	fs    *funcScope // innermost (currently active) function scope
}

// Compile drives the compiler over source in a fresh chunk store and
// returns the completed root function and that store on success, or the
// recorded errors on failure (the first is the one the caller should
// report, per spec §7; the rest are kept for completeness). Use this for
// one-shot compilation (a single file run, or -o serialization) where no
// chunk allocated by an earlier compilation needs to stay addressable.
func Compile(source string) (*value.Fn, *chunk.Store, []*Error) {
	store := chunk.NewStore()
	fn, errs := CompileInto(source, store)
	if len(errs) > 0 {
		return nil, nil, errs
	}
	return fn, store, nil
}

// CompileInto drives the compiler over source, allocating its chunks
// into store rather than a fresh one. This is what a persistent VM (the
// REPL) must use: a function value compiled on one line embeds a
// ChunkIdx into store, and that index has to stay valid — and that chunk
// has to stay in place — across every later line's compilation for as
// long as the function might still be called. Compile would silently
// discard it by starting over with an empty store each call.
func CompileInto(source string, store *chunk.Store) (*value.Fn, []*Error) {
	s := &state{
		scanner: scanner.New(source),
		store:   store,
	}

	idx, c := s.store.Alloc()
	s.fs = newFuncScope(nil, idx, c, "script", kindScript)

	s.advance()
	for !s.match(token.EOF) {
		s.declaration()
	}

	fn := s.endFuncScope()

	if s.hadError {
		return nil, s.errors
	}
	return fn, nil
}

func (s *state) advance() {
	s.previous = s.current
	for {
		s.current = s.scanner.Next()
		if s.current.Type != token.Error {
			break
		}
		s.errorAtCurrent(s.current.Lexeme)
	}
}

func (s *state) check(t token.Type) bool { return s.current.Type == t }

func (s *state) match(t token.Type) bool {
	if !s.check(t) {
		return false
	}
	s.advance()
	return true
}

func (s *state) consume(t token.Type, msg string) {
	if s.current.Type == t {
		s.advance()
		return
	}
	s.errorAtCurrent(msg)
}

func (s *state) line() int { return s.previous.Line }

// --- bytecode emission -----------------------------------------------

func (s *state) emitByte(b byte)        { s.fs.chunk.Write(b, s.line()) }
func (s *state) emitOp(op chunk.OpCode) { s.fs.chunk.WriteOp(op, s.line()) }

func (s *state) emitOpByte(op chunk.OpCode, operand byte) {
	s.emitOp(op)
	s.emitByte(operand)
}

func (s *state) emitConstant(v value.Value) {
	idx := s.fs.chunk.AddConstant(v)
	if idx > 255 {
		s.error("Too many constants in one chunk")
		return
	}
	s.emitOpByte(chunk.OpConstant, byte(idx))
}

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the placeholder's first byte, to be patched by patchJump.
func (s *state) emitJump(op chunk.OpCode) int {
	s.emitOp(op)
	s.emitByte(0xff)
	s.emitByte(0xff)
	return len(s.fs.chunk.Code) - 2
}

func (s *state) patchJump(offset int) {
	jump := len(s.fs.chunk.Code) - offset - 2
	if jump > 65535 {
		s.error("Too much code to jump over")
		return
	}
	s.fs.chunk.Code[offset] = byte(jump >> 8)
	s.fs.chunk.Code[offset+1] = byte(jump)
}

func (s *state) emitLoop(loopStart int) {
	s.emitOp(chunk.OpLoop)
	offset := len(s.fs.chunk.Code) - loopStart + 2
	if offset > 65535 {
		s.error("Loop body too large")
		return
	}
	s.emitByte(byte(offset >> 8))
	s.emitByte(byte(offset))
}

// endFuncScope emits the implicit `nil; return` epilogue, freezes the
// builder into an immutable value.Fn, and pops back to the enclosing
// function scope (nil at the outermost/script level).
func (s *state) endFuncScope() *value.Fn {
	s.emitOp(chunk.OpNil)
	s.emitOp(chunk.OpReturn)

	fn := &value.Fn{
		Name:     s.fs.function.name,
		Arity:    s.fs.function.arity,
		ChunkIdx: s.fs.function.chunkIdx,
		Kind:     value.FnKind(s.fs.function.kind),
	}
	s.fs = s.fs.enclosing
	return fn
}

// --- declarations & statements -----------------------------------------

func (s *state) declaration() {
	switch {
	case s.match(token.Fun):
		s.funDeclaration()
	case s.match(token.Var):
		s.varDeclaration()
	default:
		s.statement()
	}

	if s.panicMode {
		s.synchronize()
	}
}

func (s *state) funDeclaration() {
	global := s.parseVariable("Expect function name")
	s.fs.markInitialized() // hoisted: visible inside its own body for recursion
	s.function(kindFunction)
	s.defineVariable(global)
}

func (s *state) function(kind fnKind) {
	name := s.previous.Lexeme
	idx, c := s.store.Alloc()
	s.fs = newFuncScope(s.fs, idx, c, name, kind)
	enclosing := s.fs.enclosing

	s.fs.beginScope()

	s.consume(token.LeftParen, "Expect '(' after function name")
	if !s.check(token.RightParen) {
		for {
			s.fs.function.arity++
			if s.fs.function.arity > maxArity {
				s.errorAtCurrent("Can't have more than 255 parameters")
			}
			constIdx := s.parseVariable("Expect parameter name")
			s.defineVariable(constIdx)
			if !s.match(token.Comma) {
				break
			}
		}
	}
	s.consume(token.RightParen, "Expect ')' after parameters")
	s.consume(token.LeftBrace, "Expect '{' before function body")
	s.block()

	fn := s.endFuncScope()

	constIdx := enclosing.chunk.AddConstant(value.FuncVal(fn))
	if constIdx > 255 {
		s.error("Too many constants in one chunk")
		return
	}
	// Emit against the now-current (enclosing) scope.
	s.emitOpByte(chunk.OpConstant, byte(constIdx))
}

func (s *state) varDeclaration() {
	global := s.parseVariable("Expect variable name")

	if s.match(token.Equal) {
		s.expression()
	} else {
		s.emitOp(chunk.OpNil)
	}
	s.consume(token.Semicolon, "Expect ';' after variable declaration")

	s.defineVariable(global)
}

func (s *state) statement() {
	switch {
	case s.match(token.Print):
		s.printStatement()
	case s.match(token.If):
		s.ifStatement()
	case s.match(token.Return):
		s.returnStatement()
	case s.match(token.While):
		s.whileStatement()
	case s.match(token.For):
		s.forStatement()
	case s.match(token.LeftBrace):
		s.fs.beginScope()
		s.block()
		s.fs.endScope(s.line())
	default:
		s.expressionStatement()
	}
}

func (s *state) block() {
	for !s.check(token.RightBrace) && !s.check(token.EOF) {
		s.declaration()
	}
	s.consume(token.RightBrace, "Expect '}' after block")
}

func (s *state) printStatement() {
	s.expression()
	s.consume(token.Semicolon, "Expect ';' after value")
	s.emitOp(chunk.OpPrint)
}

func (s *state) returnStatement() {
	if s.match(token.Semicolon) {
		s.emitOp(chunk.OpNil)
	} else {
		s.expression()
		s.consume(token.Semicolon, "Expect ';' after return value")
	}
	s.emitOp(chunk.OpReturn)
}

func (s *state) expressionStatement() {
	s.expression()
	s.consume(token.Semicolon, "Expect ';' after expression")
	s.emitOp(chunk.OpPop)
}

func (s *state) ifStatement() {
	s.consume(token.LeftParen, "Expect '(' after 'if'")
	s.expression()
	s.consume(token.RightParen, "Expect ')' after condition")

	thenJump := s.emitJump(chunk.OpJumpIfFalse)
	s.emitOp(chunk.OpPop)
	s.statement()

	elseJump := s.emitJump(chunk.OpJump)
	s.patchJump(thenJump)
	s.emitOp(chunk.OpPop)

	if s.match(token.Else) {
		s.statement()
	}
	s.patchJump(elseJump)
}

func (s *state) whileStatement() {
	loopStart := len(s.fs.chunk.Code)
	s.consume(token.LeftParen, "Expect '(' after 'while'")
	s.expression()
	s.consume(token.RightParen, "Expect ')' after condition")

	exitJump := s.emitJump(chunk.OpJumpIfFalse)
	s.emitOp(chunk.OpPop)
	s.statement()
	s.emitLoop(loopStart)

	s.patchJump(exitJump)
	s.emitOp(chunk.OpPop)
}

func (s *state) forStatement() {
	s.fs.beginScope()
	s.consume(token.LeftParen, "Expect '(' after 'for'")

	switch {
	case s.match(token.Semicolon):
		// no initializer
	case s.match(token.Var):
		s.varDeclaration()
	default:
		s.expressionStatement()
	}

	loopStart := len(s.fs.chunk.Code)
	exitJump := -1
	if !s.match(token.Semicolon) {
		s.expression()
		s.consume(token.Semicolon, "Expect ';' after loop condition")
		exitJump = s.emitJump(chunk.OpJumpIfFalse)
		s.emitOp(chunk.OpPop)
	}

	if !s.match(token.RightParen) {
		bodyJump := s.emitJump(chunk.OpJump)
		incrStart := len(s.fs.chunk.Code)
		s.expression()
		s.emitOp(chunk.OpPop)
		s.consume(token.RightParen, "Expect ')' after for clauses")

		s.emitLoop(loopStart)
		loopStart = incrStart
		s.patchJump(bodyJump)
	}

	s.statement()
	s.emitLoop(loopStart)

	if exitJump != -1 {
		s.patchJump(exitJump)
		s.emitOp(chunk.OpPop)
	}
	s.fs.endScope(s.line())
}

// --- variables ----------------------------------------------------------

func (s *state) parseVariable(errMsg string) byte {
	s.consume(token.Identifier, errMsg)
	s.declareVariable()
	if s.fs.scopeDepth > 0 {
		return 0
	}
	return s.identifierConstant(s.previous.Lexeme)
}

func (s *state) identifierConstant(name string) byte {
	idx := s.fs.chunk.AddConstant(value.Str(name))
	if idx > 255 {
		s.error("Too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (s *state) declareVariable() {
	if s.fs.scopeDepth == 0 {
		return
	}
	name := s.previous.Lexeme
	for i := len(s.fs.locals) - 1; i >= 0; i-- {
		l := s.fs.locals[i]
		if l.depth != -1 && l.depth < s.fs.scopeDepth {
			break
		}
		if l.name == name {
			s.error("Already a variable with this name in this scope")
		}
	}
	if !s.fs.addLocal(name) {
		s.error("Too many local variables in one function")
	}
}

func (s *state) defineVariable(global byte) {
	if s.fs.scopeDepth > 0 {
		s.fs.markInitialized()
		return
	}
	s.emitOpByte(chunk.OpDefineGlobal, global)
}

// numberValue parses the decimal literal text the scanner already
// validated into a float64.
func numberValue(lexeme string) value.Value {
	f, _ := strconv.ParseFloat(lexeme, 64)
	return value.Num(f)
}
