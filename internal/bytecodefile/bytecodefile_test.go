package bytecodefile

import (
	"testing"

	"noxy-vm/internal/chunk"
	"noxy-vm/internal/compiler"
	"noxy-vm/internal/value"
)

func TestRoundTripPreservesConstantsAndCode(t *testing.T) {
	fn, store, errs := compiler.Compile(`var x = 1; print x + "!"; print true; print nil;`)
	if len(errs) > 0 {
		t.Fatalf("compile error: %v", errs[0])
	}

	original := store.Get(fn.ChunkIdx)
	data, err := Write(original)
	if err != nil {
		t.Fatalf("write: %s", err)
	}

	roundTripped, err := Read(data)
	if err != nil {
		t.Fatalf("read: %s", err)
	}

	if len(roundTripped.Code) != len(original.Code) {
		t.Fatalf("code length mismatch: got %d, want %d", len(roundTripped.Code), len(original.Code))
	}
	for i := range original.Code {
		if roundTripped.Code[i] != original.Code[i] {
			t.Fatalf("code[%d] mismatch: got %d, want %d", i, roundTripped.Code[i], original.Code[i])
		}
	}

	if len(roundTripped.Constants) != len(original.Constants) {
		t.Fatalf("constant pool length mismatch: got %d, want %d",
			len(roundTripped.Constants), len(original.Constants))
	}
	for i, want := range original.Constants {
		got := roundTripped.Constants[i]
		if got.Type != want.Type || !value.Equal(got, want) {
			t.Errorf("constant[%d] mismatch: got %v, want %v", i, got, want)
		}
	}
}

// TestRoundTripEveryOpcodeAndConstantTag hand-builds a chunk touching
// every instruction variant in the opcode table and every persistable
// constant tag, rather than relying on whatever a compiled program
// happens to emit.
func TestRoundTripEveryOpcodeAndConstantTag(t *testing.T) {
	c := chunk.New()

	boolIdx := c.AddConstant(value.Bool(true))
	nilIdx := c.AddConstant(value.NilVal())
	numIdx := c.AddConstant(value.Num(3.5))
	strIdx := c.AddConstant(value.Str("hi"))
	nameIdx := c.AddConstant(value.Str("x"))

	line := 1
	// No-operand opcodes.
	for _, op := range []chunk.OpCode{
		chunk.OpNil, chunk.OpTrue, chunk.OpFalse, chunk.OpPop,
		chunk.OpNegate, chunk.OpNot, chunk.OpAdd, chunk.OpSubtract,
		chunk.OpMultiply, chunk.OpDivide, chunk.OpEqual, chunk.OpGreater,
		chunk.OpLess, chunk.OpPrint, chunk.OpReturn,
	} {
		c.WriteOp(op, line)
	}
	// One-byte-operand opcodes.
	c.WriteOp(chunk.OpConstant, line)
	c.Write(byte(boolIdx), line)
	c.WriteOp(chunk.OpConstant, line)
	c.Write(byte(nilIdx), line)
	c.WriteOp(chunk.OpConstant, line)
	c.Write(byte(numIdx), line)
	c.WriteOp(chunk.OpConstant, line)
	c.Write(byte(strIdx), line)
	c.WriteOp(chunk.OpDefineGlobal, line)
	c.Write(byte(nameIdx), line)
	c.WriteOp(chunk.OpGetGlobal, line)
	c.Write(byte(nameIdx), line)
	c.WriteOp(chunk.OpSetGlobal, line)
	c.Write(byte(nameIdx), line)
	c.WriteOp(chunk.OpGetLocal, line)
	c.Write(1, line)
	c.WriteOp(chunk.OpSetLocal, line)
	c.Write(1, line)
	c.WriteOp(chunk.OpCall, line)
	c.Write(2, line)
	// Two-byte-operand (jump) opcodes.
	for _, op := range []chunk.OpCode{chunk.OpJump, chunk.OpJumpIfFalse, chunk.OpLoop} {
		c.WriteOp(op, line)
		c.Write(0x01, line)
		c.Write(0x02, line)
	}

	data, err := Write(c)
	if err != nil {
		t.Fatalf("write: %s", err)
	}
	got, err := Read(data)
	if err != nil {
		t.Fatalf("read: %s", err)
	}

	if len(got.Code) != len(c.Code) {
		t.Fatalf("code length mismatch: got %d, want %d", len(got.Code), len(c.Code))
	}
	for i := range c.Code {
		if got.Code[i] != c.Code[i] {
			t.Fatalf("code[%d] mismatch: got %d, want %d", i, got.Code[i], c.Code[i])
		}
	}

	if len(got.Constants) != len(c.Constants) {
		t.Fatalf("constant pool length mismatch: got %d, want %d", len(got.Constants), len(c.Constants))
	}
	for i, want := range c.Constants {
		if !value.Equal(got.Constants[i], want) {
			t.Errorf("constant[%d] mismatch: got %v, want %v", i, got.Constants[i], want)
		}
	}
}

func TestWriteRejectsFunctionConstants(t *testing.T) {
	fn, store, errs := compiler.Compile(`fun f() { return 1; } print f;`)
	if len(errs) > 0 {
		t.Fatalf("compile error: %v", errs[0])
	}

	if _, err := Write(store.Get(fn.ChunkIdx)); err != ErrUnsupportedFunction {
		t.Fatalf("got err=%v, want ErrUnsupportedFunction", err)
	}
}

func TestReadRejectsTruncatedInput(t *testing.T) {
	c := chunk.New()
	c.AddConstant(value.Str("hello"))
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(0, 1)

	data, err := Write(c)
	if err != nil {
		t.Fatalf("write: %s", err)
	}

	if _, err := Read(data[:len(data)-10]); err == nil {
		t.Fatalf("expected an error reading truncated data")
	}
}
