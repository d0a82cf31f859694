// Package chunk implements the chunk store: each Chunk is the bytecode
// body of one compiled function plus its constant pool. Chunks are
// append-only during compilation and addressed by a stable index once a
// function embeds one as a constant.
package chunk

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"noxy-vm/internal/value"
)

// OpCode identifies one VM instruction. The operand, if any, follows in
// the code stream (see the comment on each constant).
type OpCode byte

const (
	OpConstant OpCode = iota // Constant(k): u8 constant index
	OpNil                    // push Nil
	OpTrue                   // push Boolean(true)
	OpFalse                  // push Boolean(false)
	OpPop                    // pop and discard

	OpDefineGlobal // DefineGlobal(k): u8 constant index (name)
	OpGetGlobal    // GetGlobal(k)
	OpSetGlobal    // SetGlobal(k)

	OpGetLocal // GetLocal(i): u8 frame-relative slot
	OpSetLocal // SetLocal(i)

	OpNegate
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpGreater
	OpLess

	OpPrint

	OpJumpIfFalse // JumpIfFalse(δ): u16 forward offset
	OpJump        // Jump(δ): u16 forward offset
	OpLoop        // Loop(δ): u16 backward offset

	OpCall // Call(n): u8 argument count
	OpReturn
)

var names = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpNegate:       "OP_NEGATE",
	OpNot:          "OP_NOT",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpPrint:        "OP_PRINT",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpJump:         "OP_JUMP",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpReturn:       "OP_RETURN",
}

func (op OpCode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return fmt.Sprintf("OP_%d", op)
}

// Chunk is one function's bytecode plus its constant pool. Constants are
// appended in the order the compiler discovers them; indices are stable
// for the lifetime of the chunk.
type Chunk struct {
	Code      []byte
	Lines     []int // Lines[i] is the source line of Code[i]
	Constants []value.Value
}

// New returns an empty chunk ready for the compiler to write into.
func New() *Chunk {
	return &Chunk{}
}

// Write appends a single opcode or operand byte, recording the source
// line it came from for error reporting.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp is Write for an OpCode value.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Disassemble prints a human-readable listing of c under name.
func (c *Chunk) Disassemble(name string) {
	instructions := 0
	for offset := 0; offset < len(c.Code); instructions++ {
		switch OpCode(c.Code[offset]) {
		case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal, OpGetLocal, OpSetLocal, OpCall:
			offset += 2
		case OpJump, OpJumpIfFalse, OpLoop:
			offset += 3
		default:
			offset++
		}
	}
	fmt.Printf("== %s (%s, %s instructions) ==\n",
		name,
		humanize.Bytes(uint64(len(c.Code))),
		humanize.Comma(int64(instructions)),
	)
	for offset := 0; offset < len(c.Code); {
		offset = c.DisassembleInstruction(offset)
	}
}

// DisassembleInstruction prints the instruction at offset and returns the
// offset of the following instruction.
func (c *Chunk) DisassembleInstruction(offset int) int {
	fmt.Printf("%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Print("   | ")
	} else {
		fmt.Printf("%4d ", c.Lines[offset])
	}

	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal:
		return c.constantInstr(op, offset)
	case OpGetLocal, OpSetLocal, OpCall:
		return c.byteInstr(op, offset)
	case OpJump, OpJumpIfFalse, OpLoop:
		return c.jumpInstr(op, offset)
	default:
		return c.simpleInstr(op, offset)
	}
}

func (c *Chunk) simpleInstr(op OpCode, offset int) int {
	fmt.Println(op)
	return offset + 1
}

func (c *Chunk) byteInstr(op OpCode, offset int) int {
	slot := c.Code[offset+1]
	fmt.Printf("%-18s %4d\n", op, slot)
	return offset + 2
}

func (c *Chunk) constantInstr(op OpCode, offset int) int {
	idx := c.Code[offset+1]
	fmt.Printf("%-18s %4d '%s'\n", op, idx, c.Constants[idx])
	return offset + 2
}

func (c *Chunk) jumpInstr(op OpCode, offset int) int {
	delta := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	sign := 1
	if op == OpLoop {
		sign = -1
	}
	fmt.Printf("%-18s %4d -> %d\n", op, offset, offset+3+sign*delta)
	return offset + 3
}
