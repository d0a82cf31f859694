package vm

import (
	"fmt"
	"strconv"

	"noxy-vm/internal/chunk"
	"noxy-vm/internal/value"
)

// run executes the dispatch loop starting from the topmost call frame
// until the outermost frame returns, and reports that return value.
func (vm *VM) run() (value.Value, error) {
	f := vm.currentFrame()
	c := vm.store.Get(f.chunkIdx)

	readByte := func() byte {
		b := c.Code[f.ip]
		f.ip++
		return b
	}
	readShort := func() int {
		hi, lo := c.Code[f.ip], c.Code[f.ip+1]
		f.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return c.Constants[readByte()]
	}

	for {
		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(readConstant())

		case chunk.OpNil:
			vm.push(value.NilVal())
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpDefineGlobal:
			name := readConstant().Str
			vm.globals[name] = vm.peek(0)
			vm.pop()

		case chunk.OpGetGlobal:
			name := readConstant().Str
			v, ok := vm.globals[name]
			if !ok {
				return value.Value{}, vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.push(v)

		case chunk.OpSetGlobal:
			name := readConstant().Str
			if _, ok := vm.globals[name]; !ok {
				return value.Value{}, vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.globals[name] = vm.peek(0)

		case chunk.OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[f.base+slot])

		case chunk.OpSetLocal:
			slot := int(readByte())
			vm.stack[f.base+slot] = vm.peek(0)

		case chunk.OpNegate:
			v := vm.pop()
			if v.Type != value.Number {
				return value.Value{}, vm.runtimeError("Operand must be a number")
			}
			vm.push(value.Num(-v.Num))

		case chunk.OpNot:
			v := vm.pop()
			vm.push(value.Bool(v.IsFalsey()))

		case chunk.OpAdd:
			b, a := vm.pop(), vm.pop()
			result, err := addValues(a, b)
			if err != nil {
				return value.Value{}, vm.runtimeError(err.Error())
			}
			vm.push(result)

		case chunk.OpSubtract:
			b, a, err := vm.popNumbers()
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Num(a - b))

		case chunk.OpMultiply:
			b, a, err := vm.popNumbers()
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Num(a * b))

		case chunk.OpDivide:
			b, a, err := vm.popNumbers()
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Num(a / b))

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case chunk.OpGreater:
			b, a, err := vm.popNumbers()
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Bool(a > b))

		case chunk.OpLess:
			b, a, err := vm.popNumbers()
			if err != nil {
				return value.Value{}, err
			}
			vm.push(value.Bool(a < b))

		case chunk.OpPrint:
			fmt.Println(vm.pop().String())

		case chunk.OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}

		case chunk.OpJump:
			offset := readShort()
			f.ip += offset

		case chunk.OpLoop:
			offset := readShort()
			f.ip -= offset

		case chunk.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return value.Value{}, err
			}
			f = vm.currentFrame()
			c = vm.store.Get(f.chunkIdx)

		case chunk.OpReturn:
			result := vm.pop()
			calleeBase := f.base
			vm.frameCount--

			vm.stack = vm.stack[:calleeBase]
			vm.push(result)

			if vm.frameCount == 0 {
				return result, nil
			}

			f = vm.currentFrame()
			c = vm.store.Get(f.chunkIdx)

		default:
			return value.Value{}, vm.runtimeError("Unknown opcode %d", op)
		}
	}
}

// popNumbers pops b then a and requires both be Numbers, as the
// Subtract/Multiply/Divide/Greater/Less opcodes do.
func (vm *VM) popNumbers() (b, a float64, err error) {
	bv, av := vm.pop(), vm.pop()
	if av.Type != value.Number || bv.Type != value.Number {
		return 0, 0, vm.runtimeError("Operands must be numbers")
	}
	return bv.Num, av.Num, nil
}

// addValues implements the cross-type Add rule from spec §4.2.3 and §9:
// Number+Number is numeric addition, String+String is concatenation, a
// mix of Number and String stringifies the number and concatenates.
func addValues(a, b value.Value) (value.Value, error) {
	switch {
	case a.Type == value.Number && b.Type == value.Number:
		return value.Num(a.Num + b.Num), nil
	case a.Type == value.String && b.Type == value.String:
		return value.Str(a.Str + b.Str), nil
	case a.Type == value.String && b.Type == value.Number:
		return value.Str(a.Str + formatNumber(b.Num)), nil
	case a.Type == value.Number && b.Type == value.String:
		return value.Str(formatNumber(a.Num) + b.Str), nil
	default:
		return value.Value{}, fmt.Errorf("Operands must be numbers or strings")
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
