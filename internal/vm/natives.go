package vm

import (
	"math"
	"time"

	"noxy-vm/internal/value"
)

// registerDefaultNatives wires the two natives spec §4.2.1 prescribes.
func registerDefaultNatives(vm *VM) {
	vm.DefineNative("clock", func(argCount int, args []value.Value) value.Value {
		return value.Num(float64(time.Now().UnixMilli()))
	})

	vm.DefineNative("sin", func(argCount int, args []value.Value) value.Value {
		if argCount != 1 || args[0].Type != value.Number {
			return value.NilVal()
		}
		return value.Num(math.Sin(args[0].Num))
	})
}
