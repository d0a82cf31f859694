package vm

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SortedGlobalNames returns the current global variable/function names in
// a stable, alphabetical order — used by the -d trace and by tests that
// assert on the shape of global state without depending on Go's
// randomized map iteration order.
func (vm *VM) SortedGlobalNames() []string {
	names := maps.Keys(vm.globals)
	slices.Sort(names)
	return names
}
