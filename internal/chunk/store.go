package chunk

import (
	"fmt"

	"noxy-vm/internal/value"
)

// Store is the chunk store: an append-only collection of Chunks addressed
// by a stable index. The compiler allocates a new chunk per function
// compilation; the VM dereferences a function value's chunk index back
// into this store at call time.
type Store struct {
	chunks []*Chunk
}

// NewStore returns an empty chunk store.
func NewStore() *Store {
	return &Store{}
}

// Alloc appends a fresh, empty chunk and returns its stable index.
func (s *Store) Alloc() (int, *Chunk) {
	c := New()
	s.chunks = append(s.chunks, c)
	return len(s.chunks) - 1, c
}

// Get returns the chunk at idx. It panics on an out-of-range index, which
// would indicate a compiler bug (an invalid chunk index should never
// reach the store — see spec invariant 1).
func (s *Store) Get(idx int) *Chunk {
	return s.chunks[idx]
}

// Len reports how many chunks the store holds.
func (s *Store) Len() int { return len(s.chunks) }

// DisassembleAll disassembles the chunk at idx under name, then
// depth-first every nested function chunk reachable from its constant
// pool.
func (s *Store) DisassembleAll(idx int, name string) {
	c := s.Get(idx)
	c.Disassemble(name)
	for _, k := range c.Constants {
		if k.Type == value.Function {
			fn := k.Obj.(*value.Fn)
			fmt.Println()
			s.DisassembleAll(fn.ChunkIdx, fn.Name)
		}
	}
}
