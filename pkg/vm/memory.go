package vm

// MemSize is the length of the VM's flat word array.
const MemSize = 1<<16 - 1

// StackSize is the length of the stack region at the bottom of the address
// space. Valid stack addresses are 0..StackSize-1; everything above is heap.
const StackSize = 20

// AddressSpace is one flat array of words with two logical regions: a bounded
// LIFO stack in [0, StackSize) and a heap arena in [StackSize, MemSize)
// managed by the allocator. Allocator bookkeeping lives beside the array,
// never inside it.
type AddressSpace struct {
	words []Word
	sp    int // index of the stack top; -1 when empty
	heap  *freeList
}

// NewAddressSpace creates a fresh address space with an empty stack and a
// fully free heap arena.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		words: make([]Word, MemSize),
		sp:    -1,
		heap:  newFreeList(),
	}
}

// At returns the word at the given address.
func (m *AddressSpace) At(addr uint64) (Word, error) {
	if addr >= MemSize {
		return 0, &MemoryBoundsError{Addr: addr}
	}
	return m.words[addr], nil
}

// SetAt stores a word at the given address.
func (m *AddressSpace) SetAt(addr uint64, w Word) error {
	if addr >= MemSize {
		return &MemoryBoundsError{Addr: addr}
	}
	m.words[addr] = w
	return nil
}

// SP returns the stack-top index, -1 when the stack is empty.
func (m *AddressSpace) SP() int {
	return m.sp
}

// StackDepth returns the number of pending stack entries.
func (m *AddressSpace) StackDepth() int {
	return m.sp + 1
}

// Push writes a word at SP+1 and increments SP.
func (m *AddressSpace) Push(w Word) error {
	if m.sp == StackSize-1 {
		return ErrStackOverflow
	}
	m.sp++
	m.words[m.sp] = w
	return nil
}

// Pop reads the word at SP and decrements SP.
func (m *AddressSpace) Pop() (Word, error) {
	if m.sp < 0 {
		return 0, ErrStackUnderflow
	}
	w := m.words[m.sp]
	m.sp--
	return w, nil
}

// Alloc reserves count contiguous heap words and returns their address. The
// returned pointer is always >= StackSize.
func (m *AddressSpace) Alloc(count uint32) (uint32, error) {
	return m.heap.alloc(count)
}

// Realloc resizes the allocation at ptr to count words, preserving contents
// up to the smaller of the old and new sizes, relocating if the block cannot
// grow in place.
func (m *AddressSpace) Realloc(ptr, count uint32) (uint32, error) {
	newPtr, oldSize, moved, err := m.heap.realloc(ptr, count)
	if err != nil {
		return 0, err
	}
	if moved {
		n := oldSize
		if count < n {
			n = count
		}
		copy(m.words[newPtr:newPtr+n], m.words[ptr:ptr+n])
		m.heap.dealloc(ptr)
	}
	return newPtr, nil
}

// Dealloc releases the allocation at ptr. Unknown pointers and double frees
// are errors; live neighbors are never disturbed.
func (m *AddressSpace) Dealloc(ptr uint32) error {
	return m.heap.dealloc(ptr)
}
