package vm

import "sort"

// span is a contiguous run of heap words.
type span struct {
	addr uint32
	size uint32
}

// freeList is a first-fit allocator over the heap arena. Free spans are kept
// sorted by address and coalesced on release; live allocations are tracked by
// their base address. No bookkeeping is stored in the word array itself, so a
// build that degrades Dealloc to a no-op cannot corrupt program-visible state.
type freeList struct {
	free []span
	live map[uint32]uint32 // base address -> size in words
}

func newFreeList() *freeList {
	return &freeList{
		free: []span{{addr: StackSize, size: MemSize - StackSize}},
		live: make(map[uint32]uint32),
	}
}

// alloc reserves count words from the first free span that fits.
func (h *freeList) alloc(count uint32) (uint32, error) {
	if count == 0 {
		return 0, &HeapAllocationError{Op: "alloc", Count: count, Reason: "zero-size allocation"}
	}
	for i := range h.free {
		if h.free[i].size < count {
			continue
		}
		addr := h.free[i].addr
		if h.free[i].size == count {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i].addr += count
			h.free[i].size -= count
		}
		h.live[addr] = count
		return addr, nil
	}
	return 0, &HeapAllocationError{Op: "alloc", Count: count, Reason: "no free block large enough"}
}

// dealloc releases a live allocation and coalesces it with adjacent free spans.
func (h *freeList) dealloc(ptr uint32) error {
	size, ok := h.live[ptr]
	if !ok {
		return &HeapAllocationError{Op: "dealloc", Ptr: ptr, Reason: "pointer is not a live allocation"}
	}
	delete(h.live, ptr)
	h.insertFree(ptr, size)
	return nil
}

// realloc resizes a live allocation. It grows in place when the span
// immediately after the block is free and large enough; otherwise it reserves
// a new span and reports moved=true, leaving the old block live so the caller
// can copy contents before releasing it.
func (h *freeList) realloc(ptr, count uint32) (newPtr, oldSize uint32, moved bool, err error) {
	size, ok := h.live[ptr]
	if !ok {
		return 0, 0, false, &HeapAllocationError{Op: "realloc", Ptr: ptr, Count: count, Reason: "pointer is not a live allocation"}
	}
	if count == 0 {
		return 0, 0, false, &HeapAllocationError{Op: "realloc", Ptr: ptr, Count: count, Reason: "zero-size allocation"}
	}
	if count == size {
		return ptr, size, false, nil
	}

	if count < size {
		h.live[ptr] = count
		h.insertFree(ptr+count, size-count)
		return ptr, size, false, nil
	}

	// Try to grow into the span directly after the block.
	delta := count - size
	end := ptr + size
	for i := range h.free {
		if h.free[i].addr != end {
			continue
		}
		if h.free[i].size < delta {
			break
		}
		if h.free[i].size == delta {
			h.free = append(h.free[:i], h.free[i+1:]...)
		} else {
			h.free[i].addr += delta
			h.free[i].size -= delta
		}
		h.live[ptr] = count
		return ptr, size, false, nil
	}

	newPtr, err = h.alloc(count)
	if err != nil {
		return 0, 0, false, err
	}
	return newPtr, size, true, nil
}

// insertFree returns a span to the free list, merging with its neighbors when
// they touch.
func (h *freeList) insertFree(addr, size uint32) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].addr > addr })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{addr: addr, size: size}

	// Merge with the following span.
	if i+1 < len(h.free) && h.free[i].addr+h.free[i].size == h.free[i+1].addr {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	// Merge with the preceding span.
	if i > 0 && h.free[i-1].addr+h.free[i-1].size == h.free[i].addr {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

// liveCount returns the number of live allocations.
func (h *freeList) liveCount() int {
	return len(h.live)
}

// freeSpans returns a copy of the free list, for inspection in tests.
func (h *freeList) freeSpans() []span {
	return append([]span(nil), h.free...)
}
