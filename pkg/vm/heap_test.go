package vm

import (
	"errors"
	"reflect"
	"testing"
)

func TestAllocOutsideStackRegion(t *testing.T) {
	h := newFreeList()
	ptr, err := h.alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if ptr < StackSize {
		t.Errorf("alloc returned %d, inside the stack region [0, %d)", ptr, StackSize)
	}
}

func TestAllocDistinctRegions(t *testing.T) {
	h := newFreeList()
	a, err := h.alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two live allocations share a base address")
	}
	if a < b && a+8 > b || b < a && b+8 > a {
		t.Errorf("allocations overlap: [%d,%d) and [%d,%d)", a, a+8, b, b+8)
	}
}

func TestAllocZeroCount(t *testing.T) {
	h := newFreeList()
	var hae *HeapAllocationError
	if _, err := h.alloc(0); !errors.As(err, &hae) {
		t.Errorf("alloc(0) = %v, want HeapAllocationError", err)
	}
}

func TestAllocExhaustion(t *testing.T) {
	h := newFreeList()
	if _, err := h.alloc(MemSize - StackSize); err != nil {
		t.Fatalf("full-arena alloc: %v", err)
	}
	var hae *HeapAllocationError
	if _, err := h.alloc(1); !errors.As(err, &hae) {
		t.Errorf("alloc on exhausted heap = %v, want HeapAllocationError", err)
	}
}

func TestDeallocRestoresState(t *testing.T) {
	h := newFreeList()
	before := h.freeSpans()

	ptr, err := h.alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.dealloc(ptr); err != nil {
		t.Fatal(err)
	}

	if got := h.freeSpans(); !reflect.DeepEqual(got, before) {
		t.Errorf("free list after alloc+dealloc = %v, want %v", got, before)
	}
	if h.liveCount() != 0 {
		t.Errorf("liveCount() = %d, want 0", h.liveCount())
	}
}

func TestDeallocDoubleFree(t *testing.T) {
	h := newFreeList()
	ptr, err := h.alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.dealloc(ptr); err != nil {
		t.Fatal(err)
	}
	var hae *HeapAllocationError
	if err := h.dealloc(ptr); !errors.As(err, &hae) {
		t.Errorf("double free = %v, want HeapAllocationError", err)
	}
	if err := h.dealloc(StackSize + 12345); !errors.As(err, &hae) {
		t.Errorf("free of unknown pointer = %v, want HeapAllocationError", err)
	}
}

func TestFreedRegionIsReusable(t *testing.T) {
	h := newFreeList()
	a, err := h.alloc(16)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.alloc(16); err != nil {
		t.Fatal(err)
	}
	if err := h.dealloc(a); err != nil {
		t.Fatal(err)
	}

	// First fit hands back the freed region for an equal-or-smaller request.
	b, err := h.alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	if b != a {
		t.Errorf("alloc after free = %d, want reuse of %d", b, a)
	}
}

func TestCoalescing(t *testing.T) {
	h := newFreeList()
	a, _ := h.alloc(4)
	b, _ := h.alloc(4)
	c, _ := h.alloc(4)

	// Free in an order that requires merging with both neighbors.
	if err := h.dealloc(a); err != nil {
		t.Fatal(err)
	}
	if err := h.dealloc(c); err != nil {
		t.Fatal(err)
	}
	if err := h.dealloc(b); err != nil {
		t.Fatal(err)
	}

	spans := h.freeSpans()
	if len(spans) != 1 {
		t.Fatalf("free list = %v, want one coalesced span", spans)
	}
	if spans[0].addr != StackSize || spans[0].size != MemSize-StackSize {
		t.Errorf("coalesced span = %+v", spans[0])
	}
}

func TestReallocGrowInPlace(t *testing.T) {
	m := NewAddressSpace()
	ptr, err := m.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint32(0); i < 4; i++ {
		if err := m.SetAt(uint64(ptr+i), Word(i+1)); err != nil {
			t.Fatal(err)
		}
	}

	// Nothing allocated after the block, so it can grow without moving.
	newPtr, err := m.Realloc(ptr, 8)
	if err != nil {
		t.Fatal(err)
	}
	if newPtr != ptr {
		t.Errorf("Realloc moved from %d to %d with free space in place", ptr, newPtr)
	}
	for i := uint32(0); i < 4; i++ {
		w, err := m.At(uint64(newPtr + i))
		if err != nil {
			t.Fatal(err)
		}
		if w != Word(i+1) {
			t.Errorf("word %d = %d after grow, want %d", i, w, i+1)
		}
	}
}

func TestReallocRelocatesAndPreservesContents(t *testing.T) {
	m := NewAddressSpace()
	ptr, err := m.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	// Pin an allocation directly after so growing must relocate.
	pin, err := m.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := uint32(0); i < 4; i++ {
		if err := m.SetAt(uint64(ptr+i), Word(10+i)); err != nil {
			t.Fatal(err)
		}
	}

	newPtr, err := m.Realloc(ptr, 16)
	if err != nil {
		t.Fatal(err)
	}
	if newPtr == ptr {
		t.Fatal("Realloc did not relocate around the pinned block")
	}
	for i := uint32(0); i < 4; i++ {
		w, err := m.At(uint64(newPtr + i))
		if err != nil {
			t.Fatal(err)
		}
		if w != Word(10+i) {
			t.Errorf("word %d = %d after relocation, want %d", i, w, 10+i)
		}
	}

	// The pinned neighbor must be untouched and still freeable.
	if err := m.Dealloc(pin); err != nil {
		t.Errorf("pinned block corrupted: %v", err)
	}
	if err := m.Dealloc(newPtr); err != nil {
		t.Errorf("relocated block not live: %v", err)
	}
}

func TestReallocShrink(t *testing.T) {
	m := NewAddressSpace()
	ptr, err := m.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	newPtr, err := m.Realloc(ptr, 4)
	if err != nil {
		t.Fatal(err)
	}
	if newPtr != ptr {
		t.Errorf("shrink moved from %d to %d", ptr, newPtr)
	}

	// The tail is free again: the next 4-word allocation can land there.
	tail, err := m.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if tail != ptr+4 {
		t.Errorf("alloc after shrink = %d, want %d", tail, ptr+4)
	}
}

func TestReallocInvalidPointer(t *testing.T) {
	m := NewAddressSpace()
	var hae *HeapAllocationError
	if _, err := m.Realloc(StackSize+100, 4); !errors.As(err, &hae) {
		t.Errorf("realloc of unknown pointer = %v, want HeapAllocationError", err)
	}
}
