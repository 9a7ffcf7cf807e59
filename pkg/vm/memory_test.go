package vm

import (
	"errors"
	"testing"
)

func TestStackLIFO(t *testing.T) {
	m := NewAddressSpace()
	for i := 0; i < StackSize; i++ {
		if err := m.Push(Word(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := StackSize - 1; i >= 0; i-- {
		w, err := m.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if w != Word(i) {
			t.Errorf("pop = %d, want %d", w, i)
		}
	}
	if m.StackDepth() != 0 {
		t.Errorf("StackDepth() = %d after draining", m.StackDepth())
	}
}

func TestStackOverflow(t *testing.T) {
	m := NewAddressSpace()
	for i := 0; i < StackSize; i++ {
		if err := m.Push(0); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := m.Push(0); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("push past the top = %v, want ErrStackOverflow", err)
	}
}

func TestStackUnderflow(t *testing.T) {
	m := NewAddressSpace()
	if _, err := m.Pop(); !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("pop of empty stack = %v, want ErrStackUnderflow", err)
	}
	if m.SP() != -1 {
		t.Errorf("SP() = %d on empty stack, want -1", m.SP())
	}
}

func TestMemoryBounds(t *testing.T) {
	m := NewAddressSpace()
	if err := m.SetAt(MemSize-1, 42); err != nil {
		t.Fatalf("SetAt(last): %v", err)
	}
	w, err := m.At(MemSize - 1)
	if err != nil {
		t.Fatalf("At(last): %v", err)
	}
	if w != 42 {
		t.Errorf("At(last) = %d, want 42", w)
	}

	var mbe *MemoryBoundsError
	if err := m.SetAt(MemSize, 0); !errors.As(err, &mbe) {
		t.Errorf("SetAt(MemSize) = %v, want MemoryBoundsError", err)
	}
	if _, err := m.At(MemSize); !errors.As(err, &mbe) {
		t.Errorf("At(MemSize) = %v, want MemoryBoundsError", err)
	}
}

func TestStackRegionIsAddressable(t *testing.T) {
	// Stack slots live at the bottom of the same flat array.
	m := NewAddressSpace()
	if err := m.Push(7); err != nil {
		t.Fatal(err)
	}
	w, err := m.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if w != 7 {
		t.Errorf("mem[0] = %d after push, want 7", w)
	}
}
