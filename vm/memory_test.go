package vm

import "testing"

func TestMemoryZeroInitialized(t *testing.T) {
	m := NewMemory()
	for _, i := range []int{0, 63, 64, 1000, -1, -500} {
		if got := m.Get(i); got != 0 {
			t.Errorf("Get(%d) = %d, want 0", i, got)
		}
	}
	if len(m.Items()) != 0 {
		t.Errorf("fresh memory has items: %v", m.Items())
	}
}

func TestMemoryGrowsInChunks(t *testing.T) {
	m := NewMemory()
	if m.Len() != ChunkSize {
		t.Fatalf("Len() = %d, want %d", m.Len(), ChunkSize)
	}
	m.Set(64, 1)
	if m.Len() != 2*ChunkSize {
		t.Errorf("Len() after Set(64) = %d, want %d", m.Len(), 2*ChunkSize)
	}
	m.Set(200, 1)
	if m.Len() != 4*ChunkSize {
		t.Errorf("Len() after Set(200) = %d, want %d", m.Len(), 4*ChunkSize)
	}
	m.Get(10000)
	if m.Len() != 4*ChunkSize {
		t.Errorf("Get must not allocate, Len() = %d", m.Len())
	}
}

func TestMemoryWrapsMod256(t *testing.T) {
	m := NewMemory()
	m.Add(0, -1)
	if got := m.Get(0); got != 255 {
		t.Errorf("0 - 1 = %d, want 255", got)
	}
	m.Add(0, 2)
	if got := m.Get(0); got != 1 {
		t.Errorf("255 + 2 = %d, want 1", got)
	}
	m.Set(1, 300)
	if got := m.Get(1); got != 44 {
		t.Errorf("Set(300) = %d, want 44", got)
	}
}

func TestMemoryNegativeIndexes(t *testing.T) {
	m := NewMemory()
	m.Set(-1, 7)
	m.Set(-65, 9)
	m.Set(0, 3)
	items := m.Items()
	want := map[int]int{-1: 7, -65: 9, 0: 3}
	if len(items) != len(want) {
		t.Fatalf("Items() = %v, want %v", items, want)
	}
	for i, v := range want {
		if items[i] != v {
			t.Errorf("Items()[%d] = %d, want %d", i, items[i], v)
		}
	}
	idx := m.Indexes()
	if len(idx) != 3 || idx[0] != -65 || idx[1] != -1 || idx[2] != 0 {
		t.Errorf("Indexes() = %v", idx)
	}
}

func TestMemoryFarCellsAreSparse(t *testing.T) {
	m := NewMemory()
	m.Set(2_000_000_000, 5)
	m.Add(-2_000_000_001, -1)
	m.Set(DenseLimit, 1)
	m.Set(-DenseLimit-1, 2)
	if m.Len() != 5*ChunkSize {
		t.Errorf("Len() = %d, want %d", m.Len(), 5*ChunkSize)
	}
	want := map[int]int{2_000_000_000: 5, -2_000_000_001: 255, DenseLimit: 1, -DenseLimit - 1: 2}
	for i, v := range want {
		if got := m.Get(i); int(got) != v {
			t.Errorf("Get(%d) = %d, want %d", i, got, v)
		}
	}
	items := m.Items()
	if len(items) != len(want) {
		t.Fatalf("Items() = %v, want %v", items, want)
	}
	for i, v := range want {
		if items[i] != v {
			t.Errorf("Items()[%d] = %d, want %d", i, items[i], v)
		}
	}
	if got := m.Get(2_000_000_001); got != 0 {
		t.Errorf("neighbour of far cell = %d, want 0", got)
	}
}
