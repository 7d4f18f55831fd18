package vm

import "sort"

// ChunkSize is the number of cells the tape grows by at a time.
const ChunkSize = 64

// DenseLimit is the distance from cell 0 up to which each half of the tape
// is kept as one contiguous slice. Cells further out live in individually
// allocated chunks, so a far jump costs one chunk.
const DenseLimit = 1 << 16

// Memory is a zero-initialized byte tape indexed by a signed cursor. Cells at
// non-negative indexes live in pos, negative ones in neg (index -1 is neg[0]),
// and both halves grow in ChunkSize steps as the cursor reaches them. Cells
// beyond DenseLimit in either direction are kept in far, keyed by chunk.
type Memory struct {
	pos []byte
	neg []byte
	far map[int]*[ChunkSize]byte
}

// NewMemory returns a tape with one chunk allocated.
func NewMemory() *Memory {
	return &Memory{pos: make([]byte, ChunkSize)}
}

func (m *Memory) cell(i int) *byte {
	if i >= DenseLimit || i < -DenseLimit {
		k, off := farChunk(i)
		c, ok := m.far[k]
		if !ok {
			if m.far == nil {
				m.far = make(map[int]*[ChunkSize]byte)
			}
			c = new([ChunkSize]byte)
			m.far[k] = c
		}
		return &c[off]
	}
	if i >= 0 {
		m.pos = grow(m.pos, i)
		return &m.pos[i]
	}
	j := -i - 1
	m.neg = grow(m.neg, j)
	return &m.neg[j]
}

// farChunk splits i into a chunk key and an offset, rounding toward
// negative infinity.
func farChunk(i int) (key, off int) {
	key = i / ChunkSize
	off = i % ChunkSize
	if off < 0 {
		key--
		off += ChunkSize
	}
	return key, off
}

func grow(b []byte, i int) []byte {
	if i < len(b) {
		return b
	}
	n := (i/ChunkSize + 1) * ChunkSize
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Get returns the value of cell i. Reading never allocates.
func (m *Memory) Get(i int) byte {
	if i >= DenseLimit || i < -DenseLimit {
		k, off := farChunk(i)
		if c, ok := m.far[k]; ok {
			return c[off]
		}
		return 0
	}
	if i >= 0 {
		if i < len(m.pos) {
			return m.pos[i]
		}
		return 0
	}
	if j := -i - 1; j < len(m.neg) {
		return m.neg[j]
	}
	return 0
}

// Set stores v mod 256 in cell i.
func (m *Memory) Set(i, v int) {
	*m.cell(i) = byte(v)
}

// Add adds delta to cell i, wrapping mod 256.
func (m *Memory) Add(i, delta int) {
	c := m.cell(i)
	*c = byte(int(*c) + delta)
}

// Len returns the number of allocated cells.
func (m *Memory) Len() int { return len(m.pos) + len(m.neg) + len(m.far)*ChunkSize }

// Items returns the non-zero cells as an index to value map.
func (m *Memory) Items() map[int]int {
	items := make(map[int]int)
	for i, v := range m.pos {
		if v != 0 {
			items[i] = int(v)
		}
	}
	for j, v := range m.neg {
		if v != 0 {
			items[-j-1] = int(v)
		}
	}
	for k, c := range m.far {
		for off, v := range c {
			if v != 0 {
				items[k*ChunkSize+off] = int(v)
			}
		}
	}
	return items
}

// Indexes returns the indexes of non-zero cells in ascending order.
func (m *Memory) Indexes() []int {
	items := m.Items()
	idx := make([]int, 0, len(items))
	for i := range items {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
