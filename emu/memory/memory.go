package memory

/*
 * PCISIM  - Host memory reachable by device DMA
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"errors"
	"sort"
	"sync"
)

const (
	MaxSize   uint32 = 16 * 1024 * 1024 // Largest host memory.
	allocBase uint32 = 0x1000           // First address handed out.
	allocAlgn uint32 = 8                // Buffer alignment.
)

var ErrNoSpace = errors.New("host memory exhausted")

type block struct {
	addr uint32
	size uint32
}

// Memory is the host side physical memory. Buffers are handed to the
// device by physical address, the device reads and writes them with DMA.
type Memory struct {
	mu   sync.Mutex
	mem  []byte
	size uint32
	used []block // Allocated buffers sorted by address.
}

// Create memory of size bytes, rounded up to a page.
func New(size uint32) *Memory {
	if size > MaxSize {
		size = MaxSize
	}
	size = (size + allocBase - 1) &^ (allocBase - 1)
	return &Memory{
		mem:  make([]byte, size),
		size: size,
	}
}

// Return size of memory in bytes.
func (m *Memory) Size() uint32 {
	return m.size
}

// Check if range is inside memory.
func (m *Memory) CheckRange(addr uint32, length uint32) bool {
	end := uint64(addr) + uint64(length)
	return end <= uint64(m.size)
}

// Copy memory at addr into p.
func (m *Memory) Read(addr uint32, p []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.CheckRange(addr, uint32(len(p))) {
		return true
	}
	copy(p, m.mem[addr:])
	return false
}

// Copy p into memory at addr.
func (m *Memory) Write(addr uint32, p []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.CheckRange(addr, uint32(len(p))) {
		return true
	}
	copy(m.mem[addr:], p)
	return false
}

// Allocate a buffer of n bytes, first fit.
func (m *Memory) Alloc(n uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n == 0 {
		n = 1
	}
	n = (n + allocAlgn - 1) &^ (allocAlgn - 1)
	addr := allocBase
	pos := 0
	for pos < len(m.used) {
		b := m.used[pos]
		if uint64(addr)+uint64(n) <= uint64(b.addr) {
			break
		}
		addr = b.addr + b.size
		pos++
	}
	if uint64(addr)+uint64(n) > uint64(m.size) {
		return 0, ErrNoSpace
	}
	m.used = append(m.used, block{})
	copy(m.used[pos+1:], m.used[pos:])
	m.used[pos] = block{addr: addr, size: n}
	return addr, nil
}

// Release buffer at addr.
func (m *Memory) Free(addr uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := sort.Search(len(m.used), func(i int) bool { return m.used[i].addr >= addr })
	if pos < len(m.used) && m.used[pos].addr == addr {
		m.used = append(m.used[:pos], m.used[pos+1:]...)
	}
}

// Number of buffers currently allocated.
func (m *Memory) InUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.used)
}
