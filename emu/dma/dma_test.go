/*
 * PCISIM - DMA engine tests.
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

package dma

import (
	"bytes"
	"testing"

	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/memory"
)

type dmaTest struct {
	mem    *memory.Memory
	engine *Engine
	status []uint32
}

func newTest() *dmaTest {
	test := &dmaTest{mem: memory.New(64 * 1024)}
	test.engine = New(test.mem)
	test.engine.SetDone(func(status uint32) {
		test.status = append(test.status, status)
	})
	return test
}

// Program registers and start transfer.
func (test *dmaTest) start(dir, src, dst, length uint32) {
	test.engine.Write(dev.DMALen, 4, uint64(length))
	test.engine.Write(dev.DMASrc, 4, uint64(src))
	test.engine.Write(dev.DMADst, 4, uint64(dst))
	test.engine.Write(dev.DMACmd, 4, uint64(dev.CmdRun|(dir<<dev.CmdDirShift)))
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 3)
	}
	return p
}

func TestRegisterWidths(t *testing.T) {
	e := New(nil)
	e.Write(dev.DMASrc, 4, 0x12345678)
	if r := e.Read(dev.DMASrc, 1); r != 0x78 {
		t.Errorf("Byte read got: %x expected: %x", r, 0x78)
	}
	if r := e.Read(dev.DMASrc+2, 2); r != 0x1234 {
		t.Errorf("Half read got: %x expected: %x", r, 0x1234)
	}
	e.Write(dev.DMASrc+1, 1, 0xaa)
	if r := e.Read(dev.DMASrc, 4); r != 0x1234aa78 {
		t.Errorf("Word read got: %x expected: %x", r, 0x1234aa78)
	}
	e.Write(dev.DMADst, 8, 0x0000100000002000)
	if r := e.Read(dev.DMADst, 4); r != 0x2000 {
		t.Errorf("Dst got: %x expected: %x", r, 0x2000)
	}
	if r := e.Read(dev.DMALen, 4); r != 0x1000 {
		t.Errorf("Len got: %x expected: %x", r, 0x1000)
	}
	if r := e.Read(dev.DMASrc, 8); r != 0x000020001234aa78 {
		t.Errorf("8 byte read got: %x", r)
	}
}

func TestBadAccess(t *testing.T) {
	e := New(nil)
	if r := e.Read(dev.DMARegEnd, 4); r != 0xffffffff {
		t.Errorf("Read past registers got: %x", r)
	}
	if r := e.Read(dev.DMAStatus, 8); r != 0xffffffffffffffff {
		t.Errorf("Read across end got: %x", r)
	}
	if r := e.Read(0, 3); r != 0xffffff {
		t.Errorf("Read size 3 got: %x", r)
	}
	if r := e.Read(0xff0, 1); r != 0xff {
		t.Errorf("Read in window got: %x", r)
	}
	e.Write(dev.DMARegEnd, 4, 1)
	e.Write(0xffc, 4, 1)
}

// Write then read back through the scratch buffer.
func TestRoundTrip(t *testing.T) {
	test := newTest()
	data := pattern(int(dev.ScratchSize))
	test.mem.Write(0x2000, data)
	test.start(dev.DirToDevice, 0x2000, 0, dev.ScratchSize)
	if !bytes.Equal(test.engine.Scratch(0, dev.ScratchSize), data) {
		t.Errorf("Scratch does not match data")
	}
	test.start(dev.DirFromDevice, 0, 0x8000, dev.ScratchSize)
	out := make([]byte, dev.ScratchSize)
	test.mem.Read(0x8000, out)
	if !bytes.Equal(out, data) {
		t.Errorf("Host memory does not match data")
	}
	if len(test.status) != 2 || test.status[0] != dev.StatusDone || test.status[1] != dev.StatusDone {
		t.Errorf("Status got: %v", test.status)
	}
	s := test.engine.Stats()
	if s.Transfers != 2 || s.ToDevice != uint64(dev.ScratchSize) || s.FromDevice != uint64(dev.ScratchSize) || s.Errors != 0 {
		t.Errorf("Stats got: %+v", s)
	}
}

// Reset returns to power on state, statistics included.
func TestReset(t *testing.T) {
	test := newTest()
	test.start(dev.DirToDevice, 0x2000, 0, 64)
	test.start(2, 0x2000, 0, 64)
	test.engine.Reset()
	if s := test.engine.Stats(); s != (Stats{}) {
		t.Errorf("Stats after reset got: %+v", s)
	}
	if r := test.engine.Read(dev.DMAStatus, 4); r != uint64(dev.StatusIdle) {
		t.Errorf("Status after reset got: %d expected: %d", r, dev.StatusIdle)
	}
	if r := test.engine.Read(dev.DMALen, 4); r != 0 {
		t.Errorf("Length after reset got: %d expected: %d", r, 0)
	}
}

// Run bit clears and status is readable.
func TestCommandStatus(t *testing.T) {
	test := newTest()
	test.start(dev.DirToDevice, 0x1000, 16, 16)
	if r := test.engine.Read(dev.DMACmd, 4); r&uint64(dev.CmdRun) != 0 {
		t.Errorf("Run bit still set: %x", r)
	}
	if r := test.engine.Read(dev.DMAStatus, 4); r != uint64(dev.StatusDone) {
		t.Errorf("Status got: %x expected: %x", r, dev.StatusDone)
	}
	test.engine.Write(dev.DMAStatus, 1, 0)
	if r := test.engine.Read(dev.DMAStatus, 4); r != uint64(dev.StatusIdle) {
		t.Errorf("Status after clear got: %x expected: %x", r, dev.StatusIdle)
	}
	// Writing without run bit does nothing.
	test.engine.Write(dev.DMACmd, 4, uint64(dev.DirFromDevice<<dev.CmdDirShift))
	if len(test.status) != 1 {
		t.Errorf("Transfer without run bit, status: %v", test.status)
	}
}

// Each run write performs exactly one transfer.
func TestOneTransferPerRun(t *testing.T) {
	test := newTest()
	test.mem.Write(0x1000, []byte{1, 2, 3, 4})
	for i := 0; i < 3; i++ {
		test.engine.Write(dev.DMACmd, 1, uint64(dev.CmdRun))
	}
	if len(test.status) != 3 {
		t.Errorf("Transfers got: %d expected: %d", len(test.status), 3)
	}
	if test.engine.Stats().Transfers != 3 {
		t.Errorf("Stats transfers got: %d expected: %d", test.engine.Stats().Transfers, 3)
	}
}

// Invalid direction must not touch scratch buffer.
func TestBadDirection(t *testing.T) {
	for _, dir := range []uint32{2, 3} {
		test := newTest()
		test.engine.Fill(0, 0x5a, dev.ScratchSize)
		test.mem.Write(0x1000, pattern(64))
		test.start(dir, 0x1000, 0, 64)
		if len(test.status) != 1 || test.status[0] != dev.StatusBadDir {
			t.Errorf("Direction %d status got: %v", dir, test.status)
		}
		for i, b := range test.engine.Scratch(0, dev.ScratchSize) {
			if b != 0x5a {
				t.Errorf("Direction %d scratch changed at %d: %02x", dir, i, b)
				break
			}
		}
		if test.engine.Stats().Errors != 1 {
			t.Errorf("Errors got: %d expected: %d", test.engine.Stats().Errors, 1)
		}
	}
}

// Transfers past end of scratch are rejected.
func TestBounds(t *testing.T) {
	test := newTest()
	test.engine.Fill(0, 0x11, dev.ScratchSize)
	test.start(dev.DirToDevice, 0x1000, dev.ScratchSize-8, 16)
	if test.status[0] != dev.StatusBounds {
		t.Errorf("Status got: %d expected: %d", test.status[0], dev.StatusBounds)
	}
	test.start(dev.DirFromDevice, 0xffffffff, 0x1000, 2)
	if test.status[1] != dev.StatusBounds {
		t.Errorf("Status got: %d expected: %d", test.status[1], dev.StatusBounds)
	}
	test.start(dev.DirToDevice, 64*1024-4, 0, 8)
	if test.status[2] != dev.StatusHostFault {
		t.Errorf("Status got: %d expected: %d", test.status[2], dev.StatusHostFault)
	}
	for _, b := range test.engine.Scratch(0, dev.ScratchSize) {
		if b != 0x11 {
			t.Errorf("Scratch changed by rejected transfer")
			break
		}
	}
	// Exactly to the end is fine.
	test.start(dev.DirToDevice, 0x1000, dev.ScratchSize-8, 8)
	if test.status[3] != dev.StatusDone {
		t.Errorf("Status got: %d expected: %d", test.status[3], dev.StatusDone)
	}
}

func TestNoHostMemory(t *testing.T) {
	e := New(nil)
	e.Write(dev.DMALen, 4, 4)
	e.Write(dev.DMACmd, 4, uint64(dev.CmdRun))
	if r := e.Read(dev.DMAStatus, 4); r != uint64(dev.StatusHostFault) {
		t.Errorf("Status got: %x expected: %x", r, dev.StatusHostFault)
	}
}

func TestScratchHelpers(t *testing.T) {
	e := New(nil)
	e.Fill(dev.ScratchSize-2, 0x33, 100)
	s := e.Scratch(dev.ScratchSize-4, 100)
	if len(s) != 4 || s[0] != 0 || s[2] != 0x33 || s[3] != 0x33 {
		t.Errorf("Scratch tail got: %v", s)
	}
	if e.Scratch(dev.ScratchSize, 1) != nil {
		t.Errorf("Scratch past end not nil")
	}
	e.Reset()
	if e.Scratch(dev.ScratchSize-1, 1)[0] != 0 {
		t.Errorf("Reset did not clear scratch")
	}
}
