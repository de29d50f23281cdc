/*
 * PCISIM - DMA engine.
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
	"encoding/binary"
	"errors"

	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/memory"
	debug "github.com/rcornwell/pcisim/util/debug"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
	debugDetail
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DATA":   debugData,
	"DETAIL": debugDetail,
}

// Transfer statistics.
type Stats struct {
	Transfers  uint64 // Run commands seen.
	ToDevice   uint64 // Bytes moved into scratch buffer.
	FromDevice uint64 // Bytes moved out of scratch buffer.
	Errors     uint64 // Transfers rejected.
}

// Engine is the DMA controller. The registers are kept as a byte image
// so any access width can be applied to them. Setting the run bit in
// the command register does the whole transfer before the write returns.
type Engine struct {
	regs     [dev.DMARegEnd]byte   // Register image.
	scratch  [dev.ScratchSize]byte // Device memory.
	mem      *memory.Memory        // Host memory for external addresses.
	done     func(status uint32)   // Called at end of each transfer.
	stats    Stats
	debugMsk int // Debug option mask.
}

// Create DMA engine against host memory.
func New(mem *memory.Memory) *Engine {
	return &Engine{mem: mem}
}

// Set completion function.
func (e *Engine) SetDone(done func(status uint32)) {
	e.done = done
}

// Clear registers, scratch buffer and statistics.
func (e *Engine) Reset() {
	clear(e.regs[:])
	clear(e.scratch[:])
	e.stats = Stats{}
}

// Size of window.
func (e *Engine) Size() uint32 {
	return dev.DMASize
}

// Enable debug options.
func (e *Engine) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("dma debug option invalid: " + opt)
	}
	e.debugMsk |= flag
	return nil
}

// Check access is inside register block.
func validAccess(offset uint32, size int) bool {
	if !dev.ValidWidth(size, 1, 2, 4, 8) {
		return false
	}
	return uint64(offset)+uint64(size) <= uint64(dev.DMARegEnd)
}

// Read value of size bytes from register image.
func (e *Engine) Read(offset uint32, size int) uint64 {
	if !validAccess(offset, size) {
		debug.DebugRegf("DMA", offset, e.debugMsk, debugDetail, "bad read size %d", size)
		return dev.Sentinel(size)
	}
	var value uint64
	for i := size - 1; i >= 0; i-- {
		value = (value << 8) | uint64(e.regs[offset+uint32(i)])
	}
	debug.DebugRegf("DMA", offset, e.debugMsk, debugDetail, "read %x", value)
	return value
}

// Write value into register image, then act on status and command.
func (e *Engine) Write(offset uint32, size int, value uint64) {
	if !validAccess(offset, size) {
		debug.DebugRegf("DMA", offset, e.debugMsk, debugDetail, "bad write size %d", size)
		return
	}
	debug.DebugRegf("DMA", offset, e.debugMsk, debugDetail, "write %x", value)
	for i := 0; i < size; i++ {
		e.regs[offset+uint32(i)] = uint8(value >> (8 * i))
	}
	end := offset + uint32(size)

	// Any write to status clears it.
	if end > dev.DMAStatus {
		e.setReg(dev.DMAStatus, dev.StatusIdle)
	}

	if offset < dev.DMACmd+4 && (e.reg(dev.DMACmd)&dev.CmdRun) != 0 {
		e.run()
	}
}

func (e *Engine) reg(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(e.regs[offset:])
}

func (e *Engine) setReg(offset uint32, value uint32) {
	binary.LittleEndian.PutUint32(e.regs[offset:], value)
}

// Perform one transfer.
func (e *Engine) run() {
	cmd := e.reg(dev.DMACmd)
	src := e.reg(dev.DMASrc)
	dst := e.reg(dev.DMADst)
	length := e.reg(dev.DMALen)
	dir := (cmd >> dev.CmdDirShift) & dev.CmdDirMask

	debug.Debugf("DMA", e.debugMsk, debugCmd, "cmd %08x src %08x dst %08x len %d", cmd, src, dst, length)
	e.stats.Transfers++

	status := e.transfer(dir, src, dst, length)
	if status != dev.StatusDone {
		e.stats.Errors++
	}

	// Run bit clears when transfer finishes.
	e.setReg(dev.DMACmd, cmd&^dev.CmdRun)
	e.setReg(dev.DMAStatus, status)
	debug.Debugf("DMA", e.debugMsk, debugCmd, "status %d", status)
	if e.done != nil {
		e.done(status)
	}
}

// Move data between host memory and scratch buffer.
func (e *Engine) transfer(dir, src, dst, length uint32) uint32 {
	var internal, external uint32
	switch dir {
	case dev.DirToDevice:
		external, internal = src, dst
	case dev.DirFromDevice:
		internal, external = src, dst
	default:
		return dev.StatusBadDir
	}

	if uint64(internal)+uint64(length) > uint64(len(e.scratch)) {
		return dev.StatusBounds
	}
	if e.mem == nil || !e.mem.CheckRange(external, length) {
		return dev.StatusHostFault
	}

	window := e.scratch[internal : internal+length]
	if dir == dev.DirToDevice {
		if e.mem.Read(external, window) {
			return dev.StatusHostFault
		}
		e.stats.ToDevice += uint64(length)
	} else {
		if e.mem.Write(external, window) {
			return dev.StatusHostFault
		}
		e.stats.FromDevice += uint64(length)
	}
	debug.Debugf("DMA", e.debugMsk, debugData, "moved %d bytes", length)
	return dev.StatusDone
}

// Return transfer statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Copy of scratch buffer starting at offset.
func (e *Engine) Scratch(offset uint32, length uint32) []byte {
	if offset >= uint32(len(e.scratch)) {
		return nil
	}
	end := min(uint64(offset)+uint64(length), uint64(len(e.scratch)))
	out := make([]byte, end-uint64(offset))
	copy(out, e.scratch[offset:end])
	return out
}

// Set scratch buffer from offset to value.
func (e *Engine) Fill(offset uint32, value byte, length uint32) {
	if offset >= uint32(len(e.scratch)) {
		return
	}
	end := min(uint64(offset)+uint64(length), uint64(len(e.scratch)))
	for i := uint64(offset); i < end; i++ {
		e.scratch[i] = value
	}
}
