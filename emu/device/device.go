/*
 * PCISIM - Device register contract.
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

package device

import "errors"

// Region is one register window of the device. Offsets are relative
// to the start of the window, size is the access width in bytes.
type Region interface {
	Read(offset uint32, size int) uint64
	Write(offset uint32, size int, value uint64)
	Size() uint32
	Reset()
}

// Window numbers, match the order the BARs are registered in.
type Window int

const (
	WindowArith Window = iota // Arithmetic unit.
	WindowDMA                 // DMA engine.
	WindowIRQ                 // Interrupt trigger.
	NumWindows
)

var windowNames = [NumWindows]string{"ARITH", "DMA", "IRQ"}

func (w Window) String() string {
	if w < 0 || w >= NumWindows {
		return "UNKNOWN"
	}
	return windowNames[w]
}

// Find window by name.
func WindowByName(name string) (Window, bool) {
	for i, n := range windowNames {
		if n == name {
			return Window(i), true
		}
	}
	return NumWindows, false
}

const (
	MiB uint32 = 1024 * 1024

	ArithSize   uint32 = 1 * MiB // Size of arithmetic window.
	DMASize     uint32 = 4096    // Size of DMA window.
	IRQSize     uint32 = 1 * MiB // Size of interrupt window.
	ScratchSize uint32 = 4096    // Size of DMA scratch buffer.

	PageShift        = 12
	PageSize  uint32 = 1 << PageShift

	VendorID uint16 = 0x1234 // Vendor of device.
	DeviceID uint16 = 0xABCD // Device identifier.
	Revision uint8  = 0x10   // Device revision.
)

// Arithmetic window registers.
const (
	RegOp1    uint32 = 0x10 // First operand.
	RegOp2    uint32 = 0x14 // Second operand.
	RegOpcode uint32 = 0x18 // Operation to perform.
	RegResult uint32 = 0x20 // Result, computed on read.
	RegError  uint32 = 0x24 // Error code of last result.
)

// Opcodes.
const (
	OpAdd uint32 = 0x00
	OpMul uint32 = 0x01
	OpDiv uint32 = 0x02
	OpSub uint32 = 0x03
)

// Error register values.
const (
	ErrNone    uint32 = 0 // Last result valid.
	ErrOpcode  uint32 = 1 // Opcode not recognized.
	ErrDivZero uint32 = 2 // Divide by zero.
)

// DMA window registers.
const (
	DMACmd    uint32 = 0x00 // Command register.
	DMASrc    uint32 = 0x04 // Source address.
	DMADst    uint32 = 0x08 // Destination address.
	DMALen    uint32 = 0x0C // Length of transfer.
	DMAStatus uint32 = 0x10 // Status of last transfer.
	DMARegEnd uint32 = 0x14 // End of register block.
)

// DMA command bits.
const (
	CmdRun      uint32 = 0x01 // Start transfer.
	CmdDirShift        = 1    // Direction field position.
	CmdDirMask  uint32 = 0x03 // Direction field mask.

	DirToDevice   uint32 = 0 // Host memory to scratch.
	DirFromDevice uint32 = 1 // Scratch to host memory.
)

// DMA status register values.
const (
	StatusIdle      uint32 = 0x00 // No transfer since reset.
	StatusDone      uint32 = 0x01 // Transfer completed.
	StatusBadDir    uint32 = 0x02 // Direction code invalid.
	StatusBounds    uint32 = 0x03 // Scratch range invalid.
	StatusHostFault uint32 = 0x04 // Host memory range invalid.
)

// Interrupt window registers.
const (
	IRQLatch uint32 = 0x00
)

var (
	ErrMapFailed    = errors.New("region mapping failed")
	ErrBadDirection = errors.New("invalid DMA direction")
	ErrBounds       = errors.New("DMA range outside scratch buffer")
	ErrHostFault    = errors.New("DMA range outside host memory")
	ErrTimeout      = errors.New("timed out waiting for DMA completion")
	ErrClosed       = errors.New("stream closed")
	ErrNoMemory     = errors.New("no host memory for transfer buffer")
)

// Return the value returned for invalid reads of size bytes.
func Sentinel(size int) uint64 {
	if size <= 0 || size >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (uint(size) * 8)) - 1
}

// Check if size is one of the allowed access widths.
func ValidWidth(size int, allowed ...int) bool {
	for _, a := range allowed {
		if size == a {
			return true
		}
	}
	return false
}

// Convert DMA status to error.
func StatusError(status uint32) error {
	switch status {
	case StatusDone:
		return nil
	case StatusBadDir:
		return ErrBadDirection
	case StatusBounds:
		return ErrBounds
	case StatusHostFault:
		return ErrHostFault
	}
	return errors.New("DMA did not complete")
}
