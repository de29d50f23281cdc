/*
 * PCISIM - Arithmetic unit register file.
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

package arith

import (
	"errors"

	dev "github.com/rcornwell/pcisim/emu/device"
	debug "github.com/rcornwell/pcisim/util/debug"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

// Reset values of registers.
const (
	defOp1    uint32 = 0x02
	defOp2    uint32 = 0x04
	defOpcode uint32 = 0xAA // Not a valid opcode.
	defResult uint32 = 0xBB
)

// Unit holds the state of the arithmetic unit. The result register is
// only computed when it is read.
type Unit struct {
	op1      uint32 // First operand.
	op2      uint32 // Second operand.
	opcode   uint32 // Operation.
	result   uint32 // Last result.
	errCode  uint32 // Error of last result.
	debugMsk int    // Debug option mask.
}

// Create arithmetic unit in reset state.
func New() *Unit {
	u := &Unit{}
	u.Reset()
	return u
}

// Set registers to power on values.
func (u *Unit) Reset() {
	u.op1 = defOp1
	u.op2 = defOp2
	u.opcode = defOpcode
	u.result = defResult
	u.errCode = dev.ErrNone
}

// Size of window.
func (u *Unit) Size() uint32 {
	return dev.ArithSize
}

// Enable debug options.
func (u *Unit) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("arith debug option invalid: " + opt)
	}
	u.debugMsk |= flag
	return nil
}

// Read a register, reading result will compute it.
func (u *Unit) Read(offset uint32, size int) uint64 {
	if !dev.ValidWidth(size, 4, 8) || offset >= dev.ArithSize {
		debug.Debugf("ARITH", u.debugMsk, debugCmd, "bad read %05x size %d", offset, size)
		return dev.Sentinel(size)
	}

	var value uint32
	switch offset {
	case dev.RegOp1:
		value = u.op1
	case dev.RegOp2:
		value = u.op2
	case dev.RegOpcode:
		value = u.opcode
	case dev.RegResult:
		u.compute()
		value = u.result
	case dev.RegError:
		value = u.errCode
	default:
		return dev.Sentinel(size)
	}
	debug.Debugf("ARITH", u.debugMsk, debugData, "read %02x = %08x", offset, value)
	return uint64(value)
}

// Write a register. Values are not checked.
func (u *Unit) Write(offset uint32, size int, value uint64) {
	if !dev.ValidWidth(size, 4, 8) {
		debug.Debugf("ARITH", u.debugMsk, debugCmd, "bad write %05x size %d", offset, size)
		return
	}
	debug.Debugf("ARITH", u.debugMsk, debugData, "write %02x = %08x", offset, value)
	switch offset {
	case dev.RegOp1:
		u.op1 = uint32(value)
	case dev.RegOp2:
		u.op2 = uint32(value)
	case dev.RegOpcode:
		u.opcode = uint32(value)
	}
}

// Compute result of current operation. Each computation replaces the
// error code, so a good result clears a previous error.
func (u *Unit) compute() {
	u.errCode = dev.ErrNone
	switch u.opcode {
	case dev.OpAdd:
		u.result = u.op1 + u.op2
	case dev.OpSub:
		u.result = u.op1 - u.op2
	case dev.OpMul:
		u.result = u.op1 * u.op2
	case dev.OpDiv:
		if u.op2 == 0 {
			u.result = 0
			u.errCode = dev.ErrDivZero
			break
		}
		u.result = u.op1 / u.op2
	default:
		u.result = 0
		u.errCode = dev.ErrOpcode
	}
	debug.Debugf("ARITH", u.debugMsk, debugCmd, "op %02x %08x, %08x = %08x err %d",
		u.opcode, u.op1, u.op2, u.result, u.errCode)
}
