/*
 * PCISIM - Register commands
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	command "github.com/rcornwell/pcisim/command/command"
	dev "github.com/rcornwell/pcisim/emu/device"
)

var opcodes = map[string]uint32{
	"add": dev.OpAdd,
	"sub": dev.OpSub,
	"mul": dev.OpMul,
	"div": dev.OpDiv,
}

var errorNames = map[uint32]string{
	dev.ErrNone:    "none",
	dev.ErrOpcode:  "invalid opcode",
	dev.ErrDivZero: "divide by zero",
}

// Run one operation through the mapped arithmetic window.
func arith(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Arith")
	op1, err := line.getSized(32)
	if err != nil {
		return false, err
	}
	op2, err := line.getSized(32)
	if err != nil {
		return false, err
	}
	name := strings.ToLower(line.getWord())
	opcode, ok := opcodes[name]
	if !ok {
		code, err := strconv.ParseUint(name, 0, 32)
		if err != nil {
			return false, errors.New("operation must be add, sub, mul, div or a number: " + name)
		}
		opcode = uint32(code)
	}
	if err := line.done(); err != nil {
		return false, err
	}

	m, err := sess.Mapped()
	if err != nil {
		return false, err
	}
	if err := m.Store32(dev.RegOp1, uint32(op1)); err != nil {
		return false, err
	}
	if err := m.Store32(dev.RegOp2, uint32(op2)); err != nil {
		return false, err
	}
	if err := m.Store32(dev.RegOpcode, opcode); err != nil {
		return false, err
	}
	result, err := m.Load32(dev.RegResult)
	if err != nil {
		return false, err
	}
	code, err := m.Load32(dev.RegError)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(sess.Out, "Result %d (%08X) error %d %s\n", result, result, code, errorNames[code])
	return false, nil
}

// Map arithmetic window.
func mapWindow(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Map")
	length, err := line.getOptNumber(uint64(dev.ArithSize))
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	if length > uint64(dev.ArithSize) {
		return false, fmt.Errorf("%w: length %d", dev.ErrMapFailed, length)
	}
	m, err := sess.Drv.Map(uint32(length))
	if err != nil {
		return false, err
	}
	if sess.Mapping != nil {
		_ = sess.Mapping.Unmap()
	}
	sess.Mapping = m
	fmt.Fprintf(sess.Out, "Mapped pfn %X length %d\n", m.PFN(), m.Len())
	return false, nil
}

// Release mapping.
func unmapWindow(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Unmap")
	if err := line.done(); err != nil {
		return false, err
	}
	if sess.Mapping == nil {
		return false, errors.New("window not mapped")
	}
	err := sess.Mapping.Unmap()
	sess.Mapping = nil
	return false, err
}

// Read a register of any window.
func reg(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Reg")
	w, err := line.getWindow()
	if err != nil {
		return false, err
	}
	off, err := line.getSized(32)
	if err != nil {
		return false, err
	}
	width, err := line.getWidth(4)
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	value := sess.Ctrl.Read(w, uint32(off), width)
	fmt.Fprintf(sess.Out, "%s[%04X] = %0*X\n", w, off, width*2, value)
	return false, nil
}

// Write a register of any window.
func set(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Set")
	w, err := line.getWindow()
	if err != nil {
		return false, err
	}
	off, err := line.getSized(32)
	if err != nil {
		return false, err
	}
	if line.isEOL() {
		return false, errors.New("set requires width and value")
	}
	width, err := line.getWidth(4)
	if err != nil {
		return false, err
	}
	value, err := line.getSized(width * 8)
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	sess.Ctrl.Write(w, uint32(off), width, value)
	return false, nil
}

// Read interrupt latch, acknowledging any interrupt.
func latch(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Latch")
	if err := line.done(); err != nil {
		return false, err
	}
	value := sess.Ctrl.Read(dev.WindowIRQ, dev.IRQLatch, 4)
	if value == 0 {
		sess.Ctrl.DrainIRQ()
		fmt.Fprintln(sess.Out, "Interrupt acknowledged")
	} else {
		fmt.Fprintf(sess.Out, "No interrupt (%08X)\n", value)
	}
	return false, nil
}
