/*
 * PCISIM - Interrupt trigger latch.
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

package irq

import (
	"errors"

	dev "github.com/rcornwell/pcisim/emu/device"
	debug "github.com/rcornwell/pcisim/util/debug"
)

const (
	// Debug options.
	debugCmd = 1 << iota
	debugDetail
)

var debugOption = map[string]int{
	"CMD":    debugCmd,
	"DETAIL": debugDetail,
}

// Latch is set by any write to the window and cleared by the first read
// after that. The notify function is the interrupt line, it is called
// on every write.
type Latch struct {
	pending  bool   // Interrupt waiting to be read.
	notify   func() // Interrupt line.
	debugMsk int    // Debug option mask.
}

// Create latch with interrupt line notify, which may be nil.
func New(notify func()) *Latch {
	return &Latch{notify: notify}
}

// Clear pending flag.
func (l *Latch) Reset() {
	l.pending = false
}

// Size of window.
func (l *Latch) Size() uint32 {
	return dev.IRQSize
}

// Enable debug options.
func (l *Latch) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("irq debug option invalid: " + opt)
	}
	l.debugMsk |= flag
	return nil
}

// Read consumes the pending flag. Returns 0 if it was set, otherwise
// all ones of the access width.
func (l *Latch) Read(offset uint32, size int) uint64 {
	if !dev.ValidWidth(size, 1, 2, 4, 8) || offset >= dev.IRQSize {
		return dev.Sentinel(size)
	}
	if l.pending {
		l.pending = false
		debug.Debugf("IRQ", l.debugMsk, debugCmd, "acknowledge")
		return 0
	}
	debug.Debugf("IRQ", l.debugMsk, debugDetail, "read, none pending")
	return dev.Sentinel(size)
}

// Write sets the pending flag and signals the interrupt line.
func (l *Latch) Write(offset uint32, size int, value uint64) {
	if !dev.ValidWidth(size, 1, 2, 4, 8) || offset >= dev.IRQSize {
		return
	}
	l.pending = true
	debug.Debugf("IRQ", l.debugMsk, debugCmd, "raise %x", value)
	if l.notify != nil {
		l.notify()
	}
}

// Check pending flag without clearing it.
func (l *Latch) Pending() bool {
	return l.pending
}
