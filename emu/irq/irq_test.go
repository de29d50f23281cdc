/*
 * PCISIM - Interrupt latch tests.
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
	"testing"

	dev "github.com/rcornwell/pcisim/emu/device"
)

// Scenario: write once, read twice.
func TestEdgeConsume(t *testing.T) {
	for _, size := range []int{1, 2, 4, 8} {
		l := New(nil)
		l.Write(dev.IRQLatch, size, 1)
		r := l.Read(dev.IRQLatch, size)
		if r != 0 {
			t.Errorf("First read size %d got: %x expected: %x", size, r, 0)
		}
		r = l.Read(dev.IRQLatch, size)
		if r != dev.Sentinel(size) {
			t.Errorf("Second read size %d got: %x expected: %x", size, r, dev.Sentinel(size))
		}
	}
}

func TestReadWhenClear(t *testing.T) {
	l := New(nil)
	if r := l.Read(0, 4); r != 0xffffffff {
		t.Errorf("Read of clear latch got: %x expected: %x", r, 0xffffffff)
	}
}

func TestNotify(t *testing.T) {
	count := 0
	l := New(func() { count++ })
	l.Write(0x100, 1, 0)
	l.Write(0x0, 8, 0xdead)
	if count != 2 {
		t.Errorf("Notify count got: %d expected: %d", count, 2)
	}
	if !l.Pending() {
		t.Errorf("Latch not pending")
	}
	// Two writes still only one pending.
	if r := l.Read(0, 4); r != 0 {
		t.Errorf("First read got: %x expected: %x", r, 0)
	}
	if l.Pending() {
		t.Errorf("Latch still pending")
	}
}

func TestBadAccess(t *testing.T) {
	count := 0
	l := New(func() { count++ })
	l.Write(dev.IRQSize, 4, 1)
	l.Write(0, 3, 1)
	if count != 0 || l.Pending() {
		t.Errorf("Invalid write raised interrupt")
	}
	l.Write(0, 4, 1)
	if r := l.Read(dev.IRQSize, 4); r != 0xffffffff {
		t.Errorf("Read out of window got: %x", r)
	}
	if !l.Pending() {
		t.Errorf("Out of window read consumed latch")
	}
	l.Reset()
	if l.Pending() {
		t.Errorf("Reset did not clear latch")
	}
}
