/*
 * PCISIM - Device contract tests.
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

import (
	"errors"
	"testing"
)

func TestSentinel(t *testing.T) {
	want := map[int]uint64{
		1: 0xff,
		2: 0xffff,
		4: 0xffffffff,
		8: 0xffffffffffffffff,
	}
	for size, v := range want {
		r := Sentinel(size)
		if r != v {
			t.Errorf("Sentinel size %d got: %x expected: %x", size, r, v)
		}
	}
}

func TestValidWidth(t *testing.T) {
	if !ValidWidth(4, 4, 8) {
		t.Errorf("Width 4 not valid")
	}
	if ValidWidth(2, 4, 8) {
		t.Errorf("Width 2 valid")
	}
}

func TestWindowNames(t *testing.T) {
	for w := WindowArith; w < NumWindows; w++ {
		n, ok := WindowByName(w.String())
		if !ok || n != w {
			t.Errorf("Window lookup %s got: %d expected: %d", w, n, w)
		}
	}
	if _, ok := WindowByName("BOGUS"); ok {
		t.Errorf("Window lookup of BOGUS succeeded")
	}
}

func TestStatusError(t *testing.T) {
	if err := StatusError(StatusDone); err != nil {
		t.Errorf("Done status returned error: %v", err)
	}
	if err := StatusError(StatusBadDir); !errors.Is(err, ErrBadDirection) {
		t.Errorf("Bad direction got: %v", err)
	}
	if err := StatusError(StatusBounds); !errors.Is(err, ErrBounds) {
		t.Errorf("Bounds got: %v", err)
	}
	if err := StatusError(StatusHostFault); !errors.Is(err, ErrHostFault) {
		t.Errorf("Host fault got: %v", err)
	}
	if err := StatusError(StatusIdle); err == nil {
		t.Errorf("Idle status returned no error")
	}
}
