/*
 * PCISIM - Direct register mapping.
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

package driver

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
)

var (
	ErrUnmapped = errors.New("mapping released")
	ErrMapRange = errors.New("access outside mapping")
)

// Mapping is a direct view of the arithmetic window. Every load and
// store is one register transaction, nothing passes through the stream
// path. Access through a mapping is not ordered against stream transfers.
type Mapping struct {
	ctrl   *controller.Controller
	pfn    uint64 // First page frame.
	length uint32 // Bytes mapped, a multiple of the page size.
	gone   atomic.Bool
}

// Map length bytes of the arithmetic window from its first page.
func (d *Driver) Map(length uint32) (*Mapping, error) {
	base, size, ok := d.ctrl.Bar(dev.WindowArith)
	if !ok {
		return nil, fmt.Errorf("%w: %s not assigned", dev.ErrMapFailed, dev.WindowArith)
	}
	if length == 0 {
		return nil, fmt.Errorf("%w: empty mapping", dev.ErrMapFailed)
	}
	pages := (uint64(length) + uint64(dev.PageSize) - 1) >> dev.PageShift
	if pages<<dev.PageShift > uint64(size) {
		return nil, fmt.Errorf("%w: %d bytes exceeds window of %d", dev.ErrMapFailed, length, size)
	}
	m := &Mapping{
		ctrl:   d.ctrl,
		pfn:    base >> dev.PageShift,
		length: uint32(pages << dev.PageShift),
	}
	d.log.Debug("Window mapped", "pfn", fmt.Sprintf("%x", m.pfn), "length", m.length)
	return m, nil
}

// First page frame number.
func (m *Mapping) PFN() uint64 {
	return m.pfn
}

// Bytes covered.
func (m *Mapping) Len() uint32 {
	return m.length
}

// Release mapping.
func (m *Mapping) Unmap() error {
	if m.gone.Swap(true) {
		return ErrUnmapped
	}
	return nil
}

// Physical address of offset if access of size fits.
func (m *Mapping) addr(offset uint32, size int) (uint64, error) {
	if m.gone.Load() {
		return 0, ErrUnmapped
	}
	if uint64(offset)+uint64(size) > uint64(m.length) {
		return 0, fmt.Errorf("%w: %x", ErrMapRange, offset)
	}
	return m.pfn<<dev.PageShift + uint64(offset), nil
}

func (m *Mapping) Load32(offset uint32) (uint32, error) {
	a, err := m.addr(offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(m.ctrl.ReadPhys(a, 4)), nil
}

func (m *Mapping) Store32(offset uint32, value uint32) error {
	a, err := m.addr(offset, 4)
	if err != nil {
		return err
	}
	m.ctrl.WritePhys(a, 4, uint64(value))
	return nil
}

func (m *Mapping) Load64(offset uint32) (uint64, error) {
	a, err := m.addr(offset, 8)
	if err != nil {
		return 0, err
	}
	return m.ctrl.ReadPhys(a, 8), nil
}

func (m *Mapping) Store64(offset uint32, value uint64) error {
	a, err := m.addr(offset, 8)
	if err != nil {
		return err
	}
	m.ctrl.WritePhys(a, 8, value)
	return nil
}
