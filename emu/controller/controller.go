/*
 * PCISIM - Peripheral controller.
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

package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rcornwell/pcisim/emu/arith"
	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/dma"
	"github.com/rcornwell/pcisim/emu/event"
	"github.com/rcornwell/pcisim/emu/irq"
	"github.com/rcornwell/pcisim/emu/memory"
)

// Default physical addresses of windows.
const (
	DefaultArithBase uint64 = 0xfe000000
	DefaultDMABase   uint64 = 0xfe100000
	DefaultIRQBase   uint64 = 0xfe200000
)

// Config describes how the device is brought up.
type Config struct {
	Bars    [dev.NumWindows]uint64 // Base physical address of each window.
	MSI     bool                   // Signal DMA completion on interrupt window.
	Latency int                    // Ticks from end of transfer to interrupt.
	Memory  *memory.Memory         // Host memory for DMA.
	Logger  *slog.Logger
}

// Default configuration.
func DefaultConfig(mem *memory.Memory) Config {
	return Config{
		Bars:   [dev.NumWindows]uint64{DefaultArithBase, DefaultDMABase, DefaultIRQBase},
		MSI:    true,
		Memory: mem,
	}
}

type debugger interface {
	Debug(opt string) error
}

type bar struct {
	base uint64
	size uint32
}

// Controller joins the three register windows into one device. All
// transactions go through one lock, matching a single register bank.
//
// Direct register access through a mapping is not ordered against DMA
// transfers issued by the driver; a caller mixing the two on the same
// registers sees whatever order the lock grants.
type Controller struct {
	mu      sync.Mutex
	arith   *arith.Unit
	dma     *dma.Engine
	latch   *irq.Latch
	regions [dev.NumWindows]dev.Region
	bars    [dev.NumWindows]bar
	events  event.List
	msi     bool
	latency int
	irqLine chan struct{} // Edge of interrupt line.
	edges   atomic.Uint64 // Number of edges seen.
	log     *slog.Logger
}

// Bring up device. Scratch buffer is cleared, registers set to defaults
// then windows are registered.
func New(cfg Config) (*Controller, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		msi:     cfg.MSI,
		latency: cfg.Latency,
		irqLine: make(chan struct{}, 1),
		log:     log,
	}

	c.dma = dma.New(cfg.Memory)
	c.dma.Reset()
	c.arith = arith.New()
	c.latch = irq.New(c.raise)
	c.dma.SetDone(c.dmaDone)

	c.regions[dev.WindowArith] = c.arith
	c.regions[dev.WindowDMA] = c.dma
	c.regions[dev.WindowIRQ] = c.latch

	for w := dev.Window(0); w < dev.NumWindows; w++ {
		if err := c.register(w, cfg.Bars[w]); err != nil {
			log.Error("Device bring up failed", "error", err)
			return nil, err
		}
	}
	log.Info("Device ready", "vendor", fmt.Sprintf("%04x", dev.VendorID),
		"device", fmt.Sprintf("%04x", dev.DeviceID))
	return c, nil
}

// Place window at base address.
func (c *Controller) register(w dev.Window, base uint64) error {
	size := c.regions[w].Size()
	switch {
	case base == 0:
		return fmt.Errorf("%w: BAR%d %s not assigned", dev.ErrMapFailed, w, w)
	case base%uint64(size) != 0 || base%uint64(dev.PageSize) != 0:
		return fmt.Errorf("%w: BAR%d %s base %x not aligned to %x", dev.ErrMapFailed, w, w, base, size)
	case base+uint64(size) < base:
		return fmt.Errorf("%w: BAR%d %s base %x wraps", dev.ErrMapFailed, w, w, base)
	}
	for o := dev.Window(0); o < w; o++ {
		ob := c.bars[o]
		if base < ob.base+uint64(ob.size) && ob.base < base+uint64(size) {
			return fmt.Errorf("%w: BAR%d %s overlaps %s", dev.ErrMapFailed, w, w, o)
		}
	}
	c.bars[w] = bar{base: base, size: size}
	c.log.Debug("Region mapped", "window", w.String(), "base", fmt.Sprintf("%x", base), "size", size)
	return nil
}

// Return base and size of window.
func (c *Controller) Bar(w dev.Window) (uint64, uint32, bool) {
	if w < 0 || w >= dev.NumWindows {
		return 0, 0, false
	}
	b := c.bars[w]
	return b.base, b.size, b.size != 0
}

// Find window holding physical address.
func (c *Controller) Lookup(phys uint64) (dev.Window, uint32, bool) {
	for w, b := range c.bars {
		if b.size != 0 && phys >= b.base && phys < b.base+uint64(b.size) {
			return dev.Window(w), uint32(phys - b.base), true
		}
	}
	return dev.NumWindows, 0, false
}

// Read size bytes from window at offset.
func (c *Controller) Read(w dev.Window, offset uint32, size int) uint64 {
	if w < 0 || w >= dev.NumWindows {
		return dev.Sentinel(size)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regions[w].Read(offset, size)
}

// Write size bytes of value to window at offset.
func (c *Controller) Write(w dev.Window, offset uint32, size int, value uint64) {
	if w < 0 || w >= dev.NumWindows {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions[w].Write(offset, size, value)
}

// Read by physical address.
func (c *Controller) ReadPhys(phys uint64, size int) uint64 {
	w, offset, ok := c.Lookup(phys)
	if !ok {
		return dev.Sentinel(size)
	}
	return c.Read(w, offset, size)
}

// Write by physical address.
func (c *Controller) WritePhys(phys uint64, size int, value uint64) {
	w, offset, ok := c.Lookup(phys)
	if ok {
		c.Write(w, offset, size, value)
	}
}

// Called by DMA engine with lock held at end of each transfer.
func (c *Controller) dmaDone(status uint32) {
	if !c.msi {
		return
	}
	c.events.AddEvent(c.postMSI, c.latency, int(status))
}

// Message signalled interrupt, a write to the interrupt window.
func (c *Controller) postMSI(status int) {
	c.latch.Write(dev.IRQLatch, 4, uint64(status))
}

// Interrupt line from the latch.
func (c *Controller) raise() {
	c.edges.Add(1)
	select {
	case c.irqLine <- struct{}{}:
	default:
	}
}

// Channel receiving one value per interrupt edge. Edges that arrive
// while one is still unread are merged.
func (c *Controller) IRQ() <-chan struct{} {
	return c.irqLine
}

// Discard any edge not yet received.
func (c *Controller) DrainIRQ() {
	select {
	case <-c.irqLine:
	default:
	}
}

// Number of interrupt edges since bring up.
func (c *Controller) Edges() uint64 {
	return c.edges.Load()
}

// Advance device time by n ticks.
func (c *Controller) Tick(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events.Advance(n)
}

// Number of interrupts waiting for delivery.
func (c *Controller) PendingEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.Pending()
}

// Return device to power on state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events.Clear()
	for _, r := range c.regions {
		r.Reset()
	}
	c.DrainIRQ()
	c.log.Info("Device reset")
}

// True if DMA completion is signalled on the interrupt window.
func (c *Controller) MSI() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msi
}

// Set interrupt delivery latency.
func (c *Controller) SetLatency(ticks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency = ticks
}

// Copy of scratch buffer.
func (c *Controller) Scratch(offset uint32, length uint32) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dma.Scratch(offset, length)
}

// Fill scratch buffer.
func (c *Controller) Fill(offset uint32, value byte, length uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dma.Fill(offset, value, length)
}

// DMA statistics.
func (c *Controller) DMAStats() dma.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dma.Stats()
}

// Check interrupt pending without acknowledging it.
func (c *Controller) IRQPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latch.Pending()
}

// Enable debug option on window.
func (c *Controller) Debug(w dev.Window, opt string) error {
	if w < 0 || w >= dev.NumWindows {
		return errors.New("debug window invalid")
	}
	d, ok := c.regions[w].(debugger)
	if !ok {
		return errors.New("window has no debug options: " + w.String())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return d.Debug(opt)
}
