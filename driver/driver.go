/*
 * PCISIM - Device driver.
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
	"log/slog"
	"sync"
	"time"

	"github.com/sigurn/crc8"

	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/memory"
	debug "github.com/rcornwell/pcisim/util/debug"
)

// How the driver learns a transfer has finished.
type Mode int

const (
	WaitIRQ  Mode = iota // Wait for interrupt edge.
	WaitPoll             // Poll interrupt latch.
)

func (m Mode) String() string {
	switch m {
	case WaitIRQ:
		return "IRQ"
	case WaitPoll:
		return "POLL"
	}
	return "UNKNOWN"
}

// Find mode by name.
func ModeByName(name string) (Mode, bool) {
	switch name {
	case "IRQ":
		return WaitIRQ, true
	case "POLL":
		return WaitPoll, true
	}
	return WaitIRQ, false
}

const (
	DefaultTimeout      = 100 * time.Millisecond
	DefaultPollInterval = 50 * time.Microsecond
)

type Options struct {
	Mode         Mode
	Timeout      time.Duration // Longest wait for completion.
	PollInterval time.Duration // Time between latch reads in poll mode.
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Mode:         WaitIRQ,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}
}

const (
	// Debug options.
	debugCmd = 1 << iota
	debugData
)

var debugOption = map[string]int{
	"CMD":  debugCmd,
	"DATA": debugData,
}

var crcTable = crc8.MakeTable(crc8.CRC8)

// Driver owns the device once probed. Stream transfers are serialized
// by the driver lock.
type Driver struct {
	mu       sync.Mutex
	ctrl     *controller.Controller
	mem      *memory.Memory
	opts     Options
	capacity uint32 // Bytes reachable through a stream.
	msi      bool   // Device interrupts on completion.
	log      *slog.Logger
	debugMsk int
}

// Probe checks every window is mapped and runs arithmetic self test.
func Probe(ctrl *controller.Controller, mem *memory.Memory, opts Options) (*Driver, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	d := &Driver{ctrl: ctrl, mem: mem, opts: opts, log: opts.Logger}
	if ctrl == nil || mem == nil {
		return nil, fmt.Errorf("%w: no device", dev.ErrMapFailed)
	}

	for w := dev.Window(0); w < dev.NumWindows; w++ {
		_, size, ok := ctrl.Bar(w)
		if !ok {
			d.log.Error("Failed to map region", "window", w.String())
			return nil, fmt.Errorf("%w: region %d %s", dev.ErrMapFailed, w, w)
		}
		d.log.Info("Region mapped", "region", int(w), "length", size)
	}
	_, d.capacity, _ = ctrl.Bar(dev.WindowDMA)
	d.msi = ctrl.MSI()
	if !d.msi {
		d.log.Warn("Completion interrupt disabled, polling DMA status", "mode", opts.Mode.String())
	}

	ctrl.Write(dev.WindowArith, dev.RegOp1, 4, 1)
	ctrl.Write(dev.WindowArith, dev.RegOp2, 4, 2)
	ctrl.Write(dev.WindowArith, dev.RegOpcode, 4, uint64(dev.OpAdd))
	result := ctrl.Read(dev.WindowArith, dev.RegResult, 4)
	d.log.Info("Read result from arithmetic window", "result", result)
	if result != 3 {
		d.log.Warn("Arithmetic self test failed", "result", result, "expected", 3)
	}
	return d, nil
}

// Number of bytes addressable through a stream.
func (d *Driver) Capacity() uint32 {
	return d.capacity
}

// Completion mode in use.
func (d *Driver) Mode() Mode {
	return d.opts.Mode
}

// Enable debug option.
func (d *Driver) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("driver debug option invalid: " + opt)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.debugMsk |= flag
	return nil
}

// Number of bytes a transfer of n at offset may move.
func (d *Driver) clamp(offset int64, n int) int {
	if n <= 0 || offset < 0 || offset >= int64(d.capacity) {
		return 0
	}
	return int(min(int64(n), int64(d.capacity)-offset))
}

// Transfer moves buf to or from the scratch buffer at offset using
// the DMA engine. A transfer buffer is taken from host memory for the
// duration of the call.
func (d *Driver) Transfer(dir uint32, buf []byte, offset uint32) error {
	if dir != dev.DirToDevice && dir != dev.DirFromDevice {
		return fmt.Errorf("%w: %d", dev.ErrBadDirection, dir)
	}
	if len(buf) == 0 {
		return nil
	}
	length := uint32(len(buf))

	d.mu.Lock()
	defer d.mu.Unlock()

	addr, err := d.mem.Alloc(length)
	if err != nil {
		return fmt.Errorf("%w: %d bytes: %w", dev.ErrNoMemory, length, err)
	}
	defer d.mem.Free(addr)

	src, dst := addr, offset
	if dir == dev.DirFromDevice {
		src, dst = offset, addr
	} else if d.mem.Write(addr, buf) {
		return dev.ErrHostFault
	}

	debug.Debugf("DRIVER", d.debugMsk, debugCmd, "dir %d buffer %08x offset %04x len %d", dir, addr, offset, length)

	// Discard any stale interrupt before starting.
	d.ctrl.DrainIRQ()
	d.ctrl.Read(dev.WindowIRQ, dev.IRQLatch, 4)

	// Status reads idle until the engine finishes.
	d.ctrl.Write(dev.WindowDMA, dev.DMAStatus, 4, uint64(dev.StatusIdle))
	d.ctrl.Write(dev.WindowDMA, dev.DMALen, 4, uint64(length))
	d.ctrl.Write(dev.WindowDMA, dev.DMASrc, 4, uint64(src))
	d.ctrl.Write(dev.WindowDMA, dev.DMADst, 4, uint64(dst))
	d.ctrl.Write(dev.WindowDMA, dev.DMACmd, 4, uint64(dev.CmdRun|(dir<<dev.CmdDirShift)))

	werr := d.wait()
	status := uint32(d.ctrl.Read(dev.WindowDMA, dev.DMAStatus, 4))
	if werr != nil {
		if status == dev.StatusIdle {
			d.log.Error("DMA transfer did not complete", "offset", offset, "length", length, "error", werr)
			return werr
		}
		// Engine finished, only the interrupt went missing.
		d.log.Warn("DMA completion interrupt not seen", "offset", offset, "length", length, "status", status)
	}
	if err := dev.StatusError(status); err != nil {
		debug.Debugf("DRIVER", d.debugMsk, debugCmd, "status %d", status)
		return err
	}

	if dir == dev.DirFromDevice && d.mem.Read(addr, buf) {
		return dev.ErrHostFault
	}
	debug.Debugf("DRIVER", d.debugMsk, debugData, "% x", buf[:min(len(buf), 16)])
	return nil
}

// Wait for end of transfer and acknowledge the interrupt. Without MSI
// the status register is polled instead of the latch.
func (d *Driver) wait() error {
	timeout := time.NewTimer(d.opts.Timeout)
	defer timeout.Stop()

	if d.opts.Mode == WaitIRQ && d.msi {
		select {
		case <-d.ctrl.IRQ():
			d.ctrl.Read(dev.WindowIRQ, dev.IRQLatch, 4)
			return nil
		case <-timeout.C:
			return dev.ErrTimeout
		}
	}

	poll := time.NewTicker(d.opts.PollInterval)
	defer poll.Stop()
	for {
		if d.msi {
			if d.ctrl.Read(dev.WindowIRQ, dev.IRQLatch, 4) == 0 {
				return nil
			}
		} else if d.ctrl.Read(dev.WindowDMA, dev.DMAStatus, 4) != uint64(dev.StatusIdle) {
			return nil
		}
		select {
		case <-poll.C:
		case <-timeout.C:
			return dev.ErrTimeout
		}
	}
}

// CRC-8 of data.
func Checksum(data []byte) uint8 {
	return crc8.Checksum(data, crcTable)
}
