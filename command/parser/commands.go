/*
 * PCISIM - Console commands
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
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	command "github.com/rcornwell/pcisim/command/command"
	"github.com/rcornwell/pcisim/config/debugconfig"
	"github.com/rcornwell/pcisim/driver"
	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/util/hex"
)

var cmdList []cmd

func init() {
	cmdList = []cmd{
		{Name: "read", Min: 3, Help: "read <n>", Process: read},
		{Name: "write", Min: 1, Help: "write <text>", Process: write},
		{Name: "fill", Min: 2, Help: "fill <byte> <n>", Process: fill},
		{Name: "seek", Min: 2, Help: "seek <offset>", Process: seek},
		{Name: "crc", Min: 1, Help: "crc", Process: crc},
		{Name: "dump", Min: 2, Help: "dump [offset] [length]", Process: dump},
		{Name: "arith", Min: 1, Help: "arith <op1> <op2> <add|sub|mul|div|code>", Process: arith, Complete: arithComplete},
		{Name: "map", Min: 1, Help: "map [length]", Process: mapWindow},
		{Name: "unmap", Min: 1, Help: "unmap", Process: unmapWindow},
		{Name: "reg", Min: 3, Help: "reg <window> <offset> [width]", Process: reg, Complete: windowComplete},
		{Name: "set", Min: 2, Help: "set <window> <offset> <width> <value>", Process: set, Complete: windowComplete},
		{Name: "latch", Min: 1, Help: "latch", Process: latch},
		{Name: "tick", Min: 1, Help: "tick [n]", Process: tick},
		{Name: "show", Min: 2, Help: "show <dma|irq|bars|stats|stream>", Process: show, Complete: showComplete},
		{Name: "debug", Min: 2, Help: "debug <arith|dma|irq|driver> <option>", Process: debugCmd, Complete: debugComplete},
		{Name: "reset", Min: 5, Help: "reset", Process: reset},
		{Name: "help", Min: 1, Help: "help", Process: help},
		{Name: "quit", Min: 4, Help: "quit", Process: quit},
	}
}

// Read from stream and dump what came back.
func read(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Read")
	n, err := line.getNumber()
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	start := sess.Stream.Offset()
	var buf bytes.Buffer
	_, err = sess.Stream.ReadTo(&buf, int(n))
	if err != nil {
		return false, err
	}
	if buf.Len() == 0 {
		fmt.Fprintln(sess.Out, "End of device")
		return false, nil
	}
	fmt.Fprint(sess.Out, hex.Dump(uint32(start), buf.Bytes()))
	return false, nil
}

// Write text to stream.
func write(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Write")
	text := line.getRest()
	if text == "" {
		return false, errors.New("nothing to write")
	}
	n, err := sess.Stream.WriteFrom(strings.NewReader(text), len(text))
	if err != nil {
		return false, err
	}
	fmt.Fprintf(sess.Out, "Wrote %d bytes\n", n)
	return false, nil
}

// Write n copies of byte to stream.
func fill(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Fill")
	value, err := line.getSized(8)
	if err != nil {
		return false, err
	}
	n, err := line.getNumber()
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	data := bytes.Repeat([]byte{byte(value)}, int(min(n, uint64(sess.Drv.Capacity()))))
	done, err := sess.Stream.Write(data)
	if err != nil && !errors.Is(err, io.ErrShortWrite) {
		return false, err
	}
	fmt.Fprintf(sess.Out, "Wrote %d bytes\n", done)
	return false, nil
}

// Move stream offset.
func seek(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Seek")
	off, err := line.getNumber()
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	_, err = sess.Stream.Seek(int64(min(off, uint64(sess.Drv.Capacity())+1)), io.SeekStart)
	return false, err
}

// Checksum of whole device read through stream.
func crc(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command CRC")
	if err := line.done(); err != nil {
		return false, err
	}
	data := make([]byte, sess.Drv.Capacity())
	if _, err := sess.Stream.ReadAt(data, 0); err != nil {
		return false, err
	}
	fmt.Fprintf(sess.Out, "CRC %02X\n", driver.Checksum(data))
	return false, nil
}

// Dump scratch buffer without a transfer.
func dump(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Dump")
	off, err := line.getOptNumber(0)
	if err != nil {
		return false, err
	}
	length, err := line.getOptNumber(256)
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	if off >= uint64(dev.ScratchSize) {
		return false, errors.New("offset outside scratch buffer")
	}
	data := sess.Ctrl.Scratch(uint32(off), uint32(min(length, uint64(dev.ScratchSize))))
	fmt.Fprint(sess.Out, hex.Dump(uint32(off), data))
	return false, nil
}

// Print stream, DMA, interrupt or window state.
func show(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Show")
	opt, ok := matchOption(line.getWord(), showOptions)
	if !ok {
		return false, errors.New("show must be one of: " + optionNames(showOptions))
	}
	if err := line.done(); err != nil {
		return false, err
	}
	var str strings.Builder
	switch opt.Name {
	case "bars":
		for w := dev.Window(0); w < dev.NumWindows; w++ {
			base, size, _ := sess.Ctrl.Bar(w)
			fmt.Fprintf(&str, "BAR%d %-5s ", int(w), w.String())
			hex.Format(&str, 8, base)
			fmt.Fprintf(&str, " size %d\n", size)
		}
	case "dma":
		var regs []uint32
		for off := dev.DMACmd; off < dev.DMARegEnd; off += 4 {
			regs = append(regs, uint32(sess.Ctrl.Read(dev.WindowDMA, off, 4)))
		}
		str.WriteString("CMD      SRC      DST      LEN      STATUS\n")
		hex.FormatList(&str, regs)
		str.WriteByte('\n')
	case "irq":
		fmt.Fprintf(&str, "Pending %v edges %d queued %d\n",
			sess.Ctrl.IRQPending(), sess.Ctrl.Edges(), sess.Ctrl.PendingEvents())
	case "stats":
		st := sess.Ctrl.DMAStats()
		fmt.Fprintf(&str, "Transfers %d to device %d from device %d errors %d\n",
			st.Transfers, st.ToDevice, st.FromDevice, st.Errors)
	case "stream":
		fmt.Fprintf(&str, "Offset %d capacity %d mode %s\n",
			sess.Stream.Offset(), sess.Drv.Capacity(), sess.Drv.Mode())
		if sess.Mapping != nil {
			fmt.Fprintf(&str, "Mapped pfn %x length %d\n", sess.Mapping.PFN(), sess.Mapping.Len())
		}
	}
	fmt.Fprint(sess.Out, str.String())
	return false, nil
}

// Advance device clock.
func tick(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Tick")
	n, err := line.getOptNumber(1)
	if err != nil {
		return false, err
	}
	if err := line.done(); err != nil {
		return false, err
	}
	sess.Ctrl.Tick(int(min(n, 1<<20)))
	return false, nil
}

// Enable a debug option.
func debugCmd(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Debug")
	module := line.getWord()
	if module == "" || line.isEOL() {
		return false, errors.New("debug requires module and option")
	}
	for !line.isEOL() {
		if err := debugconfig.Enable(sess.Ctrl, sess.Drv, module, line.getWord()); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Return device to power on state.
func reset(line *cmdLine, sess *command.Session) (bool, error) {
	slog.Debug("Command Reset")
	if err := line.done(); err != nil {
		return false, err
	}
	sess.Ctrl.Reset()
	_, err := sess.Stream.Seek(0, io.SeekStart)
	return false, err
}

func help(_ *cmdLine, sess *command.Session) (bool, error) {
	for _, c := range cmdList {
		fmt.Fprintln(sess.Out, "  "+c.Help)
	}
	return false, nil
}

// Handle commands that quit simulation.
func quit(_ *cmdLine, _ *command.Session) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}
