/*
 * PCISIM - Console session
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

package command

import (
	"errors"
	"io"
	"os"

	"github.com/rcornwell/pcisim/driver"
	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/memory"
)

// Session is what console commands act on: the device, its driver and
// one open stream.
type Session struct {
	Ctrl    *controller.Controller
	Drv     *driver.Driver
	Mem     *memory.Memory
	Stream  *driver.Stream
	Mapping *driver.Mapping // Nil until map command.
	Out     io.Writer
}

// Open a stream for console use. Output goes to out, or stdout if nil.
func NewSession(ctrl *controller.Controller, drv *driver.Driver, mem *memory.Memory, out io.Writer) (*Session, error) {
	if ctrl == nil || drv == nil {
		return nil, errors.New("console requires a device")
	}
	stream, err := drv.Open()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	return &Session{Ctrl: ctrl, Drv: drv, Mem: mem, Stream: stream, Out: out}, nil
}

// Map whole arithmetic window if not already mapped.
func (s *Session) Mapped() (*driver.Mapping, error) {
	if s.Mapping != nil {
		return s.Mapping, nil
	}
	m, err := s.Drv.Map(dev.ArithSize)
	if err != nil {
		return nil, err
	}
	s.Mapping = m
	return m, nil
}

// Release stream and mapping.
func (s *Session) Close() error {
	if s.Mapping != nil {
		_ = s.Mapping.Unmap()
		s.Mapping = nil
	}
	return s.Stream.Close()
}

// Names accepted as argument of a command.
type Options struct {
	Name string   // Argument name.
	Help string   // Description shown by help.
	Sub  []string // Values allowed after name.
}
