/*
 * PCISIM - Device stream.
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
	"io"
	"sync"

	dev "github.com/rcornwell/pcisim/emu/device"
)

var ErrSeek = errors.New("seek position outside device")

// Stream is an open handle on the scratch buffer. Its offset only
// moves by the bytes actually transferred.
type Stream struct {
	mu     sync.Mutex
	drv    *Driver
	offset int64
	closed bool
}

// Open new stream at offset 0.
func (d *Driver) Open() (*Stream, error) {
	d.log.Debug("Stream opened")
	return &Stream{drv: d}, nil
}

// Close stream, any further use returns ErrClosed.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dev.ErrClosed
	}
	s.closed = true
	s.drv.log.Debug("Stream closed")
	return nil
}

// Current offset.
func (s *Stream) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Read up to n bytes at off from device.
func (s *Stream) fetch(off int64, n int) ([]byte, error) {
	n = s.drv.clamp(off, n)
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := s.drv.Transfer(dev.DirFromDevice, buf, uint32(off)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Write as much of p as fits at off to device.
func (s *Stream) store(off int64, p []byte) (int, error) {
	n := s.drv.clamp(off, len(p))
	if n == 0 {
		return 0, nil
	}
	if err := s.drv.Transfer(dev.DirToDevice, p[:n], uint32(off)); err != nil {
		return 0, err
	}
	return n, nil
}

// ReadTo copies up to n bytes at the current offset to w. The offset
// advances by what w accepted.
func (s *Stream) ReadTo(w io.Writer, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	buf, err := s.fetch(s.offset, n)
	if err != nil || len(buf) == 0 {
		return 0, err
	}
	done, err := w.Write(buf)
	s.offset += int64(done)
	return done, err
}

// WriteFrom copies up to n bytes from r to the device at the current
// offset. A short read from r shortens the transfer, it is not an error.
func (s *Stream) WriteFrom(r io.Reader, n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	n = s.drv.clamp(s.offset, n)
	if n == 0 {
		return 0, nil
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	done, err := s.store(s.offset, buf[:got])
	s.offset += int64(done)
	return done, err
}

// Read implements io.Reader, io.EOF at end of device.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	buf, err := s.fetch(s.offset, len(p))
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, buf)
	s.offset += int64(n)
	return n, nil
}

// Write implements io.Writer, writing past end of device is a short write.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	n, err := s.store(s.offset, p)
	s.offset += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// ReadAt reads at off without moving the stream offset.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	if off < 0 {
		return 0, ErrSeek
	}
	buf, err := s.fetch(off, len(p))
	if err != nil {
		return 0, err
	}
	n := copy(p, buf)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes at off without moving the stream offset.
func (s *Stream) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	if off < 0 {
		return 0, ErrSeek
	}
	n, err := s.store(off, p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Seek sets offset, positions beyond the device are refused.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, dev.ErrClosed
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += s.offset
	case io.SeekEnd:
		offset += int64(s.drv.capacity)
	default:
		return s.offset, ErrSeek
	}
	if offset < 0 || offset > int64(s.drv.capacity) {
		return s.offset, ErrSeek
	}
	s.offset = offset
	return offset, nil
}
