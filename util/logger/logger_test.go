/*
 * PCISIM - Logger tests
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

package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandle(t *testing.T) {
	var file, echo bytes.Buffer
	h := NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	h.SetEcho(&echo)
	log := slog.New(h)

	log.Info("Device ready", "vendor", "1234")
	if !strings.Contains(file.String(), "INFO: Device ready vendor=1234") {
		t.Errorf("Log file got: %q", file.String())
	}
	if echo.String() != file.String() {
		t.Errorf("Info not echoed got: %q", echo.String())
	}

	echo.Reset()
	log.Debug("Region mapped")
	if echo.Len() != 0 {
		t.Errorf("Debug echoed without debug mode: %q", echo.String())
	}
	h.SetDebug(true)
	log.Debug("Region mapped")
	if !strings.Contains(echo.String(), "DEBUG: Region mapped") {
		t.Errorf("Debug not echoed in debug mode: %q", echo.String())
	}
}

// Attributes and groups carry over to derived loggers.
func TestWithAttrs(t *testing.T) {
	var file bytes.Buffer
	h := NewHandler(&file, nil, false)
	h.SetEcho(nil)
	log := slog.New(h).With("window", "DMA").WithGroup("dma")

	log.Warn("Transfer failed", "status", 3)
	line := file.String()
	if !strings.Contains(line, "WARN: Transfer failed window=DMA dma.status=3") {
		t.Errorf("Log line got: %q", line)
	}
}

func TestLevel(t *testing.T) {
	var file bytes.Buffer
	h := NewHandler(&file, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	h.SetEcho(nil)
	log := slog.New(h)
	log.Info("Dropped")
	if file.Len() != 0 {
		t.Errorf("Info written at warn level: %q", file.String())
	}
}
