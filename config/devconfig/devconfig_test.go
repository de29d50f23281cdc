/*
 * PCISIM - Device configuration tests.
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

package devconfig

import (
	"strings"
	"testing"
	"time"

	config "github.com/rcornwell/pcisim/config/configparser"
	"github.com/rcornwell/pcisim/driver"
	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
)

func load(t *testing.T, text string) error {
	t.Helper()
	Reset()
	return config.LoadConfig(strings.NewReader(text))
}

func TestDefault(t *testing.T) {
	Reset()
	s := Get()
	if s.MemorySize != 64*1024 || !s.MSI || s.Mode != driver.WaitIRQ {
		t.Errorf("Default settings got: %+v", s)
	}
	if s.Bars[dev.WindowDMA] != controller.DefaultDMABase {
		t.Errorf("DMA base got: %x expected: %x", s.Bars[dev.WindowDMA], controller.DefaultDMABase)
	}
}

func TestConfig(t *testing.T) {
	err := load(t, `# Device setup
MEMORY 256K
PCIDEV f0000000 nomsi latency=5 dmabar=f0100000 irqbar=0xf0200000
DRIVER poll timeout=20 poll=100
`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := Get()
	if s.MemorySize != 256*1024 {
		t.Errorf("Memory got: %d expected: %d", s.MemorySize, 256*1024)
	}
	bars := [dev.NumWindows]uint64{0xf0000000, 0xf0100000, 0xf0200000}
	if s.Bars != bars {
		t.Errorf("Bars got: %x expected: %x", s.Bars, bars)
	}
	if s.MSI || s.Latency != 5 {
		t.Errorf("Device got: MSI %v latency %d", s.MSI, s.Latency)
	}
	if s.Mode != driver.WaitPoll || s.Timeout != 20*time.Millisecond || s.PollInterval != 100*time.Microsecond {
		t.Errorf("Driver got: %s %v %v", s.Mode, s.Timeout, s.PollInterval)
	}
	cfg := s.Controller()
	if cfg.Bars != bars || cfg.MSI || cfg.Latency != 5 {
		t.Errorf("Controller config got: %+v", cfg)
	}
	if opts := s.Driver(); opts.Mode != driver.WaitPoll || opts.Timeout != s.Timeout {
		t.Errorf("Driver options got: %+v", opts)
	}
}

func TestConfigErrors(t *testing.T) {
	bad := []string{
		"MEMORY 0\n",
		"MEMORY 32M\n",
		"MEMORY lots\n",
		"PCIDEV fe000000 fast\n",
		"PCIDEV fe000000 latency=x\n",
		"PCIDEV fe000000 latency\n",
		"PCIDEV fe000000 dmabar=zz\n",
		"DRIVER sleep\n",
		"DRIVER irq timeout=0\n",
		"DRIVER irq wait=5\n",
	}
	for _, text := range bad {
		if err := load(t, text); err == nil {
			t.Errorf("Config %q succeeded", strings.TrimSpace(text))
		}
	}
	// Failed line leaves settings alone.
	if err := load(t, "PCIDEV f0000000 latency=3 bogus\n"); err == nil {
		t.Errorf("Bad option succeeded")
	}
	if Get().Bars[dev.WindowArith] != controller.DefaultArithBase {
		t.Errorf("Failed line changed settings")
	}
}
