/*
 * PCISIM - Device configuration.
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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	config "github.com/rcornwell/pcisim/config/configparser"
	"github.com/rcornwell/pcisim/driver"
	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
)

// Largest host memory allowed.
const maxMemory = 16 * 1024 * 1024

// Settings collected from configuration file.
type Settings struct {
	MemorySize   uint32                 // Bytes of host memory.
	Bars         [dev.NumWindows]uint64 // Window base addresses.
	MSI          bool                   // Interrupt on DMA completion.
	Latency      int                    // Ticks before completion interrupt.
	Mode         driver.Mode            // Driver completion wait.
	Timeout      time.Duration          // Driver completion timeout.
	PollInterval time.Duration          // Driver latch poll interval.
}

var (
	mu       sync.Mutex
	settings = Default()
)

// register configuration keywords on initialize.
func init() {
	config.RegisterOption("MEMORY", setMemory)
	config.RegisterModel("PCIDEV", config.TypeModel, setDevice)
	config.RegisterModel("DRIVER", config.TypeOptions, setDriver)
}

// Settings used when no configuration is given.
func Default() Settings {
	return Settings{
		MemorySize:   64 * 1024,
		Bars:         [dev.NumWindows]uint64{controller.DefaultArithBase, controller.DefaultDMABase, controller.DefaultIRQBase},
		MSI:          true,
		Mode:         driver.WaitIRQ,
		Timeout:      driver.DefaultTimeout,
		PollInterval: driver.DefaultPollInterval,
	}
}

// Return current settings.
func Get() Settings {
	mu.Lock()
	defer mu.Unlock()
	return settings
}

// Return settings to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	settings = Default()
}

// Controller configuration from settings.
func (s Settings) Controller() controller.Config {
	return controller.Config{Bars: s.Bars, MSI: s.MSI, Latency: s.Latency}
}

// Driver options from settings.
func (s Settings) Driver() driver.Options {
	return driver.Options{Mode: s.Mode, Timeout: s.Timeout, PollInterval: s.PollInterval}
}

// MEMORY <size>.
func setMemory(first config.FirstOption, _ []config.Option) error {
	if !first.IsNum || first.Number == 0 || first.Number > maxMemory {
		return errors.New("memory size invalid: " + first.Value)
	}
	mu.Lock()
	defer mu.Unlock()
	settings.MemorySize = uint32(first.Number)
	return nil
}

// Single value of option.
func optValue(opt config.Option) (string, error) {
	if opt.EqualOpt == "" || len(opt.Value) != 0 {
		return "", fmt.Errorf("option %s requires one value", opt.Name)
	}
	return opt.EqualOpt, nil
}

func optDecimal(opt config.Option) (int, error) {
	v, err := optValue(opt)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("option %s must be a number: %s", opt.Name, v)
	}
	return n, nil
}

func optAddress(opt config.Option) (uint64, error) {
	v, err := optValue(opt)
	if err != nil {
		return 0, err
	}
	n, ok := config.ParseNumber(v)
	if !ok {
		return 0, fmt.Errorf("option %s must be an address: %s", opt.Name, v)
	}
	return n, nil
}

// PCIDEV <arith base> [MSI|NOMSI] [LATENCY=n] [DMABAR=addr] [IRQBAR=addr].
func setDevice(first config.FirstOption, options []config.Option) error {
	mu.Lock()
	defer mu.Unlock()
	s := settings
	s.Bars[dev.WindowArith] = first.Number
	for _, opt := range options {
		var err error
		switch opt.Name {
		case "MSI":
			s.MSI = true
		case "NOMSI":
			s.MSI = false
		case "LATENCY":
			s.Latency, err = optDecimal(opt)
		case "DMABAR":
			s.Bars[dev.WindowDMA], err = optAddress(opt)
		case "IRQBAR":
			s.Bars[dev.WindowIRQ], err = optAddress(opt)
		default:
			err = errors.New("pcidev option invalid: " + opt.Name)
		}
		if err != nil {
			return err
		}
	}
	settings = s
	return nil
}

// DRIVER <IRQ|POLL> [TIMEOUT=ms] [POLL=us].
func setDriver(first config.FirstOption, options []config.Option) error {
	mode, ok := driver.ModeByName(strings.ToUpper(first.Value))
	if !ok {
		return errors.New("driver mode invalid: " + first.Value)
	}
	mu.Lock()
	defer mu.Unlock()
	s := settings
	s.Mode = mode
	for _, opt := range options {
		var n int
		var err error
		switch opt.Name {
		case "TIMEOUT":
			n, err = optDecimal(opt)
			s.Timeout = time.Duration(n) * time.Millisecond
		case "POLL":
			n, err = optDecimal(opt)
			s.PollInterval = time.Duration(n) * time.Microsecond
		default:
			err = errors.New("driver option invalid: " + opt.Name)
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("option %s must not be zero", opt.Name)
		}
	}
	settings = s
	return nil
}
