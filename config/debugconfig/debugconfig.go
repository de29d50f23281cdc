/*
 * PCISIM - Debug configuration.
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

package debugconfig

import (
	"errors"
	"strings"
	"sync"

	config "github.com/rcornwell/pcisim/config/configparser"
	dev "github.com/rcornwell/pcisim/emu/device"
	debug "github.com/rcornwell/pcisim/util/debug"
)

// Window holds debug options for each register window.
type Window interface {
	Debug(w dev.Window, opt string) error
}

// Target holds debug options of its own.
type Target interface {
	Debug(opt string) error
}

type request struct {
	module string
	opt    string
}

var (
	mu       sync.Mutex
	requests []request
)

// register debug keywords on initialize.
func init() {
	config.RegisterModel("DEBUG", config.TypeOptions, setDebug)
	config.RegisterOption("DEBUGFILE", setDebugFile)
}

// Record options, they are applied once device exists.
func setDebug(first config.FirstOption, options []config.Option) error {
	module := strings.ToUpper(first.Value)
	if !validModule(module) {
		return errors.New("debug option invalid: " + first.Value)
	}
	if len(options) == 0 {
		return errors.New("debug " + module + " requires options")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, opt := range options {
		requests = append(requests, request{module: module, opt: opt.Name})
		for _, value := range opt.Value {
			requests = append(requests, request{module: module, opt: value})
		}
	}
	return nil
}

// Open debug file.
func setDebugFile(first config.FirstOption, _ []config.Option) error {
	return debug.Create(first.Value)
}

func validModule(module string) bool {
	if module == "DRIVER" {
		return true
	}
	_, ok := dev.WindowByName(module)
	return ok
}

// Enable one option on module, which is a window name or DRIVER.
func Enable(device Window, drv Target, module string, opt string) error {
	module = strings.ToUpper(module)
	opt = strings.ToUpper(opt)
	if module == "DRIVER" {
		return drv.Debug(opt)
	}
	w, ok := dev.WindowByName(module)
	if !ok {
		return errors.New("debug option invalid: " + module)
	}
	return device.Debug(w, opt)
}

// Apply options collected from configuration.
func Apply(device Window, drv Target) error {
	mu.Lock()
	defer mu.Unlock()
	for _, r := range requests {
		if err := Enable(device, drv, r.module, r.opt); err != nil {
			return err
		}
	}
	requests = nil
	return nil
}
