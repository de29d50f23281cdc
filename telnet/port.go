/*
 * PCISIM - Console port configuration.
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

package telnet

import (
	"errors"
	"strconv"
	"sync"

	config "github.com/rcornwell/pcisim/config/configparser"
)

var (
	portMu      sync.Mutex
	consolePort string
)

// register configuration keyword on initialize.
func init() {
	config.RegisterOption("PORT", setPort)
}

// PORT <number>, decimal TCP port of remote console.
func setPort(first config.FirstOption, options []config.Option) error {
	if len(options) != 0 {
		return errors.New("port takes no options")
	}
	n, err := strconv.ParseUint(first.Value, 10, 16)
	if err != nil || n == 0 {
		return errors.New("port requires number: " + first.Value)
	}
	portMu.Lock()
	defer portMu.Unlock()
	if consolePort != "" {
		return errors.New("can't have more then one console port")
	}
	consolePort = first.Value
	return nil
}

// Configured console port, empty if none.
func Port() string {
	portMu.Lock()
	defer portMu.Unlock()
	return consolePort
}

// Forget configured port.
func ResetPort() {
	portMu.Lock()
	defer portMu.Unlock()
	consolePort = ""
}
