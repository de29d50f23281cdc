/*
 * PCISIM - Command parser
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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"

	command "github.com/rcornwell/pcisim/command/command"
	dev "github.com/rcornwell/pcisim/emu/device"
)

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Help     string // Usage line.
	Process  func(*cmdLine, *command.Session) (bool, error)
	Complete func(*cmdLine) []string
}

type cmdLine struct {
	words []string // Arguments after command.
	pos   int      // Next argument.
}

// Split line into command and arguments. Anything after # is ignored.
func splitLine(commandLine string) ([]string, error) {
	if i := strings.IndexByte(commandLine, '#'); i >= 0 {
		commandLine = commandLine[:i]
	}
	return shellwords.SplitPosix(commandLine)
}

// Execute the command line given.
func ProcessCommand(commandLine string, sess *command.Session) (bool, error) {
	words, err := splitLine(commandLine)
	if err != nil {
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}
	name := strings.ToLower(words[0])

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + name)
	}

	line := cmdLine{words: words[1:]}
	return match[0].Process(&line, sess)
}

// Run one console line, errors are reported on session output.
// Returns true when the console should stop.
func Execute(commandLine string, sess *command.Session) bool {
	quit, err := ProcessCommand(commandLine, sess)
	if err != nil {
		fmt.Fprintln(sess.Out, "Error: "+err.Error())
	}
	return quit
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	if command == "" {
		return []cmd{}
	}

	var match []cmd
	for _, m := range cmdList {
		if m.Name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Check if all arguments used.
func (line *cmdLine) isEOL() bool {
	return line.pos >= len(line.words)
}

// Return next argument, empty at end.
func (line *cmdLine) getWord() string {
	if line.isEOL() {
		return ""
	}
	word := line.words[line.pos]
	line.pos++
	return word
}

// Rest of line joined by spaces.
func (line *cmdLine) getRest() string {
	rest := strings.Join(line.words[line.pos:], " ")
	line.pos = len(line.words)
	return rest
}

// Parse a number, decimal or hex with 0x prefix.
func (line *cmdLine) getNumber() (uint64, error) {
	word := line.getWord()
	if word == "" {
		return 0, errors.New("missing number")
	}
	value, err := strconv.ParseUint(word, 0, 64)
	if err != nil {
		return 0, errors.New("not a number: " + word)
	}
	return value, nil
}

// Parse a number that must fit in bits.
func (line *cmdLine) getSized(bits int) (uint64, error) {
	value, err := line.getNumber()
	if err != nil {
		return 0, err
	}
	if bits < 64 && value >= 1<<bits {
		return 0, errors.New("number too large: " + strconv.FormatUint(value, 10))
	}
	return value, nil
}

// Parse optional number, def if none given.
func (line *cmdLine) getOptNumber(def uint64) (uint64, error) {
	if line.isEOL() {
		return def, nil
	}
	return line.getNumber()
}

// Parse window name.
func (line *cmdLine) getWindow() (dev.Window, error) {
	name := strings.ToUpper(line.getWord())
	w, ok := dev.WindowByName(name)
	if !ok {
		return dev.NumWindows, errors.New("window must be arith, dma or irq: " + name)
	}
	return w, nil
}

// Parse access width.
func (line *cmdLine) getWidth(def int) (int, error) {
	width, err := line.getOptNumber(uint64(def))
	if err != nil {
		return 0, err
	}
	if !dev.ValidWidth(int(width), 1, 2, 4, 8) {
		return 0, errors.New("width must be 1, 2, 4 or 8")
	}
	return int(width), nil
}

// Check nothing is left over.
func (line *cmdLine) done() error {
	if !line.isEOL() {
		return errors.New("extra arguments: " + line.getRest())
	}
	return nil
}

// Match option list.
func matchOption(name string, opts []command.Options) (command.Options, bool) {
	name = strings.ToLower(name)
	var found []command.Options
	for _, opt := range opts {
		if opt.Name == name {
			return opt, true
		}
		if strings.HasPrefix(opt.Name, name) {
			found = append(found, opt)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return command.Options{}, false
}
