/*
 * PCISIM - Configuration file parser.
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

package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <keyword> <whitespace> <first> <whitespace> <options> |
 *           <keyword>
 * <first> ::= <string> | <hexnumber> | <number><K|M>
 * <options> ::= *(<option> *(<whitespace>))
 * <option> ::= <name> ['=' <quoteopt>] *(',' *(<whitespace>) <string>)
 * <quoteopt> ::= <string> | '"' *(<letter> | <whitespace>) '"'
 * <string> ::= *(<letter> | <number>)
 *
 * Examples:
 *    MEMORY   1M
 *    PCIDEV   FE000000 MSI LATENCY=0
 *    DRIVER   IRQ TIMEOUT=100
 *    DEBUG    DMA CMD,DATA
 *    DEBUGFILE "debug.log"
 */

// Option following the first parameter.
type Option struct {
	Name     string   // Name of option.
	EqualOpt string   // Value of string after =.
	Value    []string // Values after commas.
}

// First parameter after keyword.
type FirstOption struct {
	Value  string // String value of option.
	Number uint64 // Value if it parsed as a number.
	IsNum  bool   // Number is valid.
}

const (
	TypeModel   = 1 + iota // Requires a number as first parameter.
	TypeOption             // Accepts one parameter.
	TypeOptions            // Accepts a parameter and list of options.
	TypeSwitch             // Keyword only.
)

// Create function called for each keyword.
type CreateFunc func(first FirstOption, options []Option) error

type modelDef struct {
	create CreateFunc
	ty     int
}

var models = map[string]modelDef{}

// Register should be called from init functions.
func RegisterModel(mod string, ty int, fn CreateFunc) {
	models[strings.ToUpper(mod)] = modelDef{create: fn, ty: ty}
}

// Register a keyword that has no parameters.
func RegisterSwitch(mod string, fn CreateFunc) {
	RegisterModel(mod, TypeSwitch, fn)
}

// Register a keyword with a single parameter.
func RegisterOption(mod string, fn CreateFunc) {
	RegisterModel(mod, TypeOption, fn)
}

// Current line being parsed.
type optionLine struct {
	line   string // Current option line.
	pos    int    // Current position in line.
	number int    // Line number in file.
}

// Load in a configuration file.
func LoadConfigFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file)
}

// Process configuration from reader.
func LoadConfig(r io.Reader) error {
	reader := bufio.NewReader(r)
	number := 0
	for {
		text, err := reader.ReadString('\n')
		number++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line := optionLine{line: strings.TrimRight(text, "\r\n"), number: number}
		if perr := line.parseLine(); perr != nil {
			return perr
		}
	}
}

func (line *optionLine) errorf(format string, a ...any) error {
	return fmt.Errorf("line %d: "+format, append([]any{line.number}, a...)...)
}

// Parse one line from file.
func (line *optionLine) parseLine() error {
	keyword := line.parseKeyword()
	if keyword == "" {
		if !line.isEOL() {
			return line.errorf("invalid keyword")
		}
		return nil
	}

	model, ok := models[keyword]
	if !ok {
		return line.errorf("no type: %s registered", keyword)
	}

	switch model.ty {
	case TypeModel:
		first := line.parseFirst()
		if first == nil || !first.IsNum {
			return line.errorf("%s requires a number", keyword)
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return model.create(*first, options)

	case TypeOption:
		first := line.parseFirst()
		line.skipSpace()
		if first == nil || !line.isEOL() {
			return line.errorf("option %s requires one value", keyword)
		}
		return model.create(*first, nil)

	case TypeOptions:
		first := line.parseFirst()
		if first == nil {
			return line.errorf("option %s not followed by value", keyword)
		}
		options, err := line.parseOptions()
		if err != nil {
			return err
		}
		return model.create(*first, options)

	case TypeSwitch:
		line.skipSpace()
		if !line.isEOL() {
			return line.errorf("switch %s followed by options", keyword)
		}
		return model.create(FirstOption{}, nil)
	}
	return line.errorf("bad type for %s", keyword)
}

// Skip forward over line until none whitespace character found.
func (line *optionLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Peek at current character.
func (line *optionLine) peek() byte {
	if line.pos >= len(line.line) {
		return 0
	}
	return line.line[line.pos]
}

// Collect a string of letters and digits.
func (line *optionLine) getWord() string {
	start := line.pos
	for !line.isEOL() {
		by := rune(line.line[line.pos])
		if !unicode.IsLetter(by) && !unicode.IsNumber(by) && by != '_' && by != '.' {
			break
		}
		line.pos++
	}
	return line.line[start:line.pos]
}

// Parse keyword at start of line.
func (line *optionLine) parseKeyword() string {
	line.skipSpace()
	if line.isEOL() {
		return ""
	}
	return strings.ToUpper(line.getWord())
}

// Parse first option parameter. Numbers are hex unless followed by K or M.
func (line *optionLine) parseFirst() *FirstOption {
	line.skipSpace()
	if line.isEOL() {
		return nil
	}

	var value string
	if line.peek() == '"' {
		v, ok := line.parseQuoteString()
		if !ok {
			return nil
		}
		return &FirstOption{Value: v}
	}
	value = line.getWord()
	if value == "" {
		return nil
	}
	first := FirstOption{Value: value}
	first.Number, first.IsNum = ParseNumber(value)
	return &first
}

// Convert number, either hex or decimal followed by K or M.
func ParseNumber(value string) (uint64, bool) {
	upper := strings.ToUpper(value)
	mult := uint64(0)
	switch {
	case strings.HasSuffix(upper, "K"):
		mult = 1024
	case strings.HasSuffix(upper, "M"):
		mult = 1024 * 1024
	}
	if mult != 0 {
		v, err := strconv.ParseUint(upper[:len(upper)-1], 10, 32)
		if err != nil {
			return 0, false
		}
		return v * mult, true
	}
	upper = strings.TrimPrefix(upper, "0X")
	v, err := strconv.ParseUint(upper, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Parse string that is "string" or just string. Position is at the
// opening quote or first character.
func (line *optionLine) parseQuoteString() (string, bool) {
	if line.peek() != '"' {
		return line.getWord(), true
	}
	line.pos++
	var value strings.Builder
	for {
		if line.pos >= len(line.line) {
			return value.String(), false
		}
		by := line.line[line.pos]
		line.pos++
		if by == '"' {
			// "" is replaced by single quote.
			if line.peek() != '"' {
				return value.String(), true
			}
			line.pos++
		}
		value.WriteByte(by)
	}
}

// Parse option for a line.
func (line *optionLine) parseOption() (*Option, error) {
	line.skipSpace()
	if line.isEOL() {
		return nil, nil
	}

	// First character must be alphabetic.
	if !unicode.IsLetter(rune(line.peek())) {
		return nil, line.errorf("invalid option at %d", line.pos)
	}
	option := Option{Name: strings.ToUpper(line.getWord())}

	if line.peek() == '=' {
		line.pos++
		v, ok := line.parseQuoteString()
		if !ok {
			return nil, line.errorf("invalid quoted string at %d", line.pos)
		}
		option.EqualOpt = v
	}

	line.skipSpace()
	for !line.isEOL() && line.peek() == ',' {
		line.pos++
		line.skipSpace()
		v := line.getWord()
		if v == "" {
			return nil, line.errorf("empty value at %d", line.pos)
		}
		option.Value = append(option.Value, strings.ToUpper(v))
		line.skipSpace()
	}
	return &option, nil
}

// Collect all options for line.
func (line *optionLine) parseOptions() ([]Option, error) {
	options := []Option{}
	for {
		option, err := line.parseOption()
		if err != nil {
			return nil, err
		}
		if option == nil {
			return options, nil
		}
		options = append(options, *option)
	}
}
