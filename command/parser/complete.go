/*
 * PCISIM - Command completion
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
	"slices"
	"strings"

	command "github.com/rcornwell/pcisim/command/command"
)

var showOptions = []command.Options{
	{Name: "bars", Help: "window base addresses"},
	{Name: "dma", Help: "DMA registers"},
	{Name: "irq", Help: "interrupt state"},
	{Name: "stats", Help: "DMA statistics"},
	{Name: "stream", Help: "stream offset and mapping"},
}

var windowOptions = []command.Options{
	{Name: "arith"},
	{Name: "dma"},
	{Name: "irq"},
}

var debugOptions = []command.Options{
	{Name: "arith", Sub: []string{"cmd", "data"}},
	{Name: "dma", Sub: []string{"cmd", "data", "detail"}},
	{Name: "irq", Sub: []string{"cmd", "detail"}},
	{Name: "driver", Sub: []string{"cmd", "data"}},
}

var arithOptions = []command.Options{
	{Name: "add"},
	{Name: "div"},
	{Name: "mul"},
	{Name: "sub"},
}

func optionNames(opts []command.Options) string {
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, opt.Name)
	}
	return strings.Join(names, ", ")
}

// Called to complete a command line, during line editing.
func CompleteCmd(commandLine string) []string {
	words, err := splitLine(commandLine)
	if err != nil {
		return nil
	}
	trailing := strings.HasSuffix(commandLine, " ")
	if len(words) == 0 || (len(words) == 1 && !trailing) {
		name := ""
		if len(words) == 1 {
			name = strings.ToLower(words[0])
		}
		var matches []string
		for _, m := range cmdList {
			if strings.HasPrefix(m.Name, name) {
				matches = append(matches, m.Name)
			}
		}
		slices.Sort(matches)
		return matches
	}

	// We have a command, let it try and complete it.
	match := matchList(strings.ToLower(words[0]))
	if len(match) != 1 || match[0].Complete == nil {
		return nil
	}
	if trailing {
		words = append(words, "")
	}
	line := cmdLine{words: words[1:]}
	leading := strings.Join(words[:len(words)-1], " ") + " "
	var out []string
	for _, c := range match[0].Complete(&line) {
		out = append(out, leading+c+" ")
	}
	return out
}

// Options matching last word.
func complete(prefix string, opts []command.Options) []string {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, opt := range opts {
		if strings.HasPrefix(opt.Name, prefix) {
			matches = append(matches, opt.Name)
		}
	}
	return matches
}

// Complete values listed under option.
func completeSub(prefix string, sub []string) []string {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, s := range sub {
		if strings.HasPrefix(s, prefix) {
			matches = append(matches, s)
		}
	}
	return matches
}

func showComplete(line *cmdLine) []string {
	if len(line.words) != 1 {
		return nil
	}
	return complete(line.words[0], showOptions)
}

func windowComplete(line *cmdLine) []string {
	if len(line.words) != 1 {
		return nil
	}
	return complete(line.words[0], windowOptions)
}

func arithComplete(line *cmdLine) []string {
	if len(line.words) != 3 {
		return nil
	}
	return complete(line.words[2], arithOptions)
}

func debugComplete(line *cmdLine) []string {
	switch len(line.words) {
	case 1:
		return complete(line.words[0], debugOptions)
	case 0:
		return nil
	}
	opt, ok := matchOption(line.words[0], debugOptions)
	if !ok {
		return nil
	}
	return completeSub(line.words[len(line.words)-1], opt.Sub)
}
