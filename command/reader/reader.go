/*
 * PCISIM - Local console.
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

package reader

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/peterh/liner"

	command "github.com/rcornwell/pcisim/command/command"
	"github.com/rcornwell/pcisim/command/parser"
)

const prompt = "PCISIM> "

// Console on the controlling terminal. Lines typed are kept in the
// history file, if one is given, across runs.
type Console struct {
	sess    *command.Session
	history string
	log     *slog.Logger
}

func New(sess *command.Session, history string, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{sess: sess, history: history, log: log}
}

// Load saved history.
func (c *Console) loadHistory(state *liner.State) {
	if c.history == "" {
		return
	}
	f, err := os.Open(c.history)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("Unable to read console history", "file", c.history, "error", err)
		}
		return
	}
	defer f.Close()
	if _, err := state.ReadHistory(f); err != nil {
		c.log.Warn("Console history damaged", "file", c.history, "error", err)
	}
}

// Save history for next run.
func (c *Console) saveHistory(state *liner.State) {
	if c.history == "" {
		return
	}
	f, err := os.Create(c.history)
	if err != nil {
		c.log.Warn("Unable to save console history", "file", c.history, "error", err)
		return
	}
	defer f.Close()
	if _, err := state.WriteHistory(f); err != nil {
		c.log.Warn("Unable to save console history", "file", c.history, "error", err)
	}
}

// Run reads commands until quit, end of input or Ctrl-C.
func (c *Console) Run() {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)
	state.SetCompleter(parser.CompleteCmd)
	c.loadHistory(state)
	defer c.saveHistory(state)

	for {
		text, err := state.Prompt(prompt)
		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			return
		default:
			c.log.Error("Console read failed", "error", err)
			return
		}
		if text != "" {
			state.AppendHistory(text)
		}
		if parser.Execute(text, c.sess) {
			return
		}
	}
}
