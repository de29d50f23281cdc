/*
 * PCISIM - Command parser tests
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
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	command "github.com/rcornwell/pcisim/command/command"
	"github.com/rcornwell/pcisim/driver"
	"github.com/rcornwell/pcisim/emu/controller"
	dev "github.com/rcornwell/pcisim/emu/device"
	"github.com/rcornwell/pcisim/emu/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSession(t *testing.T) (*command.Session, *bytes.Buffer) {
	t.Helper()
	mem := memory.New(64 * 1024)
	cfg := controller.DefaultConfig(mem)
	cfg.Logger = quiet
	ctrl, err := controller.New(cfg)
	if err != nil {
		t.Fatalf("Controller failed: %v", err)
	}
	opts := driver.DefaultOptions()
	opts.Logger = quiet
	drv, err := driver.Probe(ctrl, mem, opts)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	out := &bytes.Buffer{}
	sess, err := command.NewSession(ctrl, drv, mem, out)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	return sess, out
}

// Run command expecting success, return its output.
func run(t *testing.T, sess *command.Session, out *bytes.Buffer, text string) string {
	t.Helper()
	out.Reset()
	quit, err := ProcessCommand(text, sess)
	if err != nil {
		t.Errorf("Command %q failed: %v", text, err)
	}
	if quit {
		t.Errorf("Command %q quit", text)
	}
	return out.String()
}

func TestMatch(t *testing.T) {
	tests := map[string]string{
		"q":     "",
		"quit":  "quit",
		"wr":    "write",
		"w":     "write",
		"re":    "",
		"rea":   "read",
		"reset": "reset",
		"sh":    "show",
		"s":     "",
		"quitx": "",
	}
	for in, expect := range tests {
		match := matchList(in)
		got := ""
		if len(match) == 1 {
			got = match[0].Name
		}
		if got != expect {
			t.Errorf("Match %q got: %q expected: %q", in, got, expect)
		}
	}
}

func TestQuit(t *testing.T) {
	sess, _ := newSession(t)
	quit, err := ProcessCommand("quit", sess)
	if !quit || err != nil {
		t.Errorf("Quit got: %v %v", quit, err)
	}
	quit, err = ProcessCommand("   # comment only", sess)
	if quit || err != nil {
		t.Errorf("Comment got: %v %v", quit, err)
	}
	if _, err := ProcessCommand("bogus", sess); err == nil {
		t.Errorf("Unknown command succeeded")
	}
	if _, err := ProcessCommand("write \"open", sess); err == nil {
		t.Errorf("Unterminated quote succeeded")
	}
}

func TestStreamCommands(t *testing.T) {
	sess, out := newSession(t)
	if got := run(t, sess, out, `write "hello world"`); got != "Wrote 11 bytes\n" {
		t.Errorf("Write got: %q", got)
	}
	run(t, sess, out, "seek 0")
	got := run(t, sess, out, "read 5")
	if !strings.HasPrefix(got, "0000: 68 65 6C 6C 6F") || !strings.Contains(got, "hello") {
		t.Errorf("Read got: %q", got)
	}
	if sess.Stream.Offset() != 5 {
		t.Errorf("Offset got: %d expected: %d", sess.Stream.Offset(), 5)
	}
	run(t, sess, out, "seek 0x1000")
	if got := run(t, sess, out, "read 10"); got != "End of device\n" {
		t.Errorf("Read at end got: %q", got)
	}
	run(t, sess, out, "seek 4090")
	if got := run(t, sess, out, "fill 0xaa 100"); got != "Wrote 6 bytes\n" {
		t.Errorf("Fill at end got: %q", got)
	}
	if _, err := ProcessCommand("seek 5000", sess); err == nil {
		t.Errorf("Seek past end succeeded")
	}
	got = run(t, sess, out, "dump 4088 16")
	if !strings.HasPrefix(got, "0FF8: 00 00 AA AA AA AA AA AA") {
		t.Errorf("Dump got: %q", got)
	}
	if got := run(t, sess, out, "crc"); !strings.HasPrefix(got, "CRC ") {
		t.Errorf("CRC got: %q", got)
	}
}

func TestExecute(t *testing.T) {
	sess, out := newSession(t)
	if Execute("bogus", sess) {
		t.Errorf("Unknown command quit")
	}
	if !strings.HasPrefix(out.String(), "Error: command not found: bogus") {
		t.Errorf("Execute output got: %q", out.String())
	}
	out.Reset()
	if Execute("", sess) || out.Len() != 0 {
		t.Errorf("Empty line got: %q", out.String())
	}
	if !Execute("quit", sess) {
		t.Errorf("Quit did not stop console")
	}
}

func TestArith(t *testing.T) {
	sess, out := newSession(t)
	tests := map[string]string{
		"arith 7 3 add":  "Result 10 (0000000A) error 0 none\n",
		"arith 7 3 mul":  "Result 21 (00000015) error 0 none\n",
		"arith 7 0 div":  "Result 0 (00000000) error 2 divide by zero\n",
		"arith 7 3 0xaa": "Result 0 (00000000) error 1 invalid opcode\n",
		"arith 3 7 sub":  "Result 4294967292 (FFFFFFFC) error 0 none\n",
		"arith 7 3 0x02": "Result 2 (00000002) error 0 none\n",
	}
	for text, expect := range tests {
		if got := run(t, sess, out, text); got != expect {
			t.Errorf("%s got: %q expected: %q", text, got, expect)
		}
	}
	if sess.Mapping == nil {
		t.Fatalf("Arith did not map window")
	}
	if sess.Mapping.Len() != dev.ArithSize {
		t.Errorf("Arith mapping length got: %d expected: %d", sess.Mapping.Len(), dev.ArithSize)
	}
	if _, err := ProcessCommand("arith 7 3 mod", sess); err == nil {
		t.Errorf("Bad operation succeeded")
	}
	if _, err := ProcessCommand("arith 0x100000000 3 add", sess); err == nil {
		t.Errorf("Operand too large succeeded")
	}
}

func TestRegisters(t *testing.T) {
	sess, out := newSession(t)
	run(t, sess, out, "set arith 0x10 4 9")
	if got := run(t, sess, out, "reg arith 0x10"); got != "ARITH[0010] = 00000009\n" {
		t.Errorf("Reg got: %q", got)
	}
	if got := run(t, sess, out, "reg irq 0 1"); got != "IRQ[0000] = FF\n" {
		t.Errorf("Latch reg got: %q", got)
	}
	run(t, sess, out, "set irq 0 1 1")
	if got := run(t, sess, out, "latch"); got != "Interrupt acknowledged\n" {
		t.Errorf("Latch got: %q", got)
	}
	if got := run(t, sess, out, "latch"); got != "No interrupt (FFFFFFFF)\n" {
		t.Errorf("Second latch got: %q", got)
	}
	for _, bad := range []string{"reg bus 0", "reg dma 0 3", "set dma 0 1 0x100", "set dma 0", "reg dma 0 4 extra"} {
		if _, err := ProcessCommand(bad, sess); err == nil {
			t.Errorf("Command %q succeeded", bad)
		}
	}
}

func TestShow(t *testing.T) {
	sess, out := newSession(t)
	got := run(t, sess, out, "show bars")
	if !strings.Contains(got, "BAR1 DMA   FE100000 size 4096") {
		t.Errorf("Show bars got: %q", got)
	}
	run(t, sess, out, "write abcd")
	got = run(t, sess, out, "show dma")
	if !strings.Contains(got, "00000000 00001000 00000000 00000004 00000001") {
		t.Errorf("Show dma got: %q", got)
	}
	if _, err := ProcessCommand("show st", sess); err == nil {
		t.Errorf("Show with ambiguous prefix succeeded")
	}
	if _, err := ProcessCommand("show cpu", sess); err == nil {
		t.Errorf("Show cpu succeeded")
	}
	got = run(t, sess, out, "show stats")
	if !strings.HasPrefix(got, "Transfers 1 to device 4") {
		t.Errorf("Show stats got: %q", got)
	}
}

func TestTickReset(t *testing.T) {
	sess, out := newSession(t)
	sess.Ctrl.SetLatency(2)
	sess.Ctrl.Write(dev.WindowDMA, dev.DMALen, 4, 1)
	sess.Ctrl.Write(dev.WindowDMA, dev.DMACmd, 4, uint64(dev.CmdRun|dev.DirFromDevice<<dev.CmdDirShift))
	run(t, sess, out, "tick")
	if sess.Ctrl.IRQPending() {
		t.Errorf("Interrupt after one tick")
	}
	run(t, sess, out, "tick 1")
	if !sess.Ctrl.IRQPending() {
		t.Errorf("No interrupt after two ticks")
	}
	run(t, sess, out, "set arith 0x10 4 99")
	run(t, sess, out, "reset")
	if r := sess.Ctrl.Read(dev.WindowArith, dev.RegOp1, 4); r != 2 {
		t.Errorf("Reset left op1 at: %d", r)
	}
}

func TestDebugCommand(t *testing.T) {
	sess, out := newSession(t)
	run(t, sess, out, "debug dma cmd data")
	run(t, sess, out, "debug driver cmd")
	if _, err := ProcessCommand("debug dma bogus", sess); err == nil {
		t.Errorf("Bad debug option succeeded")
	}
	if _, err := ProcessCommand("debug dma", sess); err == nil {
		t.Errorf("Debug without option succeeded")
	}
}

func TestComplete(t *testing.T) {
	got := CompleteCmd("re")
	if strings.Join(got, " ") != "read reg reset" {
		t.Errorf("Complete re got: %v", got)
	}
	got = CompleteCmd("show s")
	if strings.Join(got, "|") != "show stats |show stream " {
		t.Errorf("Complete show s got: %q", got)
	}
	got = CompleteCmd("reg ")
	if len(got) != 3 || got[0] != "reg arith " {
		t.Errorf("Complete reg got: %q", got)
	}
	got = CompleteCmd("debug irq d")
	if len(got) != 1 || got[0] != "debug irq detail " {
		t.Errorf("Complete debug got: %q", got)
	}
	got = CompleteCmd("arith 1 2 m")
	if len(got) != 1 || got[0] != "arith 1 2 mul " {
		t.Errorf("Complete arith got: %q", got)
	}
	if CompleteCmd("read 1") != nil {
		t.Errorf("Complete read returned values")
	}
}
