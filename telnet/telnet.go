/*
 * PCISIM - Telnet line protocol.
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
	"io"
)

// Telnet protocol constants.
const (
	tnIAC  byte = 255 // protocol delim
	tnDONT byte = 254 // dont
	tnDO   byte = 253 // do
	tnWONT byte = 252 // wont
	tnWILL byte = 251 // will
	tnSB   byte = 250 // Sub negotiations begin
	tnGA   byte = 249 // Go ahead
	tnEL   byte = 248 // Erase line
	tnEC   byte = 247 // Erase character
	tnIP   byte = 244 // Interrupt process
	tnBRK  byte = 243 // break
	tnSE   byte = 240 // Sub negotiations end

	// Telnet line states.
	tnStateData  int = 1 + iota // normal
	tnStateIAC                  // IAC seen
	tnStateWILL                 // WILL seen
	tnStateDO                   // DO seen
	tnStateDONT                 // DONT seen
	tnStateWONT                 // WONT seen
	tnStateSB                   // Sub negotiation data
	tnStateSBIAC                // IAC inside sub negotiation
	tnStateCR                   // CR seen

	// Telnet options.
	tnOptionEcho byte = 1 // Echo
	tnOptionSGA  byte = 3 // Suppress Go Ahead

	// Flags for option state.
	tnFlagDo   byte = 1
	tnFlagDont byte = 2
	tnFlagWill byte = 4
	tnFlagWont byte = 8

	// Longest command line kept.
	maxLine = 512
)

// Console runs in line mode, client does its own echo and editing.
var initString = []byte{tnIAC, tnWILL, tnOptionSGA}

type tnState struct {
	optionState [256]byte // Current state of telnet session.
	state       int       // Current line state.
	line        []byte    // Partial command line.
	conn        io.Writer // Where to send negotiation replies.
}

func newState(conn io.Writer) *tnState {
	state := &tnState{conn: conn, state: tnStateData}
	state.optionState[tnOptionSGA] |= tnFlagWill
	return state
}

// Send a response to client, remember what was sent.
func (state *tnState) sendOption(setState, option byte) {
	_, _ = state.conn.Write([]byte{tnIAC, setState, option})
	switch setState {
	case tnWILL:
		state.optionState[option] |= tnFlagWill
	case tnWONT:
		state.optionState[option] |= tnFlagWont
	case tnDO:
		state.optionState[option] |= tnFlagDo
	case tnDONT:
		state.optionState[option] |= tnFlagDont
	}
}

// Client asks us to enable option, only SGA is supported.
func (state *tnState) handleDO(input byte) {
	if input == tnOptionSGA {
		return
	}
	if (state.optionState[input] & tnFlagWont) == 0 {
		state.sendOption(tnWONT, input)
	}
}

// Client offers option, refuse all but SGA.
func (state *tnState) handleWILL(input byte) {
	if input == tnOptionSGA {
		if (state.optionState[input] & tnFlagDo) == 0 {
			state.sendOption(tnDO, input)
		}
		return
	}
	if (state.optionState[input] & tnFlagDont) == 0 {
		state.sendOption(tnDONT, input)
	}
}

// Add a data byte to current line. Returns true when line is complete.
func (state *tnState) data(input byte) bool {
	switch input {
	case '\r', '\n':
		return true
	case 0x08, 0x7f:
		if len(state.line) > 0 {
			state.line = state.line[:len(state.line)-1]
		}
	case 0x15: // Ctrl-U
		state.line = state.line[:0]
	default:
		if input >= ' ' && len(state.line) < maxLine {
			state.line = append(state.line, input)
		}
	}
	return false
}

// Process input from client, return any complete lines.
func (state *tnState) receive(buffer []byte) []string {
	var lines []string
	for _, input := range buffer {
		switch state.state {
		case tnStateData:
			if input == tnIAC {
				state.state = tnStateIAC
				continue
			}
			if state.data(input) {
				lines = append(lines, string(state.line))
				state.line = state.line[:0]
				if input == '\r' {
					state.state = tnStateCR
				}
			}

		case tnStateCR: // Drop LF or NUL after CR.
			state.state = tnStateData
			if input == '\n' || input == 0 {
				continue
			}
			if input == tnIAC {
				state.state = tnStateIAC
				continue
			}
			if state.data(input) {
				lines = append(lines, string(state.line))
				state.line = state.line[:0]
			}

		case tnStateIAC:
			state.state = tnStateData
			switch input {
			case tnIAC:
				_ = state.data(input)
			case tnWILL:
				state.state = tnStateWILL
			case tnWONT:
				state.state = tnStateWONT
			case tnDO:
				state.state = tnStateDO
			case tnDONT:
				state.state = tnStateDONT
			case tnSB:
				state.state = tnStateSB
			case tnEL, tnIP, tnBRK:
				state.line = state.line[:0]
			case tnEC:
				_ = state.data(0x7f)
			}

		case tnStateWILL:
			state.handleWILL(input)
			state.state = tnStateData

		case tnStateWONT:
			if (state.optionState[input] & tnFlagDont) == 0 {
				state.sendOption(tnDONT, input)
			}
			state.state = tnStateData

		case tnStateDO:
			state.handleDO(input)
			state.state = tnStateData

		case tnStateDONT:
			state.state = tnStateData

		case tnStateSB:
			if input == tnIAC {
				state.state = tnStateSBIAC
			}

		case tnStateSBIAC:
			if input == tnSE {
				state.state = tnStateData
			} else {
				state.state = tnStateSB
			}
		}
	}
	return lines
}

// Writer that turns newline into CR LF and doubles IAC.
type netWriter struct {
	w io.Writer
}

func (n netWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		switch b {
		case '\n':
			out = append(out, '\r', '\n')
		case tnIAC:
			out = append(out, tnIAC, tnIAC)
		default:
			out = append(out, b)
		}
	}
	if _, err := n.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
