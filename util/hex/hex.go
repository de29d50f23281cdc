/*
 * PCISIM - Hex formatting
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

package hex

import (
	"strings"

	"golang.org/x/exp/constraints"
)

var hexMap = "0123456789ABCDEF"

// Append value as digits hex digits.
func Format[T constraints.Unsigned](str *strings.Builder, digits int, value T) {
	for shift := (digits - 1) * 4; shift >= 0; shift -= 4 {
		str.WriteByte(hexMap[(uint64(value)>>shift)&0xf])
	}
}

// Append each value followed by a space, sized to its type.
func FormatList[T constraints.Unsigned](str *strings.Builder, values []T) {
	digits := sizeOf[T]() * 2
	for _, v := range values {
		Format(str, digits, v)
		str.WriteByte(' ')
	}
}

func sizeOf[T constraints.Unsigned]() int {
	size := 1
	for v := ^T(0); v > 0xff; v >>= 8 {
		size++
	}
	return size
}

func FormatBytes(str *strings.Builder, space bool, data []uint8) {
	for _, by := range data {
		str.WriteByte(hexMap[(by>>4)&0xf])
		str.WriteByte(hexMap[by&0xf])
		if space {
			str.WriteByte(' ')
		}
	}
}

func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

// Dump data as lines of 16 bytes with address and printable text.
func Dump(addr uint32, data []byte) string {
	var str strings.Builder
	for len(data) > 0 {
		line := data[:min(16, len(data))]
		Format(&str, 4, addr)
		str.WriteString(": ")
		FormatBytes(&str, true, line)
		for i := 0; i < 16-len(line); i++ {
			str.WriteString("   ")
		}
		str.WriteByte(' ')
		for _, by := range line {
			if by < 0x20 || by > 0x7e {
				by = '.'
			}
			str.WriteByte(by)
		}
		str.WriteByte('\n')
		addr += uint32(len(line))
		data = data[len(line):]
	}
	return str.String()
}
