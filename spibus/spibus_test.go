// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spibus

import (
	"bytes"
	"testing"
)

func TestReverseBit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   byte
		want byte
	}{
		{name: "zero", in: 0x00, want: 0x00},
		{name: "all ones", in: 0xFF, want: 0xFF},
		{name: "lsb to msb", in: 0x01, want: 0x80},
		{name: "msb to lsb", in: 0x80, want: 0x01},
		{name: "status read command", in: 0x02, want: 0x40},
		{name: "data write command", in: 0x01, want: 0x80},
		{name: "host tfi", in: 0xD4, want: 0x2B},
		{name: "asymmetric pattern", in: 0xA5, want: 0xA5},
		{name: "nibble swap", in: 0x0F, want: 0xF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := reverseBit(tt.in); got != tt.want {
				t.Errorf("reverseBit(0x%02X) = 0x%02X, want 0x%02X", tt.in, got, tt.want)
			}
		})
	}
}

func TestReverseBitInvolution(t *testing.T) {
	t.Parallel()

	for i := range 256 {
		b := byte(i)
		if got := reverseBit(reverseBit(b)); got != b {
			t.Fatalf("reverseBit(reverseBit(0x%02X)) = 0x%02X", b, got)
		}
	}
}

func TestReverseBytes(t *testing.T) {
	t.Parallel()

	in := []byte{0x00, 0x01, 0x80, 0xD4}
	want := []byte{0x00, 0x80, 0x01, 0x2B}

	got := reverseBytes(in)
	if !bytes.Equal(got, want) {
		t.Errorf("reverseBytes(%X) = %X, want %X", in, got, want)
	}
	// Input must not be mutated.
	if !bytes.Equal(in, []byte{0x00, 0x01, 0x80, 0xD4}) {
		t.Errorf("reverseBytes mutated its input: %X", in)
	}
}

func TestReverseInPlace(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0x02, 0x03}
	reverseInPlace(data)
	want := []byte{0x80, 0x40, 0xC0}
	if !bytes.Equal(data, want) {
		t.Errorf("reverseInPlace = %X, want %X", data, want)
	}
}
