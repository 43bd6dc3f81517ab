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

package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "overflow wraps",
			data: []byte{0xFF, 0x01},
			want: 0x00,
		},
		{
			name: "multiple bytes",
			data: []byte{0x01, 0x02, 0x03, 0x04},
			want: 0x0A,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestEncodeKnownFrame(t *testing.T) {
	t.Parallel()
	// GetFirmwareVersion command frame from the PN532 user manual.
	got, err := Encode(HostToPn532, []byte{0x02})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = % X, want % X", got, want)
	}
}

func TestEncodePayloadTooLarge(t *testing.T) {
	t.Parallel()
	_, err := Encode(HostToPn532, make([]byte, MaxPayload+1))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Encode() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	sizes := []int{0, 1, 2, 7, 19, 63, 127, MaxPayload}
	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i*7 + 3)
		}

		wire, err := Encode(Pn532ToHost, payload)
		if err != nil {
			t.Fatalf("Encode(size=%d) error = %v", size, err)
		}
		tfi, got, err := Decode(wire)
		if err != nil {
			t.Fatalf("Decode(size=%d) error = %v", size, err)
		}
		if tfi != Pn532ToHost {
			t.Errorf("Decode(size=%d) tfi = %#02x, want %#02x", size, tfi, Pn532ToHost)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("Decode(size=%d) payload mismatch", size)
		}
	}
}

func TestDecodeLeadingPadding(t *testing.T) {
	t.Parallel()
	wire, err := Encode(Pn532ToHost, []byte{0x03, 0x32})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	padded := append([]byte{0x00, 0x00, 0x00}, wire...)
	padded = append(padded, 0x00, 0x00) // trailing idle bytes

	tfi, payload, err := Decode(padded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tfi != Pn532ToHost || !bytes.Equal(payload, []byte{0x03, 0x32}) {
		t.Errorf("Decode() = (%#02x, % X)", tfi, payload)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	valid, err := Encode(Pn532ToHost, []byte{0x03, 0x32, 0x01, 0x06, 0x07})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	corruptAt := func(idx int) []byte {
		buf := make([]byte, len(valid))
		copy(buf, valid)
		buf[idx] ^= 0xA5
		return buf
	}

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{
			name: "empty input",
			raw:  nil,
			want: ErrBadPreamble,
		},
		{
			name: "all zeros",
			raw:  []byte{0x00, 0x00, 0x00, 0x00},
			want: ErrBadPreamble,
		},
		{
			name: "missing start code",
			raw:  []byte{0x00, 0x00, 0x55, 0x02, 0xFE, 0xD5, 0x03, 0x28, 0x00},
			want: ErrBadPreamble,
		},
		{
			name: "no leading zero before start code",
			raw:  []byte{0xFF, 0x02, 0xFE, 0xD5, 0x03, 0x28, 0x00},
			want: ErrBadPreamble,
		},
		{
			name: "length checksum corrupted",
			raw:  corruptAt(4),
			want: ErrChecksumMismatch,
		},
		{
			name: "data checksum corrupted",
			raw:  corruptAt(len(valid) - 2),
			want: ErrChecksumMismatch,
		},
		{
			name: "payload byte corrupted",
			raw:  corruptAt(7),
			want: ErrChecksumMismatch,
		},
		{
			name: "cut after start code",
			raw:  valid[:4],
			want: ErrTruncated,
		},
		{
			name: "declared length exceeds data",
			raw:  valid[:len(valid)-3],
			want: ErrTruncated,
		},
		{
			name: "zero length field",
			raw:  []byte{0x00, 0x00, 0xFF, 0x00, 0x00, 0xD5},
			want: ErrTruncated, // LEN must cover at least the TFI
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Decode(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAckNackDetection(t *testing.T) {
	t.Parallel()
	if !IsAck(AckFrame) {
		t.Error("IsAck(AckFrame) = false")
	}
	if !IsNack(NackFrame) {
		t.Error("IsNack(NackFrame) = false")
	}
	if IsAck(NackFrame) || IsNack(AckFrame) {
		t.Error("ACK/NACK detection confused the two constants")
	}
	if IsAck([]byte{0x00, 0x00, 0xFF}) {
		t.Error("IsAck accepted a short buffer")
	}
}
