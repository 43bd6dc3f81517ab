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

// Package frame implements the PN532 information frame codec: building
// wire frames around a TFI and payload, and parsing received frames back
// with structural and checksum validation.
package frame

import (
	"bytes"
	"errors"
)

// Codec errors. The root package re-exports these for callers.
var (
	// ErrPayloadTooLarge indicates an Encode payload over MaxPayload bytes.
	ErrPayloadTooLarge = errors.New("frame payload too large")
	// ErrBadPreamble indicates the fixed preamble/start code did not match.
	ErrBadPreamble = errors.New("frame preamble does not contain 00 FF")
	// ErrChecksumMismatch indicates the length or data checksum failed.
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
	// ErrTruncated indicates fewer bytes than the declared length requires.
	ErrTruncated = errors.New("frame truncated")
)

// Checksum computes the running sum of a data buffer, truncated to a byte.
func Checksum(data []byte) byte {
	chk := byte(0)
	for _, b := range data {
		chk += b
	}
	return chk
}

// Encode builds a complete wire frame around payload for the given TFI:
// preamble, start code, LEN, LCS, TFI, payload, DCS, postamble. Both
// checksums are correct by construction; the only failure is an oversized
// payload.
func Encode(tfi byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}

	length := byte(len(payload) + 1) // LEN covers TFI and payload
	buf := make([]byte, 0, len(payload)+Overhead+1)
	buf = append(buf, Preamble, StartCode1, StartCode2)
	buf = append(buf, length, ^length+1)
	buf = append(buf, tfi)
	buf = append(buf, payload...)
	dcs := tfi + Checksum(payload)
	buf = append(buf, ^dcs+1, Postamble)

	return buf, nil
}

// Decode parses a received wire frame, returning its TFI and payload.
// Leading 0x00 padding before the start code is tolerated because bus
// reads may clock out idle bytes ahead of the frame; trailing bytes after
// the postamble are ignored for the same reason. Decode never retries; the
// caller decides whether a failed read can be reattempted.
func Decode(raw []byte) (tfi byte, payload []byte, err error) {
	// Swallow the 0x00 bytes that precede the 0xFF start code.
	off := 0
	for off < len(raw) && raw[off] == 0x00 {
		off++
	}
	if off >= len(raw) {
		return 0, nil, ErrBadPreamble
	}
	if off == 0 || raw[off] != StartCode2 {
		return 0, nil, ErrBadPreamble
	}
	off++

	if off+2 > len(raw) {
		return 0, nil, ErrTruncated
	}
	length := int(raw[off])
	lcs := raw[off+1]
	if byte(length)+lcs != 0 {
		return 0, nil, ErrChecksumMismatch
	}
	if length == 0 {
		// LEN must cover at least the TFI.
		return 0, nil, ErrTruncated
	}
	off += 2

	// TFI + payload + DCS must all be present.
	if off+length+1 > len(raw) {
		return 0, nil, ErrTruncated
	}
	if Checksum(raw[off:off+length+1]) != 0 {
		return 0, nil, ErrChecksumMismatch
	}

	tfi = raw[off]
	payload = make([]byte, length-1)
	copy(payload, raw[off+1:off+length])
	return tfi, payload, nil
}

// IsAck reports whether buf begins with the fixed ACK frame.
func IsAck(buf []byte) bool {
	return len(buf) >= len(AckFrame) && bytes.Equal(buf[:len(AckFrame)], AckFrame)
}

// IsNack reports whether buf begins with the fixed NACK frame.
func IsNack(buf []byte) bool {
	return len(buf) >= len(NackFrame) && bytes.Equal(buf[:len(NackFrame)], NackFrame)
}
