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

package pn532spi

import (
	"encoding/hex"
	"fmt"
)

// BaudRate selects the card modulation profile for passive detection
// (the BrTy byte of InListPassiveTarget).
type BaudRate byte

const (
	// Baud106kbitTypeA - 106 kbps ISO/IEC 14443 Type A (Mifare, NTAG)
	Baud106kbitTypeA BaudRate = 0x00
	// Baud212kbitFeliCa - 212 kbps FeliCa polling
	Baud212kbitFeliCa BaudRate = 0x01
	// Baud424kbitFeliCa - 424 kbps FeliCa polling
	Baud424kbitFeliCa BaudRate = 0x02
	// Baud106kbitTypeB - 106 kbps ISO/IEC 14443-3 Type B
	Baud106kbitTypeB BaudRate = 0x03
	// Baud106kbitJewel - 106 kbps Innovision Jewel
	Baud106kbitJewel BaudRate = 0x04
)

// Target describes one passive target reported by InListPassiveTarget.
// The UID is 4, 7 or 10 bytes per ISO14443A cascade rules and is owned by
// the caller after return.
type Target struct {
	UID          []byte
	SensRes      [2]byte
	SelRes       byte
	TargetNumber byte
}

// UIDString returns the UID as lowercase hex.
func (t *Target) UIDString() string {
	return hex.EncodeToString(t.UID)
}

// parseTarget decodes the per-target portion of an InListPassiveTarget
// response payload at the given offset: target number, SENS_RES(2),
// SEL_RES(1), UID length, UID bytes.
func parseTarget(payload []byte, offset int) (*Target, int, error) {
	if offset+5 > len(payload) {
		return nil, 0, fmt.Errorf("target record: %w", ErrTruncated)
	}

	t := &Target{TargetNumber: payload[offset]}
	t.SensRes[0] = payload[offset+1]
	t.SensRes[1] = payload[offset+2]
	t.SelRes = payload[offset+3]

	uidLen := int(payload[offset+4])
	offset += 5
	if uidLen != 4 && uidLen != 7 && uidLen != 10 {
		return nil, 0, fmt.Errorf("unexpected UID length %d: %w", uidLen, ErrInvalidResponse)
	}
	if offset+uidLen > len(payload) {
		return nil, 0, fmt.Errorf("target UID: %w", ErrTruncated)
	}

	t.UID = make([]byte, uidLen)
	copy(t.UID, payload[offset:offset+uidLen])
	return t, offset + uidLen, nil
}
