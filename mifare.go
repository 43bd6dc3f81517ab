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
	"context"
	"fmt"
)

// Mifare and NTAG card command bytes sent through InDataExchange.
const (
	mifareCmdAuthA     = 0x60
	mifareCmdAuthB     = 0x61
	mifareCmdRead      = 0x30
	mifareCmdWrite     = 0xA0
	ntag2xxCmdWrite    = 0xA2
	mifareBlockSize    = 16
	ntag2xxPageSize    = 4
	respLenMifareRead  = mifareBlockSize + 1 // status + block
	respLenMifareWrite = respLenStatusOnly
)

// MifareKeyType selects which of a Mifare Classic sector's two keys to
// authenticate with.
type MifareKeyType byte

const (
	// MifareKeyA authenticates with key A.
	MifareKeyA MifareKeyType = mifareCmdAuthA
	// MifareKeyB authenticates with key B.
	MifareKeyB MifareKeyType = mifareCmdAuthB
)

// MifareDefaultKey is the transport-configuration key most blank cards
// ship with.
var MifareDefaultKey = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// MifareAuthenticate authenticates a Mifare Classic block with the given
// key before reading or writing it. The UID must be the one returned by
// ReadPassiveTarget for the card.
func (d *Device) MifareAuthenticate(uid []byte, block byte, keyType MifareKeyType, key []byte) error {
	return d.MifareAuthenticateContext(context.Background(), uid, block, keyType, key)
}

// MifareAuthenticateContext is MifareAuthenticate with context support.
func (d *Device) MifareAuthenticateContext(
	ctx context.Context, uid []byte, block byte, keyType MifareKeyType, key []byte,
) error {
	if len(key) != 6 {
		return fmt.Errorf("mifare key must be 6 bytes, got %d", len(key))
	}
	if len(uid) != 4 && len(uid) != 7 && len(uid) != 10 {
		return fmt.Errorf("mifare UID must be 4, 7 or 10 bytes, got %d", len(uid))
	}

	data := make([]byte, 0, 2+len(key)+len(uid))
	data = append(data, byte(keyType), block)
	data = append(data, key...)
	data = append(data, uid...)

	if _, err := d.dataExchange(ctx, data, respLenMifareWrite); err != nil {
		return fmt.Errorf("mifare authenticate block %d: %w", block, err)
	}
	return nil
}

// MifareReadBlock reads one 16-byte block from an authenticated Mifare
// Classic card.
func (d *Device) MifareReadBlock(block byte) ([]byte, error) {
	return d.MifareReadBlockContext(context.Background(), block)
}

// MifareReadBlockContext is MifareReadBlock with context support.
func (d *Device) MifareReadBlockContext(ctx context.Context, block byte) ([]byte, error) {
	res, err := d.dataExchange(ctx, []byte{mifareCmdRead, block}, respLenMifareRead)
	if err != nil {
		return nil, fmt.Errorf("mifare read block %d: %w", block, err)
	}
	if len(res) < mifareBlockSize {
		return nil, fmt.Errorf("mifare read block %d: %w", block, ErrTruncated)
	}
	return res[:mifareBlockSize], nil
}

// MifareWriteBlock writes one 16-byte block to an authenticated Mifare
// Classic card.
func (d *Device) MifareWriteBlock(block byte, data []byte) error {
	return d.MifareWriteBlockContext(context.Background(), block, data)
}

// MifareWriteBlockContext is MifareWriteBlock with context support.
func (d *Device) MifareWriteBlockContext(ctx context.Context, block byte, data []byte) error {
	if len(data) != mifareBlockSize {
		return fmt.Errorf("mifare block data must be %d bytes, got %d", mifareBlockSize, len(data))
	}
	args := append([]byte{mifareCmdWrite, block}, data...)
	if _, err := d.dataExchange(ctx, args, respLenMifareWrite); err != nil {
		return fmt.Errorf("mifare write block %d: %w", block, err)
	}
	return nil
}

// NTAG2xxReadPage reads one 4-byte page from an NTAG2xx tag. The chip
// returns 16 bytes (four pages) per read command; only the requested page
// is returned.
func (d *Device) NTAG2xxReadPage(page byte) ([]byte, error) {
	return d.NTAG2xxReadPageContext(context.Background(), page)
}

// NTAG2xxReadPageContext is NTAG2xxReadPage with context support.
func (d *Device) NTAG2xxReadPageContext(ctx context.Context, page byte) ([]byte, error) {
	res, err := d.dataExchange(ctx, []byte{mifareCmdRead, page}, respLenMifareRead)
	if err != nil {
		return nil, fmt.Errorf("ntag2xx read page %d: %w", page, err)
	}
	if len(res) < ntag2xxPageSize {
		return nil, fmt.Errorf("ntag2xx read page %d: %w", page, ErrTruncated)
	}
	return res[:ntag2xxPageSize], nil
}

// NTAG2xxWritePage writes one 4-byte page to an NTAG2xx tag.
func (d *Device) NTAG2xxWritePage(page byte, data []byte) error {
	return d.NTAG2xxWritePageContext(context.Background(), page, data)
}

// NTAG2xxWritePageContext is NTAG2xxWritePage with context support.
func (d *Device) NTAG2xxWritePageContext(ctx context.Context, page byte, data []byte) error {
	if len(data) != ntag2xxPageSize {
		return fmt.Errorf("ntag2xx page data must be %d bytes, got %d", ntag2xxPageSize, len(data))
	}
	args := append([]byte{ntag2xxCmdWrite, page}, data...)
	if _, err := d.dataExchange(ctx, args, respLenMifareWrite); err != nil {
		return fmt.Errorf("ntag2xx write page %d: %w", page, err)
	}
	return nil
}
