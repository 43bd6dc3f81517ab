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

import "time"

// Bus is the synchronous-serial transport adapter the driver talks
// through. Implementations wrap the physical SPI link plus the
// chip-select and ready/IRQ lines; see the spibus package for the
// periph.io-backed implementation.
//
// The adapter normalizes the PN532's LSB-first byte order, so the driver
// always sees MSB-first bytes. Ready reports the chip's data-ready
// indication, whether sampled from the IRQ line or read through the SPI
// status convention.
//
// Sleep is on the interface so tests can drive the poll loops with a
// virtual clock instead of real delays.
type Bus interface {
	// Exchange performs a full-duplex transfer and returns exactly
	// len(tx) received bytes.
	Exchange(tx []byte) ([]byte, error)

	// Select asserts (true) or deasserts (false) the chip-select line.
	Select(active bool) error

	// Ready samples the chip's ready indication.
	Ready() (bool, error)

	// Sleep blocks for the given duration.
	Sleep(d time.Duration)
}

// BusCloser is a Bus that owns an OS resource and must be closed when the
// driver is done with it. The driver itself only borrows the bus; closing
// is the owner's job.
type BusCloser interface {
	Bus
	Close() error
}
