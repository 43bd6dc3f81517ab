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

// Package pn532spi drives the NXP PN532 NFC/RFID reader over a
// synchronous serial bus.
//
// The package is layered: internal/frame implements the PN532 wire
// codec (framing, checksums, ACK/NACK detection), Engine runs the
// command handshake (wake-up, frame write, ACK wait, response poll),
// and Device exposes typed commands on top of it (firmware query, SAM
// configuration, passive target detection, card data exchange).
//
// Hardware access goes through the Bus interface. The spibus
// subpackage provides an implementation backed by periph.io; tests use
// the scripted MockBus from this package.
//
// Basic usage:
//
//	bus, err := spibus.Open("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer bus.Close()
//
//	dev, err := pn532spi.New(bus)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := dev.Init(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	target, err := dev.ReadPassiveTarget(ctx, pn532spi.Baud106kbitTypeA)
//	if errors.Is(err, pn532spi.ErrNoTargetDetected) {
//		// no card in the field, poll again
//	}
package pn532spi
