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

// Package spibus implements the pn532spi.Bus interface on top of
// periph.io SPI ports.
//
// The PN532 clocks bits LSB first while periph.io SPI controllers are
// MSB first, so every byte is bit-reversed on the way in and out. The
// rest of the package is plumbing: optional GPIO chip-select and IRQ
// pins, and the status-read readiness probe used when no IRQ line is
// wired.
package spibus

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// spiStatRead asks the chip for its status byte; spiReady is the
	// answer once a frame is waiting.
	spiStatRead = 0x02
	spiReady    = 0x01

	defaultFreq = 1 * physic.MegaHertz
	mode        = spi.Mode0 // CPOL=0, CPHA=0; LSB first is handled by bit reversal
)

// Bus is a periph.io backed implementation of pn532spi.Bus.
type Bus struct {
	port     spi.PortCloser
	conn     spi.Conn
	csPin    gpio.PinIO
	irqPin   gpio.PinIO
	portName string
}

// Option configures a Bus during Open.
type Option func(*config)

type config struct {
	csPin  string
	irqPin string
	freq   physic.Frequency
}

// WithCSPin routes chip select through a GPIO pin instead of the
// controller's hardware CS. Needed on boards where the SPI driver
// deasserts CS between transfers but the PN532 wants it held across
// the wake-up dwell.
func WithCSPin(name string) Option {
	return func(c *config) { c.csPin = name }
}

// WithIRQPin uses the named GPIO pin for readiness checks instead of
// the SPI status-read command. The PN532 IRQ line is active low.
func WithIRQPin(name string) Option {
	return func(c *config) { c.irqPin = name }
}

// WithFrequency overrides the default 1 MHz SPI clock. The PN532
// supports up to 5 MHz.
func WithFrequency(freq physic.Frequency) Option {
	return func(c *config) { c.freq = freq }
}

// Open initializes the periph host, opens the named SPI port and
// returns a connected Bus. An empty portName selects the first
// available port.
func Open(portName string, opts ...Option) (*Bus, error) {
	cfg := config{freq: defaultFreq}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}

	conn, err := port.Connect(cfg.freq, mode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	bus := &Bus{
		port:     port,
		conn:     conn,
		portName: portName,
	}

	if cfg.csPin != "" {
		pin := gpioreg.ByName(cfg.csPin)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("CS pin %q not found", cfg.csPin)
		}
		// CS is active low, start deasserted.
		if err := pin.Out(gpio.High); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to configure CS pin %q: %w", cfg.csPin, err)
		}
		bus.csPin = pin
	}

	if cfg.irqPin != "" {
		pin := gpioreg.ByName(cfg.irqPin)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("IRQ pin %q not found", cfg.irqPin)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to configure IRQ pin %q: %w", cfg.irqPin, err)
		}
		bus.irqPin = pin
	}

	return bus, nil
}

// Ports lists the SPI ports registered on this host, for discovery in
// CLI tools.
func Ports() []string {
	if _, err := host.Init(); err != nil {
		return nil
	}
	refs := spireg.All()
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names
}

// Exchange performs a full-duplex transfer. Bytes are bit-reversed in
// both directions so callers see MSB-first data.
func (b *Bus) Exchange(tx []byte) ([]byte, error) {
	w := reverseBytes(tx)
	r := make([]byte, len(tx))
	if err := b.conn.Tx(w, r); err != nil {
		return nil, fmt.Errorf("SPI transfer on %q failed: %w", b.portName, err)
	}
	reverseInPlace(r)
	return r, nil
}

// Select drives the chip-select line when a GPIO CS pin is configured.
// With hardware CS each Tx asserts the line on its own, so this is a
// no-op.
func (b *Bus) Select(active bool) error {
	if b.csPin == nil {
		return nil
	}
	level := gpio.High
	if active {
		level = gpio.Low
	}
	if err := b.csPin.Out(level); err != nil {
		return fmt.Errorf("failed to drive CS pin: %w", err)
	}
	return nil
}

// Ready reports whether the chip has a frame waiting. With an IRQ pin
// this is a level read; otherwise it issues the status-read command.
func (b *Bus) Ready() (bool, error) {
	if b.irqPin != nil {
		return b.irqPin.Read() == gpio.Low, nil
	}

	w := []byte{reverseBit(spiStatRead), 0x00}
	r := make([]byte, len(w))
	if err := b.conn.Tx(w, r); err != nil {
		return false, fmt.Errorf("SPI status read on %q failed: %w", b.portName, err)
	}
	return reverseBit(r[1]) == spiReady, nil
}

// Sleep blocks for the given duration.
func (*Bus) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Close releases the SPI port. The CS line is deasserted first so the
// chip is not left selected.
func (b *Bus) Close() error {
	if b.csPin != nil {
		_ = b.csPin.Out(gpio.High)
	}
	if b.port != nil {
		if err := b.port.Close(); err != nil {
			return fmt.Errorf("SPI close failed: %w", err)
		}
		b.port = nil
	}
	return nil
}

// reverseBit reverses the bits in a byte (LSB <-> MSB).
func reverseBit(b byte) byte {
	var result byte
	for range 8 {
		result <<= 1
		result |= b & 1
		b >>= 1
	}
	return result
}

func reverseBytes(data []byte) []byte {
	reversed := make([]byte, len(data))
	for i, b := range data {
		reversed[i] = reverseBit(b)
	}
	return reversed
}

func reverseInPlace(data []byte) {
	for i, b := range data {
		data[i] = reverseBit(b)
	}
}
