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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Expected response data lengths per command (not counting the response
// opcode). Reading more than the chip sends only clocks idle bytes, so
// variable-length responses use generous upper bounds.
const (
	respLenFirmware      = 4
	respLenGeneralStatus = 12
	respLenPassiveTarget = 30
	respLenStatusOnly    = 1
	maxResponseLen       = 252
)

// Device is the typed command layer for one PN532 over a synchronous
// serial bus.
//
// Thread safety: the Engine serializes individual handshakes, but
// multi-command sequences (authenticate then read, for instance) need a
// single owner or external locking, as the chip holds per-target state
// between commands.
type Device struct {
	engine *Engine
	log    *slog.Logger
}

// Option configures a Device during construction.
type Option func(*Device) error

// WithLogger attaches a structured logger to the device and its engine.
func WithLogger(log *slog.Logger) Option {
	return func(d *Device) error {
		if log == nil {
			return fmt.Errorf("logger must not be nil")
		}
		d.log = log
		d.engine.SetLogger(log)
		return nil
	}
}

// WithTimeout partitions a single per-call budget across the engine's
// ACK and response wait phases.
func WithTimeout(d time.Duration) Option {
	return func(dev *Device) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		dev.engine.SetTimeout(d)
		return nil
	}
}

// WithAckPolicy sets an explicit ACK-phase poll policy.
func WithAckPolicy(p PollPolicy) Option {
	return func(d *Device) error {
		d.engine.SetAckPolicy(p)
		return nil
	}
}

// WithResponsePolicy sets an explicit response-phase poll policy.
func WithResponsePolicy(p PollPolicy) Option {
	return func(d *Device) error {
		d.engine.SetResponsePolicy(p)
		return nil
	}
}

// New creates a PN532 device on the given bus. The device borrows the
// bus for its lifetime; closing the bus remains the caller's job.
func New(bus Bus, opts ...Option) (*Device, error) {
	device := &Device{
		engine: NewEngine(bus),
		log:    discardLogger(),
	}
	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}
	return device, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Engine exposes the underlying handshake engine for advanced callers.
func (d *Device) Engine() *Engine {
	return d.engine
}

// SetTimeout partitions a single budget across the engine's wait phases.
func (d *Device) SetTimeout(timeout time.Duration) {
	d.engine.SetTimeout(timeout)
}

// Init brings the chip to a known state: verifies it responds to
// GetFirmwareVersion, puts the SAM in normal mode and bounds the chip's
// internal passive-activation retries so detection calls cannot block
// forever.
func (d *Device) Init(ctx context.Context) error {
	fw, err := d.GetFirmwareVersionContext(ctx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	d.log.Info("PN532 detected", "ic", fmt.Sprintf("0x%02X", fw.IC), "firmware", fw.String())

	if err := d.SAMConfigurationContext(ctx, SAMModeNormal, 0x14, true); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	// 10 retries is roughly one second; the default 0xFF waits forever.
	if err := d.SetPassiveActivationRetriesContext(ctx, 0x0A); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

// GetFirmwareVersion returns the chip's IC type, firmware version and
// protocol support flags.
func (d *Device) GetFirmwareVersion() (*FirmwareVersion, error) {
	return d.GetFirmwareVersionContext(context.Background())
}

// GetFirmwareVersionContext is GetFirmwareVersion with context support.
func (d *Device) GetFirmwareVersionContext(ctx context.Context) (*FirmwareVersion, error) {
	res, err := d.engine.Call(ctx, cmdGetFirmwareVersion, nil, respLenFirmware)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChipNotResponding, err)
	}
	if len(res) < 4 {
		return nil, fmt.Errorf("firmware version response: %w", ErrTruncated)
	}
	return &FirmwareVersion{
		IC:       res[0],
		Version:  res[1],
		Revision: res[2],
		Support:  res[3],
	}, nil
}

// SAMConfiguration selects the chip's SAM companion mode. The timeout
// byte only applies to virtual-card mode (units of 50 ms); useIRQ
// controls whether the chip drives the IRQ pin.
func (d *Device) SAMConfiguration(mode SAMMode, timeout byte, useIRQ bool) error {
	return d.SAMConfigurationContext(context.Background(), mode, timeout, useIRQ)
}

// SAMConfigurationContext is SAMConfiguration with context support.
func (d *Device) SAMConfigurationContext(ctx context.Context, mode SAMMode, timeout byte, useIRQ bool) error {
	irq := byte(0x00)
	if useIRQ {
		irq = 0x01
	}
	_, err := d.engine.Call(ctx, cmdSamConfiguration, []byte{byte(mode), timeout, irq}, 0)
	if err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	return nil
}

// ReadPassiveTarget polls once for a passive target with the given baud
// profile and returns its UID and selection data. A clean zero-target
// response from the chip yields ErrNoTargetDetected, the normal "no card
// present" outcome; every other failure is a genuine fault.
func (d *Device) ReadPassiveTarget(baud BaudRate) (*Target, error) {
	return d.ReadPassiveTargetContext(context.Background(), baud)
}

// ReadPassiveTargetContext is ReadPassiveTarget with context support.
func (d *Device) ReadPassiveTargetContext(ctx context.Context, baud BaudRate) (*Target, error) {
	// MaxTg fixed at one target; the driver does not track multiple
	// simultaneous selections.
	res, err := d.engine.Call(ctx, cmdInListPassiveTarget, []byte{0x01, byte(baud)}, respLenPassiveTarget)
	if err != nil {
		return nil, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}
	if len(res) < 1 {
		return nil, fmt.Errorf("InListPassiveTarget response: %w", ErrTruncated)
	}
	if res[0] == 0x00 {
		return nil, ErrNoTargetDetected
	}

	target, _, err := parseTarget(res, 1)
	if err != nil {
		return nil, err
	}
	d.log.Debug("target detected", "uid", target.UIDString(), "tg", target.TargetNumber)
	return target, nil
}

// DataExchange relays data to the currently selected target through
// InDataExchange and returns the target's answer. The chip's status byte
// is validated; a non-zero status surfaces as a *ChipError.
func (d *Device) DataExchange(data []byte) ([]byte, error) {
	return d.DataExchangeContext(context.Background(), data)
}

// DataExchangeContext is DataExchange with context support.
func (d *Device) DataExchangeContext(ctx context.Context, data []byte) ([]byte, error) {
	return d.dataExchange(ctx, data, maxResponseLen)
}

func (d *Device) dataExchange(ctx context.Context, data []byte, respLen int) ([]byte, error) {
	// Target number 1: the single target ReadPassiveTarget activates.
	args := append([]byte{0x01}, data...)
	res, err := d.engine.Call(ctx, cmdInDataExchange, args, respLen)
	if err != nil {
		return nil, fmt.Errorf("InDataExchange failed: %w", err)
	}
	if len(res) < 1 {
		return nil, fmt.Errorf("InDataExchange response: %w", ErrTruncated)
	}
	if res[0] != 0x00 {
		return nil, &ChipError{Command: cmdName(cmdInDataExchange), Code: res[0]}
	}
	return res[1:], nil
}

// CommunicateThru sends raw RF data to the target, bypassing the chip's
// protocol handling.
func (d *Device) CommunicateThru(data []byte) ([]byte, error) {
	return d.CommunicateThruContext(context.Background(), data)
}

// CommunicateThruContext is CommunicateThru with context support.
func (d *Device) CommunicateThruContext(ctx context.Context, data []byte) ([]byte, error) {
	res, err := d.engine.Call(ctx, cmdInCommunicateThru, data, maxResponseLen)
	if err != nil {
		return nil, fmt.Errorf("InCommunicateThru failed: %w", err)
	}
	if len(res) < 1 {
		return nil, fmt.Errorf("InCommunicateThru response: %w", ErrTruncated)
	}
	if res[0] != 0x00 {
		return nil, &ChipError{Command: cmdName(cmdInCommunicateThru), Code: res[0]}
	}
	return res[1:], nil
}

// InRelease releases the selected target (0 releases all), clearing any
// HALT state the chip holds for it.
func (d *Device) InRelease(targetNumber byte) error {
	return d.InReleaseContext(context.Background(), targetNumber)
}

// InReleaseContext is InRelease with context support.
func (d *Device) InReleaseContext(ctx context.Context, targetNumber byte) error {
	res, err := d.engine.Call(ctx, cmdInRelease, []byte{targetNumber}, respLenStatusOnly)
	if err != nil {
		return fmt.Errorf("InRelease failed: %w", err)
	}
	if len(res) < 1 {
		return fmt.Errorf("InRelease response: %w", ErrTruncated)
	}
	if res[0] != 0x00 {
		return &ChipError{Command: cmdName(cmdInRelease), Code: res[0]}
	}
	return nil
}

// GetGeneralStatus reports the chip's last error, RF field state and
// number of currently controlled targets.
func (d *Device) GetGeneralStatus() (*GeneralStatus, error) {
	return d.GetGeneralStatusContext(context.Background())
}

// GetGeneralStatusContext is GetGeneralStatus with context support.
func (d *Device) GetGeneralStatusContext(ctx context.Context) (*GeneralStatus, error) {
	res, err := d.engine.Call(ctx, cmdGetGeneralStatus, nil, respLenGeneralStatus)
	if err != nil {
		return nil, fmt.Errorf("GetGeneralStatus failed: %w", err)
	}
	if len(res) < 3 {
		return nil, fmt.Errorf("GetGeneralStatus response: %w", ErrTruncated)
	}
	return &GeneralStatus{
		LastError:    res[0],
		FieldPresent: res[1] == 0x01,
		Targets:      res[2],
	}, nil
}

// Diagnose runs one of the chip's self-test routines.
func (d *Device) Diagnose(testNumber byte, data []byte) (*DiagnoseResult, error) {
	return d.DiagnoseContext(context.Background(), testNumber, data)
}

// DiagnoseContext is Diagnose with context support.
func (d *Device) DiagnoseContext(ctx context.Context, testNumber byte, data []byte) (*DiagnoseResult, error) {
	args := append([]byte{testNumber}, data...)
	res, err := d.engine.Call(ctx, cmdDiagnose, args, maxResponseLen)
	if err != nil {
		return nil, fmt.Errorf("diagnose failed: %w", err)
	}

	result := &DiagnoseResult{TestNumber: testNumber, Data: res}
	switch testNumber {
	case DiagnoseCommunicationTest:
		// The communication test echoes the whole command back.
		result.Success = bytes.Equal(res, args)
	case DiagnoseROMTest, DiagnoseRAMTest:
		result.Success = len(res) == 1 && res[0] == 0x00
	case DiagnosePollingTest:
		// Returns the number of failed polls.
		result.Success = len(res) == 1 && res[0] == 0x00
	default:
		result.Success = true
	}
	return result, nil
}

// SetPassiveActivationRetries bounds the chip's internal retry loop for
// passive activation. 0xFF retries forever, which can wedge detection
// until a power cycle; finite values make InListPassiveTarget return a
// zero-target response instead.
func (d *Device) SetPassiveActivationRetries(maxRetries byte) error {
	return d.SetPassiveActivationRetriesContext(context.Background(), maxRetries)
}

// SetPassiveActivationRetriesContext is SetPassiveActivationRetries with
// context support.
func (d *Device) SetPassiveActivationRetriesContext(ctx context.Context, maxRetries byte) error {
	// RF configuration item 0x05: MxRtyATR, MxRtyPSL, MxRtyPassiveActivation.
	args := []byte{0x05, 0xFF, 0x01, maxRetries}
	if _, err := d.engine.Call(ctx, cmdRFConfiguration, args, 0); err != nil {
		return fmt.Errorf("failed to set passive activation retries: %w", err)
	}
	return nil
}

// PowerDown puts the chip into power-down mode until one of the given
// wake-up sources fires.
func (d *Device) PowerDown(wakeupEnable, irqEnable byte) error {
	return d.PowerDownContext(context.Background(), wakeupEnable, irqEnable)
}

// PowerDownContext is PowerDown with context support.
func (d *Device) PowerDownContext(ctx context.Context, wakeupEnable, irqEnable byte) error {
	res, err := d.engine.Call(ctx, cmdPowerDown, []byte{wakeupEnable, irqEnable}, respLenStatusOnly)
	if err != nil {
		return fmt.Errorf("PowerDown failed: %w", err)
	}
	if len(res) >= 1 && res[0] != 0x00 {
		return &ChipError{Command: cmdName(cmdPowerDown), Code: res[0]}
	}
	return nil
}
