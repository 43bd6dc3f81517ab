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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZaparooProject/go-pn532spi/internal/frame"
	"github.com/ZaparooProject/go-pn532spi/internal/syncutil"
)

// PN532 SPI protocol bytes prefixed to every data transfer. The status
// read convention lives in the bus adapter; these two mark the direction
// of frame data.
const (
	spiDataWrite = 0x01
	spiDataRead  = 0x03
)

// csSettleDelay is the pause between toggling chip-select and clocking
// data, per the PN532 datasheet SPI timing.
const csSettleDelay = 2 * time.Millisecond

// responseSlack is extra read length to absorb idle bytes the chip may
// clock out ahead of a response frame.
const responseSlack = 2

// PollPolicy bounds one ready-poll phase: the chip is sampled up to
// MaxAttempts times with Interval between samples.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Budget returns the worst-case duration the policy can occupy.
func (p PollPolicy) Budget() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// DefaultAckPolicy bounds the wait for the chip to acknowledge a frame.
// The PN532 normally raises ready within a millisecond of a valid frame.
func DefaultAckPolicy() PollPolicy {
	return PollPolicy{Interval: 5 * time.Millisecond, MaxAttempts: 40}
}

// DefaultResponsePolicy bounds the wait for a command response. RF
// operations such as passive target detection can take the better part of
// a second.
func DefaultResponsePolicy() PollPolicy {
	return PollPolicy{Interval: 10 * time.Millisecond, MaxAttempts: 100}
}

// Engine drives the PN532 request/response handshake over a borrowed Bus:
// wake-up sequencing, frame write, ready polling, ACK validation and
// response decoding. One Engine owns its bus exclusively; calls are
// serialized internally because a frame exchange cannot be interleaved.
type Engine struct {
	bus   Bus
	log   *slog.Logger
	ack   PollPolicy
	resp  PollPolicy
	awake bool
	mu    syncutil.Mutex
}

// NewEngine creates a handshake engine on the given bus with default poll
// policies and no logging. The engine borrows the bus; it never closes it.
func NewEngine(bus Bus) *Engine {
	return &Engine{
		bus:  bus,
		log:  discardLogger(),
		ack:  DefaultAckPolicy(),
		resp: DefaultResponsePolicy(),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// SetAckPolicy replaces the ACK-phase poll policy.
func (e *Engine) SetAckPolicy(p PollPolicy) { e.ack = p }

// SetResponsePolicy replaces the response-phase poll policy.
func (e *Engine) SetResponsePolicy(p PollPolicy) { e.resp = p }

// SetTimeout partitions a single budget across the ACK and response poll
// phases, keeping each phase's interval. The ACK phase gets a quarter of
// the budget; the chip acknowledges quickly but may compute a response
// for much longer.
func (e *Engine) SetTimeout(d time.Duration) {
	e.ack = policyForBudget(d/4, e.ack.Interval)
	e.resp = policyForBudget(d-d/4, e.resp.Interval)
}

func policyForBudget(budget, interval time.Duration) PollPolicy {
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	attempts := int(budget / interval)
	if attempts < 1 {
		attempts = 1
	}
	return PollPolicy{Interval: interval, MaxAttempts: attempts}
}

// Call runs one full command/response handshake: the command opcode and
// args are framed and written, the chip's ACK is awaited and validated,
// then the response frame is read, decoded and correlated against the
// command. respLen is the expected length of the response data after the
// response opcode; reading a few bytes more than the chip sends is
// harmless.
//
// On any failure the engine resets to idle; the next call re-runs the
// wake-up sequence because a failed exchange leaves the chip's state
// unspecified.
func (e *Engine) Call(ctx context.Context, cmd byte, args []byte, respLen int) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("call aborted: %w", err)
	}

	wire, err := frame.Encode(frame.HostToPn532, append([]byte{cmd}, args...))
	if err != nil {
		// Nothing was sent; the chip state is untouched.
		return nil, err
	}

	if !e.awake {
		if err := e.wakeup(); err != nil {
			return nil, err
		}
	}

	data, err := e.transceive(ctx, cmd, wire, respLen)
	if err != nil {
		e.awake = false
		return nil, err
	}
	return data, nil
}

// transceive performs the FrameSent -> AwaitingAck -> AwaitingResponse
// portion of the handshake.
func (e *Engine) transceive(ctx context.Context, cmd byte, wire []byte, respLen int) ([]byte, error) {
	if err := e.writeData(wire); err != nil {
		return nil, err
	}
	e.log.Debug("frame written", "cmd", cmdName(cmd), "len", len(wire))

	if err := e.awaitAck(ctx); err != nil {
		return nil, err
	}

	if err := e.waitReady(ctx, e.resp, "awaitResponse", ErrResponseTimeout); err != nil {
		return nil, err
	}

	raw, err := e.readData(respLen + 2 + frame.Overhead + responseSlack)
	if err != nil {
		return nil, err
	}

	tfi, payload, err := frame.Decode(raw)
	if err != nil {
		e.log.Debug("response decode failed", "cmd", cmdName(cmd), "err", err)
		return nil, err
	}

	return e.correlate(cmd, tfi, payload)
}

// correlate validates that a decoded frame answers the outstanding
// command and strips the response opcode.
func (e *Engine) correlate(cmd, tfi byte, payload []byte) ([]byte, error) {
	if tfi == frame.ErrorTFI {
		code := byte(0x7F)
		if len(payload) > 0 {
			code = payload[0]
		}
		return nil, &ChipError{Command: cmdName(cmd), Code: code}
	}
	if tfi != frame.Pn532ToHost {
		return nil, NewBusError("correlate", ErrInvalidResponse, ErrorTypePermanent)
	}
	if len(payload) == 0 || payload[0] != cmd+1 {
		return nil, NewBusError("correlate", ErrOpcodeMismatch, ErrorTypePermanent)
	}
	e.log.Debug("response received", "cmd", cmdName(cmd), "len", len(payload)-1)
	return payload[1:], nil
}

// wakeup primes the chip after power-up or a failed exchange by clocking
// a dummy byte with chip-select asserted.
func (e *Engine) wakeup() error {
	e.log.Debug("waking up PN532")
	if err := e.bus.Select(true); err != nil {
		return newBusFault("wakeup", err)
	}
	e.bus.Sleep(csSettleDelay)
	_, err := e.bus.Exchange([]byte{0x00})
	e.bus.Sleep(csSettleDelay)
	if derr := e.bus.Select(false); derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		return newBusFault("wakeup", err)
	}
	e.awake = true
	return nil
}

// awaitAck polls for readiness and validates the chip's 6-byte ACK.
func (e *Engine) awaitAck(ctx context.Context) error {
	if err := e.waitReady(ctx, e.ack, "awaitAck", ErrAckTimeout); err != nil {
		return err
	}

	buf, err := e.readData(len(frame.AckFrame))
	if err != nil {
		return err
	}

	switch {
	case frame.IsAck(buf):
		return nil
	case frame.IsNack(buf):
		e.log.Debug("NACK received")
		return NewBusError("awaitAck", ErrNakReceived, ErrorTypeTransient)
	default:
		return NewBusError("awaitAck", ErrInvalidResponse, ErrorTypePermanent)
	}
}

// waitReady polls the ready signal under the given policy.
func (e *Engine) waitReady(ctx context.Context, policy PollPolicy, op string, timeoutErr error) error {
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", op, ctx.Err())
		default:
		}

		ready, err := e.bus.Ready()
		if err != nil {
			return newBusFault(op, err)
		}
		if ready {
			return nil
		}
		e.bus.Sleep(policy.Interval)
	}
	e.log.Debug("ready poll exhausted", "op", op, "attempts", policy.MaxAttempts)
	return NewBusError(op, timeoutErr, ErrorTypeTimeout)
}

// writeData clocks a buffer to the chip under the data-write prefix.
func (e *Engine) writeData(p []byte) error {
	tx := make([]byte, 0, len(p)+1)
	tx = append(tx, spiDataWrite)
	tx = append(tx, p...)
	return e.transfer("writeData", tx, nil)
}

// readData clocks n bytes from the chip under the data-read prefix. The
// status byte exchanged alongside the prefix is stripped.
func (e *Engine) readData(n int) ([]byte, error) {
	tx := make([]byte, n+1)
	tx[0] = spiDataRead
	var rx []byte
	if err := e.transfer("readData", tx, &rx); err != nil {
		return nil, err
	}
	if len(rx) != len(tx) {
		return nil, newBusFault("readData", errors.New("short exchange"))
	}
	return rx[1:], nil
}

// transfer wraps one select/exchange/deselect cycle with settle delays.
func (e *Engine) transfer(op string, tx []byte, rx *[]byte) error {
	if err := e.bus.Select(true); err != nil {
		return newBusFault(op, err)
	}
	e.bus.Sleep(csSettleDelay)
	got, err := e.bus.Exchange(tx)
	e.bus.Sleep(csSettleDelay)
	if derr := e.bus.Select(false); derr != nil && err == nil {
		err = derr
	}
	if err != nil {
		return newBusFault(op, err)
	}
	if rx != nil {
		*rx = got
	}
	return nil
}

func newBusFault(op string, cause error) *BusError {
	return &BusError{
		Op:        op,
		Err:       fmt.Errorf("%w: %v", ErrBusFault, cause),
		Type:      ErrorTypeTransient,
		Retryable: true,
	}
}
