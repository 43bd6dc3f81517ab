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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-pn532spi/internal/frame"
)

// Frame codec errors, surfaced unchanged from the codec.
var (
	// ErrPayloadTooLarge indicates a command payload over the standard
	// frame limit. Caller error, never retried.
	ErrPayloadTooLarge = frame.ErrPayloadTooLarge
	// ErrBadPreamble indicates a response frame whose fixed header bytes
	// did not match.
	ErrBadPreamble = frame.ErrBadPreamble
	// ErrChecksumMismatch indicates a response frame failing either the
	// length or the data checksum.
	ErrChecksumMismatch = frame.ErrChecksumMismatch
	// ErrTruncated indicates a response frame shorter than its declared
	// length.
	ErrTruncated = frame.ErrTruncated
)

// Handshake and bus errors.
var (
	// ErrAckTimeout indicates the chip never signalled ready for the ACK
	// within the configured poll budget.
	ErrAckTimeout = errors.New("timeout waiting for ACK")
	// ErrResponseTimeout indicates the chip never signalled ready for the
	// response within the configured poll budget.
	ErrResponseTimeout = errors.New("timeout waiting for response")
	// ErrNakReceived indicates the chip explicitly rejected the last frame.
	ErrNakReceived = errors.New("NACK received")
	// ErrOpcodeMismatch indicates a well-formed response that does not
	// belong to the outstanding command.
	ErrOpcodeMismatch = errors.New("response opcode does not match command")
	// ErrInvalidResponse indicates a response that is neither ACK, NACK
	// nor a well-formed frame in the expected shape.
	ErrInvalidResponse = errors.New("invalid response format")
	// ErrBusFault indicates an I/O failure reported by the bus adapter.
	ErrBusFault = errors.New("bus fault")
	// ErrChipNotResponding indicates the chip could not be reached at all,
	// typically during the firmware version check.
	ErrChipNotResponding = errors.New("PN532 not responding")
)

// ErrNoTargetDetected is the normal "no card present" outcome of a
// detection call. It is distinguished from ErrResponseTimeout by the
// chip's own zero-target response and should be checked with errors.Is
// rather than treated as a fault.
var ErrNoTargetDetected = errors.New("no target detected")

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// BusError wraps handshake and bus-level errors with the operation that
// failed and a retry classification.
type BusError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Type      ErrorType // Error category
	Retryable bool      // Whether a fresh attempt may succeed
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// NewBusError creates a bus error with consistent retry classification.
func NewBusError(op string, err error, errType ErrorType) *BusError {
	return &BusError{
		Op:        op,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// ChipError wraps an in-band error code reported by the PN532, either in
// an application error frame (TFI 0x7F) or in a command status byte.
type ChipError struct {
	Command string
	Code    byte
}

func (e *ChipError) Error() string {
	return fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.Code, chipErrorCodeMeaning(e.Code))
}

// chipErrorCodeMeaning returns a human-readable meaning for PN532 error
// codes from the user manual section 7.1.
func chipErrorCodeMeaning(code byte) string {
	meanings := map[byte]string{
		0x00: "success",
		0x01: "timeout",
		0x02: "CRC error",
		0x03: "parity error",
		0x04: "erroneous bit count during anti-collision",
		0x05: "framing error during mifare operation",
		0x06: "abnormal bit collision",
		0x07: "communication buffer size insufficient",
		0x09: "RF buffer overflow",
		0x0A: "RF field not activated in time",
		0x0B: "RF protocol error",
		0x0D: "overheating",
		0x0E: "internal buffer overflow",
		0x10: "invalid parameter",
		0x13: "data format does not match",
		0x14: "authentication error",
		0x23: "UID check byte is wrong",
		0x25: "invalid device state",
		0x26: "operation not allowed",
		0x27: "wrong context for command",
		0x29: "target released by initiator",
		0x2A: "card ID mismatch",
		0x2B: "card disappeared",
		0x2D: "over-current event",
		0x7F: "command syntax error",
		0x81: "command not supported",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "unknown error"
}

// IsTimeout returns true if the chip reported an RF-side timeout.
func (e *ChipError) IsTimeout() bool {
	return e.Code == 0x01
}

// IsAuthenticationError returns true if the chip reported a Mifare
// authentication failure.
func (e *ChipError) IsAuthenticationError() bool {
	return e.Code == 0x14
}

// IsCommandNotSupported returns true if the chip rejected the command
// opcode outright.
func (e *ChipError) IsCommandNotSupported() bool {
	return e.Code == 0x81
}

// IsRetryable returns true if a fresh attempt at the failed operation may
// succeed. Protocol corruption is retryable only after the engine has
// re-synchronized; precondition violations never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var be *BusError
	if errors.As(err, &be) {
		return be.Retryable
	}

	var ce *ChipError
	if errors.As(err, &ce) {
		return ce.IsTimeout() || ce.IsAuthenticationError()
	}

	switch {
	case errors.Is(err, ErrAckTimeout),
		errors.Is(err, ErrResponseTimeout),
		errors.Is(err, ErrNakReceived),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrBadPreamble),
		errors.Is(err, ErrTruncated):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the bus or chip is gone and
// further attempts are pointless without reopening the adapter. This is
// distinct from IsRetryable, which covers single-operation retries.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var be *BusError
	if errors.As(err, &be) {
		return be.Type == ErrorTypePermanent
	}

	return errors.Is(err, ErrBusFault)
}
