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
	"time"

	"github.com/ZaparooProject/go-pn532spi/internal/syncutil"
)

// MockBus is a scripted Bus implementation for testing. Exchanges are
// answered from a FIFO queue of canned receive buffers, the ready signal
// follows a scripted sequence, and Sleep advances a virtual clock instead
// of blocking, so poll-loop timeouts run instantly and deterministically.
type MockBus struct {
	exchangeErr  error
	readyErr     error
	rxQueue      [][]byte
	readySeq     []bool
	writes       [][]byte
	elapsed      time.Duration
	selectCount  int
	readyPolls   int
	selected     bool
	readyDefault bool
	mu           syncutil.RWMutex
}

// NewMockBus returns a mock bus whose ready line is permanently asserted.
// Tests that exercise the poll loops override this with SetReadySequence
// or SetReadyDefault.
func NewMockBus() *MockBus {
	return &MockBus{readyDefault: true}
}

// Exchange implements Bus. The returned buffer is the next queued receive
// buffer padded or truncated to len(tx); when the queue is empty, zeros
// are returned.
func (m *MockBus) Exchange(tx []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txCopy := make([]byte, len(tx))
	copy(txCopy, tx)
	m.writes = append(m.writes, txCopy)

	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}

	rx := make([]byte, len(tx))
	if len(m.rxQueue) > 0 {
		copy(rx, m.rxQueue[0])
		m.rxQueue = m.rxQueue[1:]
	}
	return rx, nil
}

// Select implements Bus.
func (m *MockBus) Select(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = active
	if active {
		m.selectCount++
	}
	return nil
}

// Ready implements Bus. Scripted values are consumed one per call; once
// the script is exhausted the default level is reported.
func (m *MockBus) Ready() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyPolls++
	if m.readyErr != nil {
		return false, m.readyErr
	}
	if len(m.readySeq) > 0 {
		r := m.readySeq[0]
		m.readySeq = m.readySeq[1:]
		return r, nil
	}
	return m.readyDefault, nil
}

// Sleep implements Bus by advancing the virtual clock.
func (m *MockBus) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elapsed += d
}

// Test helper methods

// QueueExchange appends a canned receive buffer for a future Exchange
// call. Pass nil for exchanges whose received bytes do not matter.
func (m *MockBus) QueueExchange(rx []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rxCopy := make([]byte, len(rx))
	copy(rxCopy, rx)
	m.rxQueue = append(m.rxQueue, rxCopy)
}

// SetReadySequence scripts the next Ready samples.
func (m *MockBus) SetReadySequence(seq ...bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readySeq = append(m.readySeq, seq...)
}

// SetReadyDefault sets the level reported once the scripted sequence is
// exhausted.
func (m *MockBus) SetReadyDefault(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyDefault = ready
}

// SetExchangeError injects an error for all subsequent Exchange calls.
func (m *MockBus) SetExchangeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeErr = err
}

// SetReadyError injects an error for all subsequent Ready calls.
func (m *MockBus) SetReadyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyErr = err
}

// Writes returns copies of the transmit buffers seen so far.
func (m *MockBus) Writes() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Elapsed returns the total virtual time spent in Sleep.
func (m *MockBus) Elapsed() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.elapsed
}

// ReadyPolls returns how many times Ready was sampled.
func (m *MockBus) ReadyPolls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readyPolls
}

// SelectCount returns how many times the chip-select line was asserted.
func (m *MockBus) SelectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selectCount
}
