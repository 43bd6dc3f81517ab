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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-pn532spi/internal/frame"
)

// sentCommand decodes the nth command frame the device wrote and returns
// its opcode and arguments.
func sentCommand(t *testing.T, bus *MockBus, n int) (byte, []byte) {
	t.Helper()

	var count int
	for _, w := range bus.Writes() {
		if len(w) < 2 || w[0] != spiDataWrite {
			continue
		}
		if count == n {
			tfi, payload, err := frame.Decode(w[1:])
			require.NoError(t, err)
			require.Equal(t, byte(frame.HostToPn532), tfi)
			require.NotEmpty(t, payload)
			return payload[0], payload[1:]
		}
		count++
	}
	t.Fatalf("command frame %d not found in %d writes", n, len(bus.Writes()))
	return 0, nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name: "No_Options",
		},
		{
			name: "With_Timeout",
			opts: []Option{WithTimeout(time.Second)},
		},
		{
			name:    "Invalid_Timeout",
			opts:    []Option{WithTimeout(0)},
			wantErr: true,
		},
		{
			name:    "Nil_Logger",
			opts:    []Option{WithLogger(nil)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := New(NewMockBus(), tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, device)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, device)
			}
		})
	}
}

func TestDevice_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdGetFirmwareVersion + 1, 0x32, 0x01, 0x06, 0x07})

	device, err := New(bus)
	require.NoError(t, err)

	fw, err := device.GetFirmwareVersionContext(context.Background())
	require.NoError(t, err)

	assert.Equal(t, byte(0x32), fw.IC)
	assert.Equal(t, "1.6", fw.String())
	assert.True(t, fw.SupportsISO14443A())
	assert.True(t, fw.SupportsISO14443B())
	assert.True(t, fw.SupportsISO18092())
}

func TestDevice_GetFirmwareVersion_ChipSilent(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	bus.SetReadyDefault(false)

	device, err := New(bus, WithAckPolicy(PollPolicy{Interval: time.Millisecond, MaxAttempts: 3}))
	require.NoError(t, err)

	_, err = device.GetFirmwareVersionContext(context.Background())
	require.ErrorIs(t, err, ErrChipNotResponding)
	require.ErrorIs(t, err, ErrAckTimeout)
}

func TestDevice_SAMConfiguration(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdSamConfiguration + 1})

	device, err := New(bus)
	require.NoError(t, err)

	err = device.SAMConfigurationContext(context.Background(), SAMModeNormal, 0x14, true)
	require.NoError(t, err)

	cmd, args := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdSamConfiguration), cmd)
	assert.Equal(t, []byte{0x01, 0x14, 0x01}, args)
}

func TestDevice_Init(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdGetFirmwareVersion + 1, 0x32, 0x01, 0x06, 0x07})
	scriptFrameWrite(bus)
	scriptAck(bus)
	scriptResponse(t, bus, []byte{cmdSamConfiguration + 1})
	scriptFrameWrite(bus)
	scriptAck(bus)
	scriptResponse(t, bus, []byte{cmdRFConfiguration + 1})

	device, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, device.Init(context.Background()))

	cmd, _ := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdGetFirmwareVersion), cmd)

	cmd, args := sentCommand(t, bus, 1)
	assert.Equal(t, byte(cmdSamConfiguration), cmd)
	assert.Equal(t, byte(SAMModeNormal), args[0])

	cmd, args = sentCommand(t, bus, 2)
	assert.Equal(t, byte(cmdRFConfiguration), cmd)
	assert.Equal(t, []byte{0x05, 0xFF, 0x01, 0x0A}, args)
}

func TestDevice_ReadPassiveTarget(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{
		cmdInListPassiveTarget + 1,
		0x01,       // NbTg
		0x01,       // Tg
		0x00, 0x04, // SENS_RES
		0x08, // SEL_RES
		0x04, // UID length
		0x00, 0x0A, 0x33, 0xC0,
	})

	device, err := New(bus)
	require.NoError(t, err)

	target, err := device.ReadPassiveTargetContext(context.Background(), Baud106kbitTypeA)
	require.NoError(t, err)

	assert.Equal(t, byte(0x01), target.TargetNumber)
	assert.Equal(t, [2]byte{0x00, 0x04}, target.SensRes)
	assert.Equal(t, byte(0x08), target.SelRes)
	assert.Equal(t, []byte{0x00, 0x0A, 0x33, 0xC0}, target.UID)
	assert.Equal(t, "000a33c0", target.UIDString())

	cmd, args := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdInListPassiveTarget), cmd)
	assert.Equal(t, []byte{0x01, 0x00}, args, "MaxTg=1, BrTy=106kbit type A")
}

func TestDevice_ReadPassiveTarget_SevenByteUID(t *testing.T) {
	t.Parallel()

	uid := []byte{0x04, 0x6E, 0x1A, 0x2A, 0xDB, 0x4D, 0x80}
	payload := append([]byte{
		cmdInListPassiveTarget + 1,
		0x01, 0x01, 0x00, 0x44, 0x00, 0x07,
	}, uid...)

	bus := NewMockBus()
	scriptCall(t, bus, payload)

	device, err := New(bus)
	require.NoError(t, err)

	target, err := device.ReadPassiveTargetContext(context.Background(), Baud106kbitTypeA)
	require.NoError(t, err)
	assert.Equal(t, uid, target.UID)
}

func TestDevice_ReadPassiveTarget_NoTarget(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdInListPassiveTarget + 1, 0x00})

	device, err := New(bus)
	require.NoError(t, err)

	target, err := device.ReadPassiveTargetContext(context.Background(), Baud106kbitTypeA)
	require.ErrorIs(t, err, ErrNoTargetDetected)
	assert.Nil(t, target)

	// A clean zero-target answer is not a fault of any kind.
	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}

func TestDevice_ReadPassiveTarget_BadUIDLength(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{
		cmdInListPassiveTarget + 1,
		0x01, 0x01, 0x00, 0x04, 0x08,
		0x05, // not a valid cascade length
		0x01, 0x02, 0x03, 0x04, 0x05,
	})

	device, err := New(bus)
	require.NoError(t, err)

	_, err = device.ReadPassiveTargetContext(context.Background(), Baud106kbitTypeA)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestDevice_DataExchange(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdInDataExchange + 1, 0x00, 0xCA, 0xFE})

	device, err := New(bus)
	require.NoError(t, err)

	res, err := device.DataExchangeContext(context.Background(), []byte{0x30, 0x04})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE}, res)

	cmd, args := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdInDataExchange), cmd)
	assert.Equal(t, []byte{0x01, 0x30, 0x04}, args, "target number prefixed")
}

func TestDevice_DataExchange_ChipStatusError(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdInDataExchange + 1, 0x14})

	device, err := New(bus)
	require.NoError(t, err)

	_, err = device.DataExchangeContext(context.Background(), []byte{0x30, 0x04})

	var chipErr *ChipError
	require.ErrorAs(t, err, &chipErr)
	assert.Equal(t, byte(0x14), chipErr.Code)
	assert.True(t, chipErr.IsAuthenticationError())
}

func TestDevice_InRelease(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdInRelease + 1, 0x00})

	device, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, device.InReleaseContext(context.Background(), 0x01))

	cmd, args := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdInRelease), cmd)
	assert.Equal(t, []byte{0x01}, args)
}

func TestDevice_GetGeneralStatus(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdGetGeneralStatus + 1, 0x00, 0x01, 0x01, 0x01, 0x00, 0x40})

	device, err := New(bus)
	require.NoError(t, err)

	status, err := device.GetGeneralStatusContext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), status.LastError)
	assert.True(t, status.FieldPresent)
	assert.Equal(t, byte(0x01), status.Targets)
}

func TestDevice_Diagnose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		testNumber  byte
		data        []byte
		respData    []byte
		wantSuccess bool
	}{
		{
			name:        "Communication_Echo_OK",
			testNumber:  DiagnoseCommunicationTest,
			data:        []byte{0x11, 0x22},
			respData:    []byte{DiagnoseCommunicationTest, 0x11, 0x22},
			wantSuccess: true,
		},
		{
			name:        "Communication_Echo_Corrupted",
			testNumber:  DiagnoseCommunicationTest,
			data:        []byte{0x11, 0x22},
			respData:    []byte{DiagnoseCommunicationTest, 0x11, 0x23},
			wantSuccess: false,
		},
		{
			name:        "ROM_Test_OK",
			testNumber:  DiagnoseROMTest,
			respData:    []byte{0x00},
			wantSuccess: true,
		},
		{
			name:        "RAM_Test_Failed",
			testNumber:  DiagnoseRAMTest,
			respData:    []byte{0xFF},
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bus := NewMockBus()
			scriptCall(t, bus, append([]byte{cmdDiagnose + 1}, tt.respData...))

			device, err := New(bus)
			require.NoError(t, err)

			result, err := device.DiagnoseContext(context.Background(), tt.testNumber, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
		})
	}
}

func TestDevice_PowerDown(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	scriptCall(t, bus, []byte{cmdPowerDown + 1, 0x00})

	device, err := New(bus)
	require.NoError(t, err)
	require.NoError(t, device.PowerDownContext(context.Background(), WakeupSPI|WakeupRF, 0x00))

	cmd, args := sentCommand(t, bus, 0)
	assert.Equal(t, byte(cmdPowerDown), cmd)
	assert.Equal(t, []byte{0x22, 0x00}, args)
}
