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

import "fmt"

// FirmwareVersion is the raw GetFirmwareVersion response: the IC type,
// the firmware version/revision pair and the supported-protocols bitmask.
type FirmwareVersion struct {
	IC       byte
	Version  byte
	Revision byte
	Support  byte
}

// String formats the version the way the datasheet does, e.g. "1.6".
func (f FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d", f.Version, f.Revision)
}

// SupportsISO14443A reports ISO/IEC 14443 Type A support.
func (f FirmwareVersion) SupportsISO14443A() bool { return f.Support&0x01 != 0 }

// SupportsISO14443B reports ISO/IEC 14443 Type B support.
func (f FirmwareVersion) SupportsISO14443B() bool { return f.Support&0x02 != 0 }

// SupportsISO18092 reports ISO/IEC 18092 (NFC peer-to-peer) support.
func (f FirmwareVersion) SupportsISO18092() bool { return f.Support&0x04 != 0 }

// GeneralStatus is the decoded GetGeneralStatus response.
type GeneralStatus struct {
	LastError    byte
	FieldPresent bool
	Targets      byte
}

// DiagnoseResult is the outcome of one self-diagnosis test.
type DiagnoseResult struct {
	Data       []byte
	TestNumber byte
	Success    bool
}

// Diagnose test numbers.
const (
	DiagnoseCommunicationTest = 0x00
	DiagnoseROMTest           = 0x01
	DiagnoseRAMTest           = 0x02
	DiagnosePollingTest       = 0x04
	DiagnoseEchoBackTest      = 0x05
	DiagnoseAttentionTest     = 0x06
	DiagnoseSelfAntennaTest   = 0x07
)
