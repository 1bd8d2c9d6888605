/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Tests for capture table loading and record decoding
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestLoadTableSet tests loading of the synthetic capture file
func TestLoadTableSet(t *testing.T) {
	const path = "testdata/colorado2400u.tables"

	tables, err := LoadTableSet(path)
	if err != nil {
		t.Fatalf("LoadTableSet(%q): %s", path, err)
	}

	counts := []struct {
		name  string
		table TransferTable
		count int
	}{
		{"initialize", tables.Initialize, 2},
		{"setup-color", tables.SetupColor, 3},
		{"setup-text", tables.SetupText, 1},
		{"calibration", tables.Calibration, 3},
		{"scan-color", tables.ScanColor, 2},
		{"scan-text", tables.ScanText, 1},
		{"finalize", tables.Finalize, 1},
	}

	for _, c := range counts {
		if len(c.table) != c.count {
			t.Errorf("%s: %d records, expected %d",
				c.name, len(c.table), c.count)
		}
	}

	if !bytes.Equal(tables.CalibData,
		[]byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("calibration-data: %x", tables.CalibData)
	}

	// Control record field layout
	rec := tables.Initialize[1]
	if rec.Op != OpControl {
		t.Errorf("initialize[1]: op %s, expected %s", rec.Op, OpControl)
	}
	if rec.RqType != 0x40 || rec.Request != 0x0c {
		t.Errorf("initialize[1]: rqType/request %2.2x/%2.2x",
			rec.RqType, rec.Request)
	}
	if rec.Value != 0 || rec.Index != 0x458b || rec.Size != 2 {
		t.Errorf("initialize[1]: val %4.4x idx %4.4x sz %d",
			rec.Value, rec.Index, rec.Size)
	}
	if !bytes.Equal(rec.Payload, []byte{0xaa, 0x55}) {
		t.Errorf("initialize[1]: payload %x", rec.Payload)
	}

	// Poll record field layout
	rec = tables.SetupColor[0]
	if rec.Op != OpPollControl {
		t.Errorf("setup-color[0]: op %s, expected %s", rec.Op, OpPollControl)
	}
	if rec.RqType != 0x40 || rec.Request != 0x01 ||
		rec.Value != 3 || rec.Index != 0 ||
		rec.Size != 1 || rec.Expect != 0x38 {
		t.Errorf("setup-color[0]: %+v", rec)
	}

	// Bulk records
	if rec = tables.SetupColor[1]; rec.Op != OpBulkZero ||
		rec.Endpoint != 2 || rec.Size != 0x0a {
		t.Errorf("setup-color[1]: %+v", rec)
	}

	if rec = tables.ScanColor[0]; rec.Op != OpBulkRead || rec.Size != 2478 {
		t.Errorf("scan-color[0]: %+v", rec)
	}

	if rec = tables.ScanText[0]; rec.Op != OpBulkRead || rec.Size != 207 {
		t.Errorf("scan-text[0]: %+v", rec)
	}

	// Calibration records
	if rec = tables.Calibration[0]; rec.Op != OpCalibWrite ||
		rec.Size != 0x3000 {
		t.Errorf("calibration[0]: %+v", rec)
	}

	if rec = tables.Calibration[1]; rec.Op != OpCalibrate {
		t.Errorf("calibration[1]: %+v", rec)
	}
}

// TestDecodeUnknownOpcode tests that every unrecognized leading byte
// decodes into a plain control transfer
func TestDecodeUnknownOpcode(t *testing.T) {
	for _, opcode := range []byte{0x00, 0x21, 0x40, 0xc0, 0xfe} {
		row := []byte{opcode, 0x01, 0, 0, 0, 0, 0, 0}

		rec, err := DecodeTransferRecord(row, false)
		if err != nil {
			t.Errorf("opcode %2.2x: %s", opcode, err)
			continue
		}

		if rec.Op != OpControl {
			t.Errorf("opcode %2.2x: op %s, expected %s",
				opcode, rec.Op, OpControl)
		}
	}
}

// TestDecodeCalibrationOnly tests that 0xfc/0xfd records are rejected
// outside the calibration table
func TestDecodeCalibrationOnly(t *testing.T) {
	rows := [][]byte{
		{0xfc, 0x02, 0x30, 0x00},
		{0xfd},
	}

	for _, row := range rows {
		if _, err := DecodeTransferRecord(row, false); err == nil {
			t.Errorf("row % x: decoded outside calibration table", row)
		}

		if _, err := DecodeTransferRecord(row, true); err != nil {
			t.Errorf("row % x: %s", row, err)
		}
	}
}

// TestDecodeShortPayload tests zero-filling of a payload tail missing
// from a fixed-width capture row
func TestDecodeShortPayload(t *testing.T) {
	row := []byte{0x40, 0x01, 0, 0, 0, 0, 4, 0, 0xde, 0xad}

	rec, err := DecodeTransferRecord(row, false)
	if err != nil {
		t.Fatalf("DecodeTransferRecord: %s", err)
	}

	if !bytes.Equal(rec.Payload, []byte{0xde, 0xad, 0, 0}) {
		t.Errorf("payload %x", rec.Payload)
	}
}

// TestLoadTableSetErrors tests malformed capture files
func TestLoadTableSetErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing sections", "[initialize]\n40 04 00 00 00 00 00 00\n"},
		{"row outside section", "40 04 00 00 00 00 00 00\n"},
		{"unknown section", "[setup]\n40 04 00 00 00 00 00 00\n"},
		{"invalid hex", "[initialize]\n4g 00\n"},
		{"calibrate outside calibration", "[initialize]\nfd\n"},
		{"calib-write bad size", "[calibration]\nfc 02 20 00\n"},
	}

	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "bad.tables")
		if err := os.WriteFile(path, []byte(test.content), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadTableSet(path); err == nil {
			t.Errorf("%s: error expected", test.name)
		}
	}
}
