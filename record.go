/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Transfer records and their decoding
 */

package main

import (
	"fmt"
)

// Leading opcode bytes of captured rows. Everything else is a plain
// control transfer. The opcode is a local dispatch tag introduced by
// the capture tooling, it is not a part of the USB protocol
const (
	opcodeBulkRead   = 0xfa
	opcodePoll       = 0xfb
	opcodeCalibWrite = 0xfc
	opcodeCalibrate  = 0xfd
	opcodeBulkZero   = 0xff
)

// TransferOp classifies a decoded TransferRecord
type TransferOp int

// TransferOp values
const (
	OpControl TransferOp = iota
	OpPollControl
	OpBulkRead
	OpBulkZero
	OpCalibWrite
	OpCalibrate
)

// String returns TransferOp name
func (op TransferOp) String() string {
	switch op {
	case OpControl:
		return "ctrl"
	case OpPollControl:
		return "poll"
	case OpBulkRead:
		return "bulk-in"
	case OpBulkZero:
		return "bulk-zero"
	case OpCalibWrite:
		return "calib-write"
	case OpCalibrate:
		return "calibrate"
	}

	return fmt.Sprintf("unknown (%d)", int(op))
}

// TransferRecord is a single captured transfer, decoded from its raw
// row once at load time. Only the fields relevant for the operation
// are set. Records are immutable after decoding
type TransferRecord struct {
	Op       TransferOp // Operation kind
	RqType   uint8      // Control: bmRequestType
	Request  uint8      // Control: bRequest
	Value    uint16     // Control: wValue
	Index    uint16     // Control: wIndex
	Size     int        // Transfer size, bytes
	Payload  []byte     // Control data stage, exactly Size bytes
	Expect   byte       // Poll: byte the device answers when ready
	Endpoint uint8      // Bulk: endpoint number from the capture
}

// DecodeTransferRecord decodes a raw capture row. Rows follow the
// sniffusb layout the tables were captured in:
//
//	control:  rqType request valueL valueH indexL indexH sizeL sizeH payload...
//	0xfb:     0xfb rqType request valueL valueH indexL indexH sizeL sizeH expect
//	0xfa/0xff/0xfc: opcode endpoint sizeH sizeL
//	0xfd:     0xfd
//
// Opcodes 0xfc and 0xfd are only valid within the calibration table
func DecodeTransferRecord(row []byte, calibration bool) (TransferRecord, error) {
	var rec TransferRecord

	if len(row) == 0 {
		return rec, fmt.Errorf("empty row")
	}

	switch row[0] {
	case opcodeBulkRead, opcodeBulkZero:
		rec.Op = OpBulkRead
		if row[0] == opcodeBulkZero {
			rec.Op = OpBulkZero
		}

		if len(row) < 4 {
			return rec, fmt.Errorf("%s: row too short", rec.Op)
		}

		rec.Endpoint = row[1]
		rec.Size = int(row[2])<<8 | int(row[3])

	case opcodeCalibWrite:
		rec.Op = OpCalibWrite

		if !calibration {
			return rec, fmt.Errorf("%s: only valid in calibration table", rec.Op)
		}

		if len(row) < 4 {
			return rec, fmt.Errorf("%s: row too short", rec.Op)
		}

		rec.Endpoint = row[1]
		rec.Size = int(row[2])<<8 | int(row[3])

		if rec.Size != calibWriteSize {
			return rec, fmt.Errorf("%s: size 0x%x, must be 0x%x",
				rec.Op, rec.Size, calibWriteSize)
		}

	case opcodeCalibrate:
		rec.Op = OpCalibrate

		if !calibration {
			return rec, fmt.Errorf("%s: only valid in calibration table", rec.Op)
		}

	case opcodePoll:
		rec.Op = OpPollControl

		if len(row) < 10 {
			return rec, fmt.Errorf("%s: row too short", rec.Op)
		}

		rec.RqType = row[1]
		rec.Request = row[2]
		rec.Value = uint16(row[4])<<8 | uint16(row[3])
		rec.Index = uint16(row[6])<<8 | uint16(row[5])
		rec.Size = int(row[8])<<8 | int(row[7])
		rec.Expect = row[9]

	default:
		rec.Op = OpControl

		if len(row) < 8 {
			return rec, fmt.Errorf("%s: row too short", rec.Op)
		}

		rec.RqType = row[0]
		rec.Request = row[1]
		rec.Value = uint16(row[3])<<8 | uint16(row[2])
		rec.Index = uint16(row[5])<<8 | uint16(row[4])
		rec.Size = int(row[7])<<8 | int(row[6])

		// Fixed-width capture rows may be shorter than the declared
		// size; the missing payload tail is zero
		rec.Payload = make([]byte, rec.Size)
		copy(rec.Payload, row[8:])
	}

	if rec.Size > TransferBufSize {
		return rec, fmt.Errorf("%s: size 0x%x exceeds transfer buffer",
			rec.Op, rec.Size)
	}

	return rec, nil
}
