/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Transfer primitives
 */

package main

import (
	"fmt"
	"time"
)

const (
	// TransferBufSize is the size of the shared transfer buffer,
	// large enough for the largest single transfer ever issued
	TransferBufSize = 0xffff

	// calibWriteSize is the fixed size of a calib-write transfer
	calibWriteSize = 0x3000

	// calibPatternSize is the size of the synthesized ramp pattern
	calibPatternSize = 0xc000

	// calibBlockSize is the ramp pattern block size
	calibBlockSize = 64
)

// Outcome classifies the result of a single transfer
type Outcome int

// Outcome values
const (
	OutcomeOk      Outcome = iota // Transfer fully completed
	OutcomePartial                // Some, but not all bytes moved
	OutcomeFail                   // Underlying call failed
)

// String returns Outcome name
func (outcome Outcome) String() string {
	switch outcome {
	case OutcomeOk:
		return "ok"
	case OutcomePartial:
		return "partial"
	case OutcomeFail:
		return "fail"
	}

	return fmt.Sprintf("unknown (%d)", int(outcome))
}

// bulkOutcome classifies a bulk transfer result the way the device
// capture expects: full size is ok, a short transfer is partial,
// an error is a failure
func bulkOutcome(n, size int, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFail
	case n == size:
		return OutcomeOk
	default:
		return OutcomePartial
	}
}

// controlTransfer issues a single control transfer described by the
// record. Control transfers are atomic at this layer: there is no
// partial outcome
func (s *Session) controlTransfer(rec TransferRecord) Outcome {
	buf := s.buf[:rec.Size]
	copy(buf, rec.Payload)

	_, err := s.dev.Control(rec.RqType, rec.Request, rec.Value, rec.Index, buf)
	if err != nil {
		s.log.Error('!', "ctrl %2.2x/%2.2x val %4.4x idx %4.4x sz %d: %s",
			rec.RqType, rec.Request, rec.Value, rec.Index, rec.Size, err)
		return OutcomeFail
	}

	s.log.Trace(' ', "ctrl %2.2x/%2.2x val %4.4x idx %4.4x sz %d: ok",
		rec.RqType, rec.Request, rec.Value, rec.Index, rec.Size)

	if rec.Size > 0 {
		s.log.Dump(buf, "ctrl data:")
	}

	return OutcomeOk
}

// pollingControlTransfer repeats the control transfer until the first
// byte of the transfer buffer equals the expected byte. The scanner
// has no readiness notification; answering with the expected status
// byte is the only synchronization it offers. The retry count is
// bounded by the poll-retry-limit configuration parameter
func (s *Session) pollingControlTransfer(rec TransferRecord) Outcome {
	buf := s.buf[:rec.Size]

	for attempt := uint(0); attempt < Conf.PollRetryLimit; attempt++ {
		_, err := s.dev.Control(rec.RqType, rec.Request,
			rec.Value, rec.Index, buf)
		if err != nil {
			s.log.Error('!', "poll %2.2x/%2.2x expect %2.2x: %s",
				rec.RqType, rec.Request, rec.Expect, err)
			return OutcomeFail
		}

		if s.buf[0] == rec.Expect {
			s.log.Trace(' ', "poll %2.2x/%2.2x expect %2.2x: "+
				"ready after %d attempts",
				rec.RqType, rec.Request, rec.Expect, attempt+1)
			return OutcomeOk
		}
	}

	s.log.Error('!', "poll %2.2x/%2.2x expect %2.2x: %s",
		rec.RqType, rec.Request, rec.Expect, ErrPollRetriesExceeded)

	return OutcomeFail
}

// bulkRead issues a single bulk-in transfer of the declared size into
// the shared buffer. A short settle delay precedes the transfer to
// accommodate device-side buffering latency
func (s *Session) bulkRead(rec TransferRecord) Outcome {
	time.Sleep(Conf.SettleDelay)

	n, err := s.dev.BulkIn(s.buf[:rec.Size])
	outcome := bulkOutcome(n, rec.Size, err)

	switch outcome {
	case OutcomeFail:
		s.log.Error('!', "bulk-in sz %d: %s", rec.Size, err)
	case OutcomePartial:
		s.log.Debug(' ', "bulk-in sz %d: short read, %d bytes", rec.Size, n)
	default:
		s.log.Trace(' ', "bulk-in sz %d: ok", rec.Size)
	}

	return outcome
}

// bulkZeroWrite zero-fills the shared buffer up to the declared size
// and issues a single bulk-out transfer
func (s *Session) bulkZeroWrite(rec TransferRecord) Outcome {
	s.clearBuf(rec.Size)

	n, err := s.dev.BulkOut(s.buf[:rec.Size])
	outcome := bulkOutcome(n, rec.Size, err)

	if outcome == OutcomeFail {
		s.log.Error('!', "bulk-zero sz %d: %s", rec.Size, err)
	} else {
		s.log.Trace(' ', "bulk-zero sz %d: %s", rec.Size, outcome)
	}

	return outcome
}

// calibrationWrite zero-fills the fixed 0x3000-byte region of the
// shared buffer, overwrites its prefix with the captured calibration
// payload and writes the full region out
func (s *Session) calibrationWrite(rec TransferRecord) Outcome {
	s.clearBuf(calibWriteSize)
	copy(s.buf, s.tables.CalibData)

	n, err := s.dev.BulkOut(s.buf[:calibWriteSize])
	outcome := bulkOutcome(n, calibWriteSize, err)

	if outcome == OutcomeFail {
		s.log.Error('!', "calib-write: %s", err)
	} else {
		s.log.Trace(' ', "calib-write: %s", outcome)
	}

	return outcome
}

// calibrate synthesizes the deterministic ramp pattern directly into
// the shared buffer and writes it out: consecutive 64-byte blocks,
// each filled with a counter byte wrapping over 0x00..0xff, 0xc000
// bytes total
func (s *Session) calibrate() Outcome {
	for i := 0; i < calibPatternSize; i += calibBlockSize {
		c := byte(i / calibBlockSize)
		for j := 0; j < calibBlockSize; j++ {
			s.buf[i+j] = c
		}
	}

	n, err := s.dev.BulkOut(s.buf[:calibPatternSize])
	outcome := bulkOutcome(n, calibPatternSize, err)

	if outcome == OutcomeFail {
		s.log.Error('!', "calibrate: %s", err)
	} else {
		s.log.Trace(' ', "calibrate: %s", outcome)
	}

	return outcome
}

// clearBuf zero-fills the first n bytes of the shared buffer
func (s *Session) clearBuf(n int) {
	for i := 0; i < n; i++ {
		s.buf[i] = 0
	}
}
