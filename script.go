/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Transfer script interpreter
 */

package main

import (
	"fmt"
)

// dispatch routes a single decoded record to its transfer primitive
func (s *Session) dispatch(rec TransferRecord) Outcome {
	switch rec.Op {
	case OpBulkRead:
		return s.bulkRead(rec)
	case OpPollControl:
		return s.pollingControlTransfer(rec)
	case OpBulkZero:
		return s.bulkZeroWrite(rec)
	case OpCalibWrite:
		return s.calibrationWrite(rec)
	case OpCalibrate:
		return s.calibrate()
	default:
		return s.controlTransfer(rec)
	}
}

// runTable runs a transfer table start-to-finish, record by record,
// in table order. Later records depend on device state left by the
// earlier ones, so records are never reordered or skipped.
//
// In strict mode the first non-Ok outcome terminates the run with an
// error. In lenient mode (the setup phase) non-Ok outcomes are
// counted and logged, and the run continues: the captured setup
// sequences contain non-critical steps whose individual failure does
// not prevent a correct scan
func (s *Session) runTable(phase Phase, table TransferTable, lenient bool) error {
	s.log.Debug(' ', "%s: %d records", phase, len(table))

	for i, rec := range table {
		outcome := s.dispatch(rec)
		if outcome == OutcomeOk {
			continue
		}

		if !lenient {
			reason := ErrTransferFailed
			if outcome == OutcomePartial {
				reason = ErrPartialTransfer
			}
			return fmt.Errorf("%s: record %d (%s): %w",
				phase, i, rec.Op, reason)
		}

		s.setupGlitches++
		s.log.Info('!', "%s: record %d (%s): %s (ignored)",
			phase, i, rec.Op, outcome)
	}

	s.log.Debug(' ', "%s: done", phase)
	return nil
}
