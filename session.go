/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Scan session: phase state machine and chunked read pump
 */

package main

import (
	"fmt"
	"io"
)

// ScanMode selects one of the two supported scan modes. The mode is
// chosen before the session starts and is immutable for its duration
type ScanMode int

// ScanMode values
const (
	ModeColor ScanMode = iota // 100 dpi, 8-bit RGB
	ModeText                  // 200 dpi, 1-bit gray
)

// String returns ScanMode name
func (mode ScanMode) String() string {
	if mode == ModeText {
		return "text"
	}
	return "color"
}

// FrameGeometry describes the fixed frame the device produces in a
// scan mode
type FrameGeometry struct {
	DPI           int  // Scan resolution
	PixelsPerLine int  // Pixels per line
	Lines         int  // Lines per frame
	BytesPerLine  int  // Bytes per line, as transmitted
	OneBit        bool // 1-bit gray data, inverted polarity on the wire
}

// Geometry returns the frame geometry of the mode
func (mode ScanMode) Geometry() FrameGeometry {
	if mode == ModeText {
		return FrameGeometry{
			DPI:           200,
			PixelsPerLine: 1656,
			Lines:         2342,
			BytesPerLine:  207,
			OneBit:        true,
		}
	}

	return FrameGeometry{
		DPI:           100,
		PixelsPerLine: 826,
		Lines:         1221,
		BytesPerLine:  2478,
	}
}

// FrameBytes returns the total payload size of one frame
func (geom FrameGeometry) FrameBytes() int {
	return geom.Lines * geom.BytesPerLine
}

// SessionState enumerates scan session states. Transitions only move
// forward, except StateFailed, which is reachable from any state and
// is terminal
type SessionState int

// SessionState values
const (
	StateNotStarted SessionState = iota
	StateInitialized
	StateSetupDone
	StateCalibrated
	StateScanning
	StateFinalized
	StateFailed
)

// String returns SessionState name
func (state SessionState) String() string {
	switch state {
	case StateNotStarted:
		return "not-started"
	case StateInitialized:
		return "initialized"
	case StateSetupDone:
		return "setup-done"
	case StateCalibrated:
		return "calibrated"
	case StateScanning:
		return "scanning"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	}

	return fmt.Sprintf("unknown (%d)", int(state))
}

// Session drives one scan through its phases and exposes the scanned
// bytes as an io.Reader. The session owns the shared transfer buffer
// and the read cursor; it is not safe for concurrent use and a new
// session must not begin while another is mid-flight on the same
// device
type Session struct {
	dev    Transport    // Underlying USB transfers
	tables *TableSet    // Captured transfer tables
	mode   ScanMode     // Active scan mode
	log    *Logger      // Session log
	state  SessionState // Current phase

	// Shared transfer buffer, reused across all transfers of the
	// session so reads allocate nothing
	buf []byte

	// Read cursor
	pending int // Bytes buffered from the last bulk read
	offset  int // Offset of the first pending byte in buf
	scanIdx int // Next record in the scan table

	setupGlitches int  // Non-Ok setup records, tolerated
	finalized     bool // Finalize table already ran
}

var _ = io.Reader(&Session{})

// NewSession creates a new scan session over the device
func NewSession(dev Transport, tables *TableSet, mode ScanMode, log *Logger) *Session {
	return &Session{
		dev:    dev,
		tables: tables,
		mode:   mode,
		log:    log,
		buf:    make([]byte, TransferBufSize),
	}
}

// State returns the current session state
func (s *Session) State() SessionState {
	return s.state
}

// Mode returns the session scan mode
func (s *Session) Mode() ScanMode {
	return s.mode
}

// SetupGlitches returns the count of tolerated setup-phase failures
func (s *Session) SetupGlitches() int {
	return s.setupGlitches
}

// Start runs the initialize, setup and calibration phases. On
// success the session is ready to be drained via Read. Initialize
// and calibration failures fail the session but are recoverable by
// the caller: the device may be re-opened and a new session started
func (s *Session) Start() error {
	if s.state != StateNotStarted {
		return ErrSessionBusy
	}

	s.log.Info('+', "session: %s scan, tables from %s",
		s.mode, s.tables.Path())

	// Without initialization the device command interpreter is in
	// an unknown state, so any failure here is fatal
	err := s.runTable(PhaseInitialize, s.tables.Initialize, false)
	if err != nil {
		s.fail(err)
		return err
	}
	s.state = StateInitialized

	// Setup is lenient, see runTable
	s.runTable(PhaseSetup, s.tables.Setup(s.mode), true)
	s.state = StateSetupDone

	if s.setupGlitches != 0 {
		s.log.Info('!', "setup: %d records failed, continuing anyway",
			s.setupGlitches)
	}

	// A calibration failure corrupts the analog front-end state the
	// scan depends on
	err = s.runTable(PhaseCalibration, s.tables.Calibration, false)
	if err != nil {
		s.fail(err)
		return err
	}
	s.state = StateCalibrated

	return nil
}

// Read serves up to len(p) scanned bytes, advancing the scan table on
// demand. Bytes arrive in exactly the order the device transmitted
// them, re-chunked to the caller's capacity; in text mode every byte
// is bit-inverted to correct the device's reversed black/white
// polarity.
//
// A return of (0, nil) is legal and means "nothing produced yet,
// call again": it happens when the table record just executed was a
// control transfer carrying no image data. At the end of the frame
// the finalize table runs once and Read reports io.EOF
func (s *Session) Read(p []byte) (int, error) {
	switch {
	case s.state == StateFailed:
		return 0, ErrSessionFailed
	case s.state == StateFinalized:
		return 0, io.EOF
	case s.state != StateCalibrated && s.state != StateScanning:
		return 0, ErrSessionNotStarted
	}

	if len(p) == 0 {
		return 0, nil
	}

	table := s.tables.Scan(s.mode)

	for {
		// Serve bytes left over from the previous bulk read
		if s.pending > 0 {
			n := s.pending
			if n > len(p) {
				n = len(p)
			}

			copy(p, s.buf[s.offset:s.offset+n])
			if s.mode == ModeText {
				for i := 0; i < n; i++ {
					p[i] = ^p[i]
				}
			}

			s.pending -= n
			s.offset += n
			if s.pending == 0 {
				s.offset = 0
			}

			return n, nil
		}

		// Scan table exhausted: finalize and report end of stream.
		// The device is reset whenever the session ends, so the next
		// session starts from a known state
		if s.scanIdx >= len(table) {
			err := s.finalize()
			if err != nil {
				// The scan head has already completed its pass;
				// there is no safe retry point beyond this point
				s.log.Exit(1, "%s: %s", ErrFinalize, err)
			}

			err = s.dev.Reset()
			if err != nil {
				s.log.Error('!', "reset: %s", err)
			}

			s.state = StateFinalized
			return 0, io.EOF
		}

		rec := table[s.scanIdx]
		s.scanIdx++
		s.state = StateScanning

		if rec.Op == OpBulkRead {
			outcome := s.bulkRead(rec)
			if outcome == OutcomeFail {
				err := fmt.Errorf("scan: record %d: %w",
					s.scanIdx-1, ErrTransferFailed)
				s.fail(err)
				return 0, err
			}

			// The cursor always advances by the declared size: the
			// frame geometry is fixed, a short read only means the
			// tail of this chunk is stale buffer content
			s.pending = rec.Size
			s.offset = 0
			continue
		}

		outcome := s.dispatch(rec)
		if outcome != OutcomeOk {
			err := fmt.Errorf("scan: record %d (%s): %w",
				s.scanIdx-1, rec.Op, ErrTransferFailed)
			s.fail(err)
			return 0, err
		}

		// Produced nothing yet, caller must call again
		return 0, nil
	}
}

// Cancel aborts the session from any state: the finalize table is
// attempted (unless it already ran), the device is reset, and the
// session becomes unusable
func (s *Session) Cancel() {
	if s.state == StateFinalized {
		return
	}

	err := s.finalize()
	if err != nil {
		s.log.Error('!', "cancel: %s", err)
	}

	err = s.dev.Reset()
	if err != nil {
		s.log.Error('!', "cancel: reset: %s", err)
	}

	s.fail(fmt.Errorf("session cancelled"))
}

// finalize runs the finalize table. It never runs more than once per
// session
func (s *Session) finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	return s.runTable(PhaseFinalize, s.tables.Finalize, false)
}

// fail moves the session to the terminal failed state
func (s *Session) fail(err error) {
	if s.state != StateFailed {
		s.log.Error('!', "session failed: %s", err)
		s.state = StateFailed
	}
}
