/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Common errors
 */

package main

import (
	"errors"
)

// Error values for primascan
var (
	ErrDeviceNotFound      = errors.New("Scanner is not connected")
	ErrTransferFailed      = errors.New("USB transfer failed")
	ErrPartialTransfer     = errors.New("USB transfer was short")
	ErrPollRetriesExceeded = errors.New("Device not ready: poll retry limit exceeded")
	ErrSessionFailed       = errors.New("Scan session is in the failed state")
	ErrSessionBusy         = errors.New("Scan session already in progress")
	ErrSessionNotStarted   = errors.New("Scan session was not started")
	ErrNoTables            = errors.New("Transfer tables not found")
	ErrFinalize            = errors.New("Scanner finalization failed")
)
