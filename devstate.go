/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Per-device persistent state
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/ini.v1"
)

// DevState manages per-device persistent state: scan counters and
// the accumulated record of tolerated setup glitches, kept so that
// suspicious setup records can be correlated with bad scans across
// runs
type DevState struct {
	Ident         string // Device identification
	TotalScans    uint   // Completed scans, lifetime
	SetupGlitches uint   // Tolerated setup failures, lifetime
	LastMode      string // Mode of the last scan

	path string // Path to the disk file
}

// LoadDevState loads DevState from a disk file
func LoadDevState(ident string) *DevState {
	state := &DevState{
		Ident: ident,
	}
	state.path = state.devStatePath()

	inifile, err := ini.Load(state.path)
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Error('!', "STATE LOAD: %s", state.error("%s", err))
		}
		return state
	}

	if section, _ := inifile.GetSection("device"); section != nil {
		state.TotalScans = state.loadUint(section, "total-scans")
		state.SetupGlitches = state.loadUint(section, "setup-glitches")
		state.LastMode = state.loadString(section, "last-mode")
	}

	return state
}

// Load unsigned counter, defaults to 0
func (state *DevState) loadUint(section *ini.Section, name string) uint {
	if key, _ := section.GetKey(name); key != nil {
		num, err := key.Uint()
		if err != nil {
			Log.Error('!', "STATE LOAD: %s", state.error("%s", err))
			return 0
		}
		return uint(num)
	}

	return 0
}

// Load string, defaults to ""
func (state *DevState) loadString(section *ini.Section, name string) string {
	if key, _ := section.GetKey(name); key != nil {
		return key.String()
	}

	return ""
}

// ScanDone accumulates the results of a completed session and saves
// the state
func (state *DevState) ScanDone(session *Session) {
	state.TotalScans++
	state.SetupGlitches += uint(session.SetupGlitches())
	state.LastMode = session.Mode().String()
	state.Save()
}

// Save updates DevState on disk
func (state *DevState) Save() {
	os.MkdirAll(PathProgStateDev, 0755)

	inifile := ini.Empty()
	section, _ := inifile.NewSection("device")

	section.NewKey("total-scans", strconv.FormatUint(uint64(state.TotalScans), 10))
	section.NewKey("setup-glitches", strconv.FormatUint(uint64(state.SetupGlitches), 10))

	if state.LastMode != "" {
		section.NewKey("last-mode", state.LastMode)
	}

	err := inifile.SaveTo(state.path)
	if err != nil {
		Log.Error('!', "STATE SAVE: %s", state.error("%s", err))
	}
}

// devStatePath returns a path to the per-device state file
func (state *DevState) devStatePath() string {
	return filepath.Join(PathProgStateDev, state.Ident+".state")
}

// error creates a state-related error
func (state *DevState) error(format string, args ...interface{}) error {
	return fmt.Errorf(state.Ident+": "+format, args...)
}
