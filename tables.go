/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Capture table files
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Phase names a stage of the scan session. Each phase is backed by
// its own transfer table
type Phase int

// Phase values
const (
	PhaseInitialize Phase = iota
	PhaseSetup
	PhaseCalibration
	PhaseScan
	PhaseFinalize
)

// String returns Phase name
func (phase Phase) String() string {
	switch phase {
	case PhaseInitialize:
		return "initialize"
	case PhaseSetup:
		return "setup"
	case PhaseCalibration:
		return "calibration"
	case PhaseScan:
		return "scan"
	case PhaseFinalize:
		return "finalize"
	}

	return fmt.Sprintf("unknown (%d)", int(phase))
}

// TransferTable is an ordered sequence of decoded transfer records.
// Order is significant: later records depend on device state left by
// earlier ones
type TransferTable []TransferRecord

// TableSet bundles the per-phase tables of one device capture,
// read-only after loading
type TableSet struct {
	Initialize  TransferTable // Device initialization
	SetupColor  TransferTable // Setup for the 100 dpi color scan
	SetupText   TransferTable // Setup for the 200 dpi text scan
	Calibration TransferTable // Analog front-end calibration
	ScanColor   TransferTable // The 100 dpi color scan itself
	ScanText    TransferTable // The 200 dpi text scan itself
	Finalize    TransferTable // Post-scan finalization
	CalibData   []byte        // Payload prefix for calib-write records

	path string // Origin file
}

// Path returns the file the table set was loaded from
func (tables *TableSet) Path() string {
	return tables.path
}

// Setup returns the setup table for the mode
func (tables *TableSet) Setup(mode ScanMode) TransferTable {
	if mode == ModeText {
		return tables.SetupText
	}
	return tables.SetupColor
}

// Scan returns the scan table for the mode
func (tables *TableSet) Scan(mode ScanMode) TransferTable {
	if mode == ModeText {
		return tables.ScanText
	}
	return tables.ScanColor
}

// FindTableSet loads the capture table set, trying the explicit path
// first (if not ""), then the configured table directory
func FindTableSet(path string) (*TableSet, error) {
	files := []string{path}
	if path == "" {
		files = []string{
			filepath.Join(Conf.TableDir, TableFileName),
			filepath.Join(PathConfDir, TableFileName),
		}
	}

	for _, file := range files {
		tables, err := LoadTableSet(file)
		if err == nil || !os.IsNotExist(err) {
			return tables, err
		}
	}

	return nil, ErrNoTables
}

// LoadTableSet loads a capture table file.
//
// The file format follows the capture the tables came from: one
// `[section]` per phase (initialize, setup-color, setup-text,
// calibration, scan-color, scan-text, finalize), one row of
// whitespace-separated hex bytes per transfer, plus a
// [calibration-data] section holding the raw calib-write payload.
// '#' and ';' start a comment
func LoadTableSet(path string) (*TableSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	tables := &TableSet{path: path}
	section := ""
	lineno := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, fmt.Errorf("%s:%d: unterminated section name",
					path, lineno)
			}

			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		row, err := tableParseRow(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s", path, lineno, err)
		}

		if section == "calibration-data" {
			tables.CalibData = append(tables.CalibData, row...)
			continue
		}

		table, err := tables.tableBySection(section)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s", path, lineno, err)
		}

		rec, err := DecodeTransferRecord(row, section == "calibration")
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s", path, lineno, err)
		}

		*table = append(*table, rec)
	}

	if err = scanner.Err(); err != nil {
		return nil, err
	}

	return tables, tables.validate()
}

// tableParseRow parses a row of hex bytes
func tableParseRow(line string) ([]byte, error) {
	fields := strings.Fields(line)
	row := make([]byte, len(fields))

	for i, field := range fields {
		b, err := strconv.ParseUint(field, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%q: invalid hex byte", field)
		}
		row[i] = byte(b)
	}

	return row, nil
}

// tableBySection maps a section name to the table it fills
func (tables *TableSet) tableBySection(section string) (*TransferTable, error) {
	switch section {
	case "initialize":
		return &tables.Initialize, nil
	case "setup-color":
		return &tables.SetupColor, nil
	case "setup-text":
		return &tables.SetupText, nil
	case "calibration":
		return &tables.Calibration, nil
	case "scan-color":
		return &tables.ScanColor, nil
	case "scan-text":
		return &tables.ScanText, nil
	case "finalize":
		return &tables.Finalize, nil
	case "":
		return nil, fmt.Errorf("transfer row outside of any section")
	default:
		return nil, fmt.Errorf("unknown section %q", section)
	}
}

// validate performs whole-set consistency checks
func (tables *TableSet) validate() error {
	missing := []string{}

	for _, t := range []struct {
		name  string
		table TransferTable
	}{
		{"initialize", tables.Initialize},
		{"setup-color", tables.SetupColor},
		{"setup-text", tables.SetupText},
		{"calibration", tables.Calibration},
		{"scan-color", tables.ScanColor},
		{"scan-text", tables.ScanText},
		{"finalize", tables.Finalize},
	} {
		if len(t.table) == 0 {
			missing = append(missing, t.name)
		}
	}

	if len(missing) != 0 {
		return fmt.Errorf("%s: missing sections: %s",
			tables.path, strings.Join(missing, ", "))
	}

	for _, rec := range tables.Calibration {
		if rec.Op == OpCalibWrite && len(tables.CalibData) == 0 {
			return fmt.Errorf("%s: calib-write present, "+
				"but no [calibration-data]", tables.path)
		}
	}

	if len(tables.CalibData) > calibWriteSize {
		return fmt.Errorf("%s: calibration data exceeds 0x%x bytes",
			tables.path, calibWriteSize)
	}

	return nil
}
