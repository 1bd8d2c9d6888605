/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * .INI file loader
 */

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// IniFile represents opened .INI file
type IniFile struct {
	file    *os.File       // Underlying file
	scanner *bufio.Scanner // Line scanner on a top of file
	rec     IniRecord      // Next record
}

// IniRecord represents a single .INI file record
type IniRecord struct {
	Section    string // Section name
	Key, Value string // Key and value
	File       string // Origin file
	Line       int    // Line in that file
}

// OpenIniFile opens the .INI file for reading
func OpenIniFile(path string) (*IniFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	ini := &IniFile{
		file:    f,
		scanner: bufio.NewScanner(f),
		rec: IniRecord{
			File: path,
		},
	}

	return ini, nil
}

// Close the .INI file
func (ini *IniFile) Close() error {
	return ini.file.Close()
}

// Next returns the next key = value record, or io.EOF at the end
// of the file. Section headers don't generate records of their own;
// they update the Section field of subsequent records
func (ini *IniFile) Next() (*IniRecord, error) {
	for ini.scanner.Scan() {
		ini.rec.Line++

		line := strings.TrimSpace(ini.stripComment(ini.scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, ini.errorf("unterminated section name")
			}

			ini.rec.Section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, ini.errorf("expected '=' character")
		}

		ini.rec.Key = strings.TrimSpace(key)
		ini.rec.Value = iniUnquote(strings.TrimSpace(value))

		if ini.rec.Key == "" {
			return nil, ini.errorf("empty key")
		}

		return &ini.rec, nil
	}

	if err := ini.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

// stripComment removes a trailing comment, respecting quotes
func (ini *IniFile) stripComment(line string) string {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ';', '#':
			if !quoted {
				return line[:i]
			}
		}
	}

	return line
}

// iniUnquote strips a level of double quotes, if any
func iniUnquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

// errorf creates a parse error prefixed with file and line
func (ini *IniFile) errorf(format string, args ...interface{}) error {
	prefix := fmt.Sprintf("%s:%d: ", ini.rec.File, ini.rec.Line)
	return fmt.Errorf(prefix+format, args...)
}
