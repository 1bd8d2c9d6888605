/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Tests for configuration loading
 */

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestConfLoad tests loading of a configuration file
func TestConfLoad(t *testing.T) {
	saved := Conf
	defer func() { Conf = saved }()

	const content = `
[scan]
poll-retry-limit = 500
ctrl-timeout = 150ms
bulk-timeout = 5s
table-dir = /opt/primascan

[logging]
main-log = debug
console-log = error
max-file-size = 1m
max-backup-files = 3
`

	path := filepath.Join(t.TempDir(), ConfFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := confLoadInternal(path); err != nil {
		t.Fatalf("confLoadInternal: %s", err)
	}

	if Conf.PollRetryLimit != 500 {
		t.Errorf("poll-retry-limit: %d", Conf.PollRetryLimit)
	}
	if Conf.CtrlTimeout != 150*time.Millisecond {
		t.Errorf("ctrl-timeout: %s", Conf.CtrlTimeout)
	}
	if Conf.BulkTimeout != 5*time.Second {
		t.Errorf("bulk-timeout: %s", Conf.BulkTimeout)
	}
	if Conf.TableDir != "/opt/primascan" {
		t.Errorf("table-dir: %q", Conf.TableDir)
	}
	if Conf.LogMain != LogDebug|LogInfo|LogError {
		t.Errorf("main-log: %d", Conf.LogMain)
	}
	if Conf.LogConsole != LogError {
		t.Errorf("console-log: %d", Conf.LogConsole)
	}
	if Conf.LogMaxFileSize != 1024*1024 {
		t.Errorf("max-file-size: %d", Conf.LogMaxFileSize)
	}
	if Conf.LogMaxBackupFiles != 3 {
		t.Errorf("max-backup-files: %d", Conf.LogMaxBackupFiles)
	}
}

// TestConfBadValues tests rejection of invalid configuration values
func TestConfBadValues(t *testing.T) {
	saved := Conf
	defer func() { Conf = saved }()

	tests := []string{
		"[scan]\npoll-retry-limit = many\n",
		"[scan]\npoll-retry-limit = 0\n",
		"[scan]\nbulk-timeout = fast\n",
		"[logging]\nconsole-log = verbose\n",
		"[logging]\nmax-file-size = huge\n",
	}

	for _, content := range tests {
		path := filepath.Join(t.TempDir(), ConfFileName)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		if err := confLoadInternal(path); err == nil {
			t.Errorf("%q: error expected", content)
		}
	}
}

// TestConfMissingFile tests that a missing configuration file is not
// an error
func TestConfMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfFileName)

	if err := confLoadInternal(path); err != nil {
		t.Errorf("confLoadInternal: %s", err)
	}
}
