/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Program configuration
 */

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ConfFileName defines a name of primascan configuration file
	ConfFileName = "primascan.conf"
)

// Configuration represents a program configuration
type Configuration struct {
	PollRetryLimit    uint          // Polling control transfer retry bound
	CtrlTimeout       time.Duration // Control transfer timeout
	BulkTimeout       time.Duration // Bulk transfer timeout
	SettleDelay       time.Duration // Delay before each bulk read
	TableDir          string        // Directory with capture table files
	LogMain           LogLevel      // Main log LogLevel mask
	LogConsole        LogLevel      // Console LogLevel mask
	LogMaxFileSize    int64         // Maximum log file size
	LogMaxBackupFiles uint          // Count of files preserved during rotation
}

// Conf contains a global instance of program configuration
var Conf = Configuration{
	PollRetryLimit:    10000,
	CtrlTimeout:       300 * time.Millisecond,
	BulkTimeout:       2 * time.Second,
	SettleDelay:       time.Millisecond,
	TableDir:          PathTableDir,
	LogMain:           LogDebug | LogInfo | LogError,
	LogConsole:        LogInfo | LogError,
	LogMaxFileSize:    256 * 1024,
	LogMaxBackupFiles: 5,
}

// ConfLoad loads the program configuration
func ConfLoad() error {
	// Obtain path to executable directory
	exepath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("conf: %s", err)
	}

	exepath = filepath.Dir(exepath)

	// Build list of configuration files
	files := []string{
		filepath.Join(PathConfDir, ConfFileName),
		filepath.Join(exepath, ConfFileName),
	}

	// Load file by file
	for _, file := range files {
		err = confLoadInternal(file)
		if err != nil {
			return fmt.Errorf("conf: %s", err)
		}
	}

	Log.SetLevels(Conf.LogMain)
	Console.SetLevels(Conf.LogConsole)

	return nil
}

// Create "bad value" error
func confBadValue(rec *IniRecord, format string, args ...interface{}) error {
	return fmt.Errorf(rec.Key+": "+format, args...)
}

// Load the program configuration -- internal version
func confLoadInternal(path string) error {
	// Open configuration file
	ini, err := OpenIniFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return err
	}

	defer ini.Close()

	// Extract options
	for err == nil {
		var rec *IniRecord
		rec, err = ini.Next()
		if err != nil {
			break
		}

		switch rec.Section {
		case "scan":
			switch rec.Key {
			case "poll-retry-limit":
				err = confLoadUintKey(&Conf.PollRetryLimit, rec)
			case "ctrl-timeout":
				err = confLoadDurationKey(&Conf.CtrlTimeout, rec)
			case "bulk-timeout":
				err = confLoadDurationKey(&Conf.BulkTimeout, rec)
			case "settle-delay":
				err = confLoadDurationKey(&Conf.SettleDelay, rec)
			case "table-dir":
				Conf.TableDir = rec.Value
			}
		case "logging":
			switch rec.Key {
			case "main-log":
				err = confLoadLogLevelKey(&Conf.LogMain, rec)
			case "console-log":
				err = confLoadLogLevelKey(&Conf.LogConsole, rec)
			case "max-file-size":
				err = confLoadSizeKey(&Conf.LogMaxFileSize, rec)
			case "max-backup-files":
				err = confLoadUintKey(&Conf.LogMaxBackupFiles, rec)
			}
		}
	}

	if err != nil && err != io.EOF {
		return err
	}

	// Validate configuration
	if Conf.PollRetryLimit == 0 {
		return fmt.Errorf("poll-retry-limit must not be zero")
	}

	return nil
}

// Load LogLevel key
func confLoadLogLevelKey(out *LogLevel, rec *IniRecord) error {
	var mask LogLevel
	for _, s := range strings.Split(rec.Value, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
		case "error":
			mask |= LogError
		case "info":
			mask |= LogInfo | LogError
		case "debug":
			mask |= LogDebug | LogInfo | LogError
		case "trace-usb":
			mask |= LogTraceUSB | LogDebug | LogInfo | LogError
		case "all", "trace-all":
			mask |= LogAll
		default:
			return confBadValue(rec, "invalid log level %q", s)
		}
	}

	*out = mask
	return nil
}

// Load duration key
func confLoadDurationKey(out *time.Duration, rec *IniRecord) error {
	d, err := time.ParseDuration(rec.Value)
	if err != nil || d <= 0 {
		return confBadValue(rec, "%q: invalid duration", rec.Value)
	}

	*out = d
	return nil
}

// Load size key
func confLoadSizeKey(out *int64, rec *IniRecord) error {
	units := uint64(1)

	if l := len(rec.Value); l > 0 {
		switch rec.Value[l-1] {
		case 'k', 'K':
			units = 1024
		case 'm', 'M':
			units = 1024 * 1024
		}

		if units != 1 {
			rec.Value = rec.Value[:l-1]
		}
	}

	sz, err := strconv.ParseUint(rec.Value, 10, 64)
	if err != nil {
		return confBadValue(rec, "%q: invalid size", rec.Value)
	}

	if sz > uint64(math.MaxInt64/units) {
		return confBadValue(rec, "size too large")
	}

	*out = int64(sz * units)
	return nil
}

// Load unsigned integer key
func confLoadUintKey(out *uint, rec *IniRecord) error {
	num, err := strconv.ParseUint(rec.Value, 10, 0)
	if err != nil {
		return confBadValue(rec, "%q: invalid number", rec.Value)
	}

	*out = uint(num)
	return nil
}
