/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Logging
 */

package main

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	logMessagePool = sync.Pool{New: func() interface{} { return &LogMessage{} }}
	logBufferPool  = sync.Pool{New: func() interface{} { return &bytes.Buffer{} }}
)

// LogLevel enumerates possible log levels. Levels are a bit mask,
// so they can be summed together
type LogLevel int

// LogLevel bits
const (
	LogError LogLevel = 1 << iota
	LogInfo
	LogDebug
	LogTraceUSB

	LogAll = LogError | LogInfo | LogDebug | LogTraceUSB
)

// Logger implements logging facilities
type Logger struct {
	lock    sync.Mutex   // Write lock
	levels  LogLevel     // Levels the logger passes through
	path    string       // Path to log file
	time    bytes.Buffer // Time prefix buffer
	file    *os.File     // Output file
	console bool         // true for console logger
	cc      *Logger      // Carbon-copy destination, may be nil
}

// Console logger writes to stderr, so the scanned image can
// go to stdout
var Console = &Logger{
	file:    os.Stderr,
	console: true,
	levels:  LogAll,
}

// Log is the main logger. It writes to the main log file and
// carbon-copies everything to the console
var Log = &Logger{
	path:   PathLogFile,
	levels: LogAll,
	cc:     Console,
}

// InitLog is used for errors, detected on early initialization stages.
// Messages go directly to the console
var InitLog = Console

// SetLevels sets the logger log levels
func (l *Logger) SetLevels(levels LogLevel) {
	l.lock.Lock()
	l.levels = levels
	l.lock.Unlock()
}

// Begin new log message
func (l *Logger) Begin() *LogMessage {
	msg := logMessagePool.Get().(*LogMessage)
	msg.logger = l
	return msg
}

// Debug writes a LogDebug message
func (l *Logger) Debug(prefix byte, format string, args ...interface{}) {
	l.Begin().Debug(prefix, format, args...).Commit()
}

// Trace writes a LogTraceUSB message
func (l *Logger) Trace(prefix byte, format string, args ...interface{}) {
	l.Begin().Trace(prefix, format, args...).Commit()
}

// Info writes a LogInfo message
func (l *Logger) Info(prefix byte, format string, args ...interface{}) {
	l.Begin().Info(prefix, format, args...).Commit()
}

// Error writes a LogError message
func (l *Logger) Error(prefix byte, format string, args ...interface{}) {
	l.Begin().Error(prefix, format, args...).Commit()
}

// Dump writes HEX dump of data with optional title at LogTraceUSB level.
// If title is not "", it is formatted, as fmt.Printf does, and prepended
// to the dump
func (l *Logger) Dump(data []byte, title string, args ...interface{}) {
	l.Begin().Dump(data, title, args...).Commit()
}

// Check terminates the program if err is not nil
func (l *Logger) Check(err error) {
	if err != nil {
		l.Exit(1, "%s", err)
	}
}

// Exit writes an error message and terminates the program
func (l *Logger) Exit(status int, format string, args ...interface{}) {
	l.Error('!', format, args...)
	os.Exit(status)
}

// Format a time prefix
func (l *Logger) fmtTime() {
	if !l.console {
		l.time.Reset()

		now := time.Now()

		year, month, day := now.Date()
		fmt.Fprintf(&l.time, "%2.2d-%2.2d-%4.4d ", day, month, year)

		hour, min, sec := now.Clock()
		fmt.Fprintf(&l.time, "%2.2d:%2.2d:%2.2d", hour, min, sec)

		l.time.WriteString(": ")
	}
}

// Handle log rotation
func (l *Logger) rotate() {
	stat, err := l.file.Stat()
	if err != nil || stat.Size() <= Conf.LogMaxFileSize {
		return
	}

	prevpath := ""
	for i := int(Conf.LogMaxBackupFiles); i >= 0; i-- {
		nextpath := l.path
		if i > 0 {
			nextpath += fmt.Sprintf(".%d.gz", i-1)
		}

		switch {
		case i == int(Conf.LogMaxBackupFiles):
			os.Remove(nextpath)
		case i == 0:
			err := l.gzip(nextpath, prevpath)
			if err == nil {
				l.file.Truncate(0)
			}
		default:
			os.Rename(nextpath, prevpath)
		}

		prevpath = nextpath
	}
}

// gzip the log file
func (l *Logger) gzip(ipath, opath string) error {
	ifile, err := os.Open(ipath)
	if err != nil {
		return err
	}

	defer ifile.Close()

	ofile, err := os.OpenFile(opath, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return err
	}

	w := gzip.NewWriter(ofile)
	_, err = io.Copy(w, ifile)
	err2 := w.Close()
	err3 := ofile.Close()

	switch {
	case err == nil && err2 != nil:
		err = err2
	case err == nil && err3 != nil:
		err = err3
	}

	if err != nil {
		os.Remove(opath)
	}

	return err
}

// logLine is a single line of a LogMessage, with its level
type logLine struct {
	level LogLevel
	buf   *bytes.Buffer
}

// LogMessage represents a single (possibly multi line) log
// message, which will appear in the output log atomically,
// not interrupted in the middle by other log activity
type LogMessage struct {
	logger *Logger   // Underlying logger
	lines  []logLine // One buffer per line
}

// add formats a next line of log message, with level and prefix char
func (msg *LogMessage) add(level LogLevel, prefix byte,
	format string, args ...interface{}) *LogMessage {

	buf := logBufAlloc()
	buf.Write([]byte{prefix, ' '})
	fmt.Fprintf(buf, format, args...)
	buf.WriteByte('\n')
	msg.lines = append(msg.lines, logLine{level, buf})
	return msg
}

// Debug appends a LogDebug line to the message
func (msg *LogMessage) Debug(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogDebug, prefix, format, args...)
}

// Trace appends a LogTraceUSB line to the message
func (msg *LogMessage) Trace(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogTraceUSB, prefix, format, args...)
}

// Info appends a LogInfo line to the message
func (msg *LogMessage) Info(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogInfo, prefix, format, args...)
}

// Error appends a LogError line to the message
func (msg *LogMessage) Error(prefix byte, format string, args ...interface{}) *LogMessage {
	return msg.add(LogError, prefix, format, args...)
}

// Dump appends HEX dump of data with optional title, at LogTraceUSB
// level. If title is not "", it is formatted, as fmt.Printf does, and
// prepended to the dump
func (msg *LogMessage) Dump(data []byte, title string, args ...interface{}) *LogMessage {
	if title != "" {
		msg.Trace(' ', title, args...)
	}

	hex := logBufAlloc()
	chr := logBufAlloc()

	defer logBufFree(hex)
	defer logBufFree(chr)

	off := 0

	for len(data) > 0 {
		hex.Reset()
		chr.Reset()

		sz := len(data)
		if sz > 16 {
			sz = 16
		}

		i := 0
		for ; i < sz; i++ {
			c := data[i]
			fmt.Fprintf(hex, "%2.2x", data[i])
			if i%4 == 3 {
				hex.Write([]byte(":"))
			} else {
				hex.Write([]byte(" "))
			}

			if 0x20 <= c && c < 0x80 {
				chr.WriteByte(c)
			} else {
				chr.WriteByte('.')
			}
		}

		for ; i < 16; i++ {
			hex.WriteString("   ")
		}

		msg.Trace(' ', "%4.4x: %s %s", off, hex, chr)

		off += sz
		data = data[sz:]
	}

	return msg
}

// Commit message to the log
func (msg *LogMessage) Commit() {
	defer msg.free()

	if len(msg.lines) == 0 {
		return
	}

	msg.logger.commit(msg.lines)
}

// commit writes message lines to the logger and its carbon-copy chain
func (l *Logger) commit(lines []logLine) {
	l.lock.Lock()

	// Open log file on demand
	if l.file == nil && !l.console {
		os.MkdirAll(PathLogDir, 0755)
		l.file, _ = os.OpenFile(l.path,
			os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	}

	if l.file != nil {
		if !l.console {
			l.rotate()
		}

		l.fmtTime()
		for _, line := range lines {
			if line.level&l.levels == 0 {
				continue
			}
			l.file.Write(l.time.Bytes())
			l.file.Write(line.buf.Bytes())
		}
	}

	l.lock.Unlock()

	if l.cc != nil {
		l.cc.commit(lines)
	}
}

// Reject the message
func (msg *LogMessage) Reject() {
	msg.free()
}

// Return message to the logMessagePool
func (msg *LogMessage) free() {
	for _, line := range msg.lines {
		logBufFree(line.buf)
	}

	if len(msg.lines) < 16 {
		msg.lines = msg.lines[:0] // Keep memory, reset content
	} else {
		msg.lines = nil
	}

	msg.logger = nil

	logMessagePool.Put(msg)
}

// Allocate a buffer
func logBufAlloc() *bytes.Buffer {
	return logBufferPool.Get().(*bytes.Buffer)
}

// Free a buffer
func logBufFree(buf *bytes.Buffer) {
	if buf.Cap() <= 256 {
		buf.Reset()
		logBufferPool.Put(buf)
	}
}
