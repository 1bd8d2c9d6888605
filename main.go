/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * The main function
 */

package main

import (
	"fmt"
	"os"
)

const usageText = `Usage:
    %s [options] mode

Modes are:
    color       - perform a 100 dpi color scan (default)
    text        - perform a 200 dpi monochrome text scan
    check       - check configuration and transfer tables and exit
    list        - probe for the scanner and exit

Options are
    -o file     - write output to file (default: stdout)
    -f format   - output format: pnm, png or pdf (default: pnm)
    -t file     - use transfer tables from file
`

// RunMode represents the program run mode
type RunMode int

// Run modes:
//
//	RunScan  - perform a scan in the selected ScanMode
//	RunCheck - check configuration and transfer tables and exit
//	RunList  - probe for the scanner and exit
const (
	RunScan RunMode = iota
	RunCheck
	RunList
)

// RunParameters represents the program run parameters
type RunParameters struct {
	Mode      RunMode      // Run mode
	ScanMode  ScanMode     // Scan mode, for RunScan
	Output    string       // Output file, "" for stdout
	Format    OutputFormat // Output format
	TablePath string       // Transfer tables override, "" for default
}

// usage prints detailed usage and exits
func usage() {
	fmt.Printf(usageText, os.Args[0])
	os.Exit(0)
}

// usageError prints usage error and exits
func usageError(format string, args ...interface{}) {
	if format != "" {
		fmt.Printf(format+"\n", args...)
	}

	fmt.Printf("Try %s -h for more information\n", os.Args[0])
	os.Exit(1)
}

// parseArgv parses program parameters. In a case of usage error,
// it prints a error message and exits
func parseArgv() (params RunParameters) {
	modeset := false

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]

		opt := func() string {
			i++
			if i == len(os.Args) {
				usageError("missed argument to option %s", arg)
			}
			return os.Args[i]
		}

		switch arg {
		case "-h", "-help", "--help":
			usage()
		case "-o":
			params.Output = opt()
		case "-f":
			format, err := ParseOutputFormat(opt())
			if err != nil {
				usageError("%s", err)
			}
			params.Format = format
		case "-t":
			params.TablePath = opt()
		case "color":
			params.Mode, params.ScanMode, modeset = RunScan, ModeColor, true
		case "text":
			params.Mode, params.ScanMode, modeset = RunScan, ModeText, true
		case "check":
			params.Mode, modeset = RunCheck, true
		case "list":
			params.Mode, modeset = RunList, true
		default:
			if arg[0] == '-' {
				usageError("invalid option %s", arg)
			}
			if modeset {
				usageError("invalid argument %s", arg)
			}
			usageError("invalid mode %s", arg)
		}
	}

	return
}

// runCheck validates configuration and tables
func runCheck(params RunParameters) {
	InitLog.Info(' ', "Configuration files: OK")

	tables, err := FindTableSet(params.TablePath)
	InitLog.Check(err)

	InitLog.Info(' ', "Transfer tables: %s: OK", tables.Path())
	InitLog.Info(' ', "  initialize:  %3d records", len(tables.Initialize))
	InitLog.Info(' ', "  setup-color: %3d records", len(tables.SetupColor))
	InitLog.Info(' ', "  setup-text:  %3d records", len(tables.SetupText))
	InitLog.Info(' ', "  calibration: %3d records", len(tables.Calibration))
	InitLog.Info(' ', "  scan-color:  %3d records", len(tables.ScanColor))
	InitLog.Info(' ', "  scan-text:   %3d records", len(tables.ScanText))
	InitLog.Info(' ', "  finalize:    %3d records", len(tables.Finalize))
}

// runList probes for the scanner
func runList(params RunParameters) {
	dev, err := UsbOpenDevice()
	InitLog.Check(err)
	defer dev.Close()

	info := dev.UsbDeviceInfo()
	InitLog.Info(' ', "%4.4x:%4.4x %s %s (serial %q)",
		uint16(info.Vendor), uint16(info.Product),
		info.Manufacturer, info.ProductName, info.SerialNumber)
}

// runScan performs the scan
func runScan(params RunParameters) {
	tables, err := FindTableSet(params.TablePath)
	InitLog.Check(err)

	dev, err := UsbOpenDevice()
	InitLog.Check(err)
	defer dev.Close()

	info := dev.UsbDeviceInfo()
	Log.Debug(' ', "device: %s %s, serial %q",
		info.Manufacturer, info.ProductName, info.SerialNumber)

	devstate := LoadDevState(info.Ident())

	// Open the output before the scan head starts moving
	out := os.Stdout
	if params.Output != "" {
		out, err = os.OpenFile(params.Output,
			os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
		InitLog.Check(err)
		defer out.Close()
	}

	session := NewSession(dev, tables, params.ScanMode, Log)
	err = session.Start()
	if err != nil {
		session.Cancel()
		Log.Exit(1, "%s", err)
	}

	err = Emit(out, params.Format, params.ScanMode, session)
	if err != nil {
		session.Cancel()
		Log.Exit(1, "%s", err)
	}

	devstate.ScanDone(session)

	geom := params.ScanMode.Geometry()
	Log.Info('+', "scan complete: %dx%d, %d dpi, %s",
		geom.PixelsPerLine, geom.Lines, geom.DPI, params.Format)
}

// The main function
func main() {
	params := parseArgv()

	err := ConfLoad()
	InitLog.Check(err)

	switch params.Mode {
	case RunCheck:
		runCheck(params)
	case RunList:
		runList(params)
	default:
		runScan(params)
	}
}
