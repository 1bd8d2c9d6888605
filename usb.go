/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * USB access
 */

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/gousb"
)

// USB identity of the Primax Colorado 2400u
const (
	UsbVendorID  = 0x0461
	UsbProductID = 0x0346
)

// Transport is the subset of USB operations the scan engine uses.
// It is implemented by UsbDevice and by test doubles
type Transport interface {
	// Control issues a single control transfer. buf receives or
	// supplies the data stage, len(buf) is the transfer size
	Control(rqType, request uint8, value, index uint16, buf []byte) (int, error)

	// BulkIn reads len(buf) bytes from the bulk-in endpoint
	BulkIn(buf []byte) (int, error)

	// BulkOut writes len(buf) bytes to the bulk-out endpoint
	BulkOut(buf []byte) (int, error)

	// Reset performs an USB device reset
	Reset() error
}

// UsbDeviceInfo represents USB device description
type UsbDeviceInfo struct {
	Vendor       gousb.ID // Vendor ID
	Product      gousb.ID // Product ID
	Manufacturer string   // Manufacturer name
	ProductName  string   // Product name
	SerialNumber string   // Device serial number
}

// Ident returns device identification string, suitable as
// persistent state identifier
func (info UsbDeviceInfo) Ident() string {
	id := fmt.Sprintf("%4.4x-%4.4x-%s",
		info.Vendor, info.Product, info.SerialNumber)

	id = strings.Map(func(c rune) rune {
		switch {
		case '0' <= c && c <= '9':
		case 'a' <= c && c <= 'z':
		case 'A' <= c && c <= 'Z':
		case c == '-' || c == '_':
		default:
			c = '-'
		}
		return c
	}, id)

	return id
}

// UsbDevice represents an open scanner device
type UsbDevice struct {
	ctx  *gousb.Context     // Owned libusb context
	dev  *gousb.Device      // Underlying USB device
	cfg  *gousb.Config      // Claimed configuration
	intf *gousb.Interface   // Claimed interface
	in   *gousb.InEndpoint  // Bulk-in endpoint
	out  *gousb.OutEndpoint // Bulk-out endpoint
	info UsbDeviceInfo      // Device description
}

var _ = Transport(&UsbDevice{})

// UsbOpenDevice locates the scanner on the bus and prepares it for
// the transfer scripts: configuration 1, interface 0, alt setting 0,
// first bulk-in and bulk-out endpoints
func UsbOpenDevice() (*UsbDevice, error) {
	ctx := gousb.NewContext()

	found := false
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if found {
			return false
		}

		found = desc.Vendor == gousb.ID(UsbVendorID) &&
			desc.Product == gousb.ID(UsbProductID)
		return found
	})

	// Close devices opened beyond the first one, just in case
	if len(devs) > 1 {
		for _, d := range devs[1:] {
			d.Close()
		}
	}

	if len(devs) == 0 {
		ctx.Close()
		if err == nil {
			err = ErrDeviceNotFound
		}
		return nil, err
	}

	usbdev := &UsbDevice{
		ctx: ctx,
		dev: devs[0],
	}

	err = usbdev.prepare()
	if err != nil {
		usbdev.Close()
		return nil, err
	}

	return usbdev, nil
}

// prepare claims configuration, interface and endpoints
func (usbdev *UsbDevice) prepare() error {
	dev := usbdev.dev

	dev.SetAutoDetach(true)
	dev.ControlTimeout = Conf.CtrlTimeout

	cfg, err := dev.Config(1)
	if err != nil {
		return fmt.Errorf("usb: config 1: %s", err)
	}
	usbdev.cfg = cfg

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		return fmt.Errorf("usb: interface 0 alt 0: %s", err)
	}
	usbdev.intf = intf

	// Obtain endpoints
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}

		switch {
		case ep.Direction == gousb.EndpointDirectionIn && usbdev.in == nil:
			usbdev.in, err = intf.InEndpoint(ep.Number)
		case ep.Direction == gousb.EndpointDirectionOut && usbdev.out == nil:
			usbdev.out, err = intf.OutEndpoint(ep.Number)
		}

		if err != nil {
			return fmt.Errorf("usb: endpoint %d: %s", ep.Number, err)
		}
	}

	if usbdev.in == nil || usbdev.out == nil {
		return fmt.Errorf("usb: missed bulk-in or bulk-out endpoint")
	}

	// Fill UsbDeviceInfo
	ok := func(s string, err error) string {
		if err == nil {
			return s
		}
		return ""
	}

	usbdev.info = UsbDeviceInfo{
		Vendor:       dev.Desc.Vendor,
		Product:      dev.Desc.Product,
		Manufacturer: ok(dev.Manufacturer()),
		ProductName:  ok(dev.Product()),
		SerialNumber: ok(dev.SerialNumber()),
	}

	return nil
}

// UsbDeviceInfo returns the device description
func (usbdev *UsbDevice) UsbDeviceInfo() UsbDeviceInfo {
	return usbdev.info
}

// Control issues a single control transfer
func (usbdev *UsbDevice) Control(rqType, request uint8,
	value, index uint16, buf []byte) (int, error) {

	return usbdev.dev.Control(rqType, request, value, index, buf)
}

// BulkIn reads len(buf) bytes from the bulk-in endpoint
func (usbdev *UsbDevice) BulkIn(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Conf.BulkTimeout)
	defer cancel()

	return usbdev.in.ReadContext(ctx, buf)
}

// BulkOut writes len(buf) bytes to the bulk-out endpoint
func (usbdev *UsbDevice) BulkOut(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Conf.BulkTimeout)
	defer cancel()

	return usbdev.out.WriteContext(ctx, buf)
}

// Reset performs an USB device reset
func (usbdev *UsbDevice) Reset() error {
	return usbdev.dev.Reset()
}

// Close releases the interface and closes the device
func (usbdev *UsbDevice) Close() {
	if usbdev.intf != nil {
		usbdev.intf.Close()
	}
	if usbdev.cfg != nil {
		usbdev.cfg.Close()
	}
	if usbdev.dev != nil {
		usbdev.dev.Close()
	}
	if usbdev.ctx != nil {
		usbdev.ctx.Close()
	}
}
