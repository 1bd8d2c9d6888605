/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Tests for output formats
 */

package main

import (
	"bytes"
	"image"
	"strings"
	"testing"
)

// frameReader serves a full fake frame for the mode, re-chunked to
// whatever buffer it is read with, mimicking the session pump
type frameReader struct {
	*bytes.Reader
}

func newFrameReader(mode ScanMode, fill byte) *frameReader {
	data := make([]byte, mode.Geometry().FrameBytes())
	for i := range data {
		data[i] = fill
	}
	return &frameReader{bytes.NewReader(data)}
}

// TestEmitPNMColor tests the ASCII P3 emission of color samples
func TestEmitPNMColor(t *testing.T) {
	var out bytes.Buffer

	err := EmitPNM(&out, ModeColor, bytes.NewReader([]byte{0, 255, 16}))
	if err != nil {
		t.Fatalf("EmitPNM: %s", err)
	}

	expected := "P3 826 1221 255 0 255 16 "
	if out.String() != expected {
		t.Errorf("output %q, expected %q", out.String(), expected)
	}
}

// TestEmitPNMText tests the ASCII P2 emission with per-bit 0/255
// expansion
func TestEmitPNMText(t *testing.T) {
	var out bytes.Buffer

	err := EmitPNM(&out, ModeText, bytes.NewReader([]byte{0xf0}))
	if err != nil {
		t.Fatalf("EmitPNM: %s", err)
	}

	expected := "P2 1656 2342 255 255 255 255 255 0 0 0 0 "
	if out.String() != expected {
		t.Errorf("output %q, expected %q", out.String(), expected)
	}
}

// TestParseOutputFormat tests output format names
func TestParseOutputFormat(t *testing.T) {
	for _, name := range []string{"pnm", "png", "pdf"} {
		format, err := ParseOutputFormat(name)
		if err != nil {
			t.Errorf("%s: %s", name, err)
		}
		if format.String() != name {
			t.Errorf("%s: round-trip %s", name, format)
		}
	}

	if _, err := ParseOutputFormat("jpeg"); err == nil {
		t.Errorf("jpeg: error expected")
	}
}

// TestBuildImage tests frame assembly for both modes
func TestBuildImage(t *testing.T) {
	img, err := buildImage(ModeColor, newFrameReader(ModeColor, 0x80))
	if err != nil {
		t.Fatalf("color: %s", err)
	}

	geom := ModeColor.Geometry()
	if img.Bounds() != image.Rect(0, 0, geom.PixelsPerLine, geom.Lines) {
		t.Errorf("color: bounds %v", img.Bounds())
	}

	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 0x80 || g>>8 != 0x80 || b>>8 != 0x80 {
		t.Errorf("color: pixel %4.4x %4.4x %4.4x", r, g, b)
	}

	img, err = buildImage(ModeText, newFrameReader(ModeText, 0xff))
	if err != nil {
		t.Fatalf("text: %s", err)
	}

	geom = ModeText.Geometry()
	if img.Bounds() != image.Rect(0, 0, geom.PixelsPerLine, geom.Lines) {
		t.Errorf("text: bounds %v", img.Bounds())
	}

	// All bits set is all white
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0xffff {
		t.Errorf("text: pixel %4.4x, expected ffff", r)
	}
}

// TestBuildImageSizeMismatch tests that a truncated frame is rejected
func TestBuildImageSizeMismatch(t *testing.T) {
	_, err := buildImage(ModeColor, bytes.NewReader(make([]byte, 100)))
	if err == nil || !strings.Contains(err.Error(), "frame size mismatch") {
		t.Errorf("buildImage: %v, expected frame size mismatch", err)
	}
}

// TestEmitPDF tests that the PDF emitter produces a PDF document
func TestEmitPDF(t *testing.T) {
	var out bytes.Buffer

	err := EmitPDF(&out, ModeText, newFrameReader(ModeText, 0xff))
	if err != nil {
		t.Fatalf("EmitPDF: %s", err)
	}

	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header")
	}
}
