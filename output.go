/* primascan - standalone driver for the Primax Colorado 2400u USB scanner
 *
 * Copyright (C) 2026 and up by the primascan authors
 * See LICENSE for license terms and conditions
 *
 * Output formats
 */

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/go-pdf/fpdf"
)

// OutputFormat enumerates supported output formats
type OutputFormat int

// OutputFormat values
const (
	FormatPNM OutputFormat = iota
	FormatPNG
	FormatPDF
)

// ParseOutputFormat parses an output format name
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "pnm":
		return FormatPNM, nil
	case "png":
		return FormatPNG, nil
	case "pdf":
		return FormatPDF, nil
	}

	return FormatPNM, fmt.Errorf("invalid output format %q", s)
}

// String returns OutputFormat name
func (format OutputFormat) String() string {
	switch format {
	case FormatPNM:
		return "pnm"
	case FormatPNG:
		return "png"
	case FormatPDF:
		return "pdf"
	}

	return fmt.Sprintf("unknown (%d)", int(format))
}

// Emit drains the pixel stream into w in the requested format
func Emit(w io.Writer, format OutputFormat, mode ScanMode, r io.Reader) error {
	switch format {
	case FormatPNG:
		return EmitPNG(w, mode, r)
	case FormatPDF:
		return EmitPDF(w, mode, r)
	default:
		return EmitPNM(w, mode, r)
	}
}

// EmitPNM writes the pixel stream as an ASCII PNM image: P3 for the
// color mode, P2 with per-bit 0/255 expansion for the text mode
func EmitPNM(w io.Writer, mode ScanMode, r io.Reader) error {
	geom := mode.Geometry()
	out := bufio.NewWriter(w)

	magic := "P3"
	if geom.OneBit {
		magic = "P2"
	}

	_, err := fmt.Fprintf(out, "%s %d %d 255 ",
		magic, geom.PixelsPerLine, geom.Lines)
	if err != nil {
		return err
	}

	buf := make([]byte, 3000)
	for {
		n, err := r.Read(buf)

		for _, c := range buf[:n] {
			if !geom.OneBit {
				fmt.Fprintf(out, "%d ", c)
				continue
			}

			for bit := 7; bit >= 0; bit-- {
				if (c>>uint(bit))&1 != 0 {
					out.WriteString("255 ")
				} else {
					out.WriteString("0 ")
				}
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	return out.Flush()
}

// EmitPNG writes the pixel stream as a PNG image
func EmitPNG(w io.Writer, mode ScanMode, r io.Reader) error {
	img, err := buildImage(mode, r)
	if err != nil {
		return err
	}

	return png.Encode(w, img)
}

// EmitPDF writes the pixel stream as a single-page PDF with the
// image embedded at its true physical size
func EmitPDF(w io.Writer, mode ScanMode, r io.Reader) error {
	img, err := buildImage(mode, r)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = png.Encode(&buf, img)
	if err != nil {
		return err
	}

	geom := mode.Geometry()
	widthMM := float64(geom.PixelsPerLine) / float64(geom.DPI) * 25.4
	heightMM := float64(geom.Lines) / float64(geom.DPI) * 25.4

	pdf := fpdf.New("P", "mm", "", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: widthMM, Ht: heightMM})

	pdf.RegisterImageOptionsReader("scan",
		fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions("scan", 0, 0, widthMM, heightMM,
		false, fpdf.ImageOptions{}, 0, "")

	return pdf.Output(w)
}

// buildImage drains the pixel stream into an in-memory image of the
// mode's fixed frame geometry
func buildImage(mode ScanMode, r io.Reader) (image.Image, error) {
	geom := mode.Geometry()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) != geom.FrameBytes() {
		return nil, fmt.Errorf("frame size mismatch: %d bytes, expected %d",
			len(data), geom.FrameBytes())
	}

	if geom.OneBit {
		img := image.NewGray(image.Rect(0, 0, geom.PixelsPerLine, geom.Lines))
		for y := 0; y < geom.Lines; y++ {
			line := data[y*geom.BytesPerLine:]
			for x := 0; x < geom.PixelsPerLine; x++ {
				if (line[x/8]>>uint(7-x%8))&1 != 0 {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, geom.PixelsPerLine, geom.Lines))
	for y := 0; y < geom.Lines; y++ {
		line := data[y*geom.BytesPerLine:]
		for x := 0; x < geom.PixelsPerLine; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: line[x*3],
				G: line[x*3+1],
				B: line[x*3+2],
				A: 255,
			})
		}
	}

	return img, nil
}
