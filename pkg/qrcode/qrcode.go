// Package qrcode renders lock payloads as QR code images.
//
// Payload bytes are encoded in byte mode without any text conversion, so
// the scanner receives exactly the wire bytes. Images are drawn from the
// symbol's module bitmap so the module scale and quiet-zone border can be
// chosen independently of the total image size.
package qrcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	goqr "github.com/skip2/go-qrcode"

	"github.com/henriqueedu2001/causp-lock-server/pkg/field"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
)

// Default rendering parameters.
const (
	DefaultScale  = 25
	DefaultBorder = 5
)

// Options controls rendering.
type Options struct {
	// Scale is the side length of one module in pixels. Default: DefaultScale.
	Scale int

	// Border is the quiet zone width in modules. Default: DefaultBorder.
	// A negative value renders no border.
	Border int

	// Level is the error correction level. The zero value is goqr.Low.
	Level goqr.RecoveryLevel
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Border == 0 {
		o.Border = DefaultBorder
	}
	if o.Border < 0 {
		o.Border = 0
	}
	return o
}

// Code is a QR symbol holding a payload.
type Code struct {
	payload *payload.Payload
	symbol  *goqr.QRCode
	opts    Options
}

// New encodes p as a QR symbol.
func New(p *payload.Payload, opts Options) (*Code, error) {
	opts = opts.withDefaults()

	symbol, err := goqr.New(string(p.Bytes()), opts.Level)
	if err != nil {
		return nil, fmt.Errorf("encode QR symbol: %w", err)
	}
	symbol.DisableBorder = true

	return &Code{payload: p, symbol: symbol, opts: opts}, nil
}

// Payload returns the encoded payload.
func (c *Code) Payload() *payload.Payload {
	return c.payload
}

// Version returns the QR version (1-40) chosen for the payload.
func (c *Code) Version() int {
	return c.symbol.VersionNumber
}

// Modules returns the side length of the symbol in modules, border excluded.
func (c *Code) Modules() int {
	return len(c.symbol.Bitmap())
}

// Image draws the symbol with the configured scale and border.
func (c *Code) Image() image.Image {
	bitmap := c.symbol.Bitmap()
	n := len(bitmap)
	side := (n + 2*c.opts.Border) * c.opts.Scale

	img := image.NewPaletted(image.Rect(0, 0, side, side), color.Palette{color.White, color.Black})
	offset := c.opts.Border * c.opts.Scale
	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			x0 := offset + x*c.opts.Scale
			y0 := offset + y*c.opts.Scale
			for dy := 0; dy < c.opts.Scale; dy++ {
				for dx := 0; dx < c.opts.Scale; dx++ {
					img.SetColorIndex(x0+dx, y0+dy, 1)
				}
			}
		}
	}
	return img
}

// WritePNG encodes the image as PNG to w.
func (c *Code) WritePNG(w io.Writer) error {
	return png.Encode(w, c.Image())
}

// PNG returns the PNG encoding of the image.
func (c *Code) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.WritePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the PNG image to path, creating parent directories.
func (c *Code) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := c.PNG()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Terminal renders the symbol with half-height block characters.
func (c *Code) Terminal(inverse bool) string {
	return c.symbol.ToSmallString(inverse)
}

// String describes the code and its payload bytes.
func (c *Code) String() string {
	var sb strings.Builder
	sb.WriteString("QR Code Info\n")
	fmt.Fprintf(&sb, "action: %s\n", c.payload.Operation().Name())
	fmt.Fprintf(&sb, "version: %d\n", c.Version())
	fmt.Fprintf(&sb, "payload: %s", field.FormatHex(c.payload.Bytes()))
	return sb.String()
}

// Render encodes p and draws it.
func Render(p *payload.Payload, opts Options) (image.Image, error) {
	c, err := New(p, opts)
	if err != nil {
		return nil, err
	}
	return c.Image(), nil
}

// Save encodes p and writes it to path as PNG.
func Save(p *payload.Payload, path string, opts Options) error {
	c, err := New(p, opts)
	if err != nil {
		return err
	}
	return c.Save(path)
}

// HexDump describes p without rendering an image.
func HexDump(p *payload.Payload) string {
	var sb strings.Builder
	sb.WriteString("QR Code Info\n")
	fmt.Fprintf(&sb, "action: %s\n", p.Operation().Name())
	fmt.Fprintf(&sb, "payload: %s", field.FormatHex(p.Bytes()))
	return sb.String()
}
