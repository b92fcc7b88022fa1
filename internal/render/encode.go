package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/chai2010/webp"
)

// ErrMalformedBuffer reports a pixel buffer whose shape is not TileSize x TileSize.
// It can only be produced by a defect in the renderer itself.
var ErrMalformedBuffer = errors.New("malformed pixel buffer")

// Format is an output image format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat maps a file extension to a Format.
func ParseFormat(ext string) (Format, error) {
	switch Format(ext) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported tile format %q", ext)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Encoder serializes tile pixel buffers in memory.
type Encoder struct {
	png        png.Encoder
	bufferPool sync.Pool
}

// NewEncoder creates an encoder using the given PNG compression level.
func NewEncoder(level png.CompressionLevel) *Encoder {
	return &Encoder{
		png: png.Encoder{CompressionLevel: level},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// Encode serializes img in the requested format.
func (e *Encoder) Encode(img *image.NRGBA, format Format) ([]byte, error) {
	if format == FormatWebP {
		return e.EncodeWebP(img)
	}
	return e.EncodePNG(img)
}

// EncodePNG serializes img as PNG.
func (e *Encoder) EncodePNG(img *image.NRGBA) ([]byte, error) {
	return e.encode(img, func(buf *bytes.Buffer) error {
		return e.png.Encode(buf, img)
	})
}

// EncodeWebP serializes img as lossless WebP.
func (e *Encoder) EncodeWebP(img *image.NRGBA) ([]byte, error) {
	return e.encode(img, func(buf *bytes.Buffer) error {
		return webp.Encode(buf, img, &webp.Options{Lossless: true})
	})
}

func (e *Encoder) encode(img *image.NRGBA, write func(*bytes.Buffer) error) ([]byte, error) {
	if err := checkBuffer(img); err != nil {
		return nil, err
	}

	buf := e.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		e.bufferPool.Put(buf)
	}()

	if err := write(buf); err != nil {
		return nil, fmt.Errorf("encode tile: %w", err)
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

func checkBuffer(img *image.NRGBA) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrMalformedBuffer)
	}
	b := img.Bounds()
	if b.Dx() != TileSize || b.Dy() != TileSize || len(img.Pix) != TileSize*TileSize*4 {
		return fmt.Errorf("%w: got %dx%d with %d bytes", ErrMalformedBuffer, b.Dx(), b.Dy(), len(img.Pix))
	}
	return nil
}
