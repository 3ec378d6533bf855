// Package imaging decodes uploaded captures, prepares them for OCR and draws the detected text regions.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

var (
	ErrEmptyImage        = errors.New("image data is empty")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// MaxPixels bounds width*height of any image accepted for decoding. A small compressed
// file can declare dimensions whose bitmap would not fit in memory.
const MaxPixels = 40_000_000

// Formats lists the registered decoders, keyed by the name image.Decode reports.
var Formats = map[string]bool{"png": true, "jpeg": true, "gif": true, "bmp": true, "tiff": true, "webp": true}

// DecodeBase64 decodes a plain or data URL encoded image.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	if s == "" {
		return nil, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if data, err2 := base64.RawStdEncoding.DecodeString(s); err2 == nil {
			return data, nil
		}
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, format, nil
}

// Dimensions reads only the header of the image.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return cfg.Width, cfg.Height, nil
}

// CheckPixels rejects images whose header declares more than MaxPixels.
func CheckPixels(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	w, h, err := Dimensions(data)
	if err != nil {
		return err
	}
	if int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedFormat, w, h, MaxPixels)
	}
	return nil
}

// Prepared is an image in a form every OCR provider accepts.
type Prepared struct {
	Image  image.Image
	Data   []byte
	Format string
}

// Prepare decodes data and re-encodes it when the format is not png/jpeg or the
// longest side exceeds maxSide. maxSide <= 0 disables scaling.
func Prepare(data []byte, maxSide int) (*Prepared, error) {
	if err := CheckPixels(data); err != nil {
		return nil, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, err
	}

	scaled := false
	if b := img.Bounds(); maxSide > 0 && max(b.Dx(), b.Dy()) > maxSide {
		img = Downscale(img, maxSide)
		scaled = true
	}
	if !scaled && (format == FormatPNG || format == FormatJPEG) {
		return &Prepared{Image: img, Data: data, Format: format}, nil
	}

	out := FormatPNG
	if format == FormatJPEG {
		out = FormatJPEG
	}
	encoded, err := EncodeBytes(img, out)
	if err != nil {
		return nil, err
	}
	return &Prepared{Image: img, Data: encoded, Format: out}, nil
}

// Downscale resizes img so that its longest side is maxSide.
func Downscale(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encode writes img as png or jpeg. Any other format name is encoded as png.
func Encode(w io.Writer, img image.Image, format string) error {
	if format == FormatJPEG || format == "jpg" {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	}
	return png.Encode(w, img)
}

func EncodeBytes(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode %s image: %w", format, err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type and file extension used when storing an encoded image.
func ContentType(format string) (string, string) {
	switch format {
	case FormatJPEG, "jpg":
		return "image/jpeg", "jpg"
	case "gif":
		return "image/gif", "gif"
	case "bmp":
		return "image/bmp", "bmp"
	case "tiff":
		return "image/tiff", "tiff"
	case "webp":
		return "image/webp", "webp"
	}
	return "image/png", "png"
}
