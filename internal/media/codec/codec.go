// Package codec decodes uploads and encodes the fixed PNG output format.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const PNGContentType = "image/png"

// Decode reads any raster format registered with the image package.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

func DecodeBytes(data []byte) (image.Image, string, error) {
	return Decode(bytes.NewReader(data))
}

var ErrTooLarge = errors.New("image exceeds pixel limit")

// DecodeLimited reads only the header first and refuses to allocate a raster
// larger than maxPixels. A non-positive maxPixels disables the check.
func DecodeLimited(data []byte, maxPixels int) (image.Image, string, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("decode image: %w", err)
		}
		if !WithinLimit(cfg.Width, cfg.Height, maxPixels) {
			return nil, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
		}
	}
	return DecodeBytes(data)
}

// WithinLimit reports whether a w x h raster fits in maxPixels.
func WithinLimit(w, h, maxPixels int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return int64(w)*int64(h) <= int64(maxPixels)
}

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img fully in memory so callers never see a partial file.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
