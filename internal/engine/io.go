package engine

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrUnsupportedFormat is returned when an output extension has no encoder.
var ErrUnsupportedFormat = errors.New("engine: unsupported image format")

// jpegQuality is used for .jpg/.jpeg output.
const jpegQuality = 95

// ReadImage decodes the image at path into a 3-channel float image. PNG,
// JPEG, GIF, BMP, TIFF and WebP are recognized by content.
func ReadImage(path string) (*FloatImage, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("engine: open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("engine: decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// ReadSize returns the dimensions of the image at path without decoding its
// pixels.
func ReadSize(path string) (image.Point, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return image.Point{}, fmt.Errorf("engine: open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, fmt.Errorf("engine: decode %s: %w", path, err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// WriteImage encodes img to path, choosing the format from the extension.
// Holes are written as black.
func WriteImage(path string, img *FloatImage) error {
	encode, err := encoderFor(path)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("engine: create file: %w", err)
	}
	if err := encode(f, img.ToNRGBA()); err != nil {
		_ = f.Close()
		return fmt.Errorf("engine: encode %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes img to w in the named format ("png", "jpeg", "bmp", "tiff").
func Encode(w io.Writer, img *FloatImage, format string) error {
	encode, err := encoderFor("." + format)
	if err != nil {
		return err
	}
	return encode(w, img.ToNRGBA())
}

func encoderFor(path string) (func(io.Writer, image.Image) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: jpegQuality})
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, m image.Image) error {
			return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
