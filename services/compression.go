package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// CompressionOptions controls how an uploaded photo is re-encoded
type CompressionOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int    // 1-100, JPEG only
	Format    string // "jpeg" or "png"
}

// DefaultCompressionOptions are the settings used for order photos
var DefaultCompressionOptions = CompressionOptions{
	MaxWidth:  1600,
	MaxHeight: 1600,
	Quality:   80,
	Format:    "jpeg",
}

// CompressedImage is a transport-ready re-encoded photo
type CompressedImage struct {
	Filename string
	MimeType string
	Width    int
	Height   int
	Data     []byte
}

// CompressImage decodes a photo, downscales it to fit within the configured
// bounds (aspect ratio preserved, never upscaled) and re-encodes it in the
// target format. Alpha is flattened onto a white background when the output
// format has no alpha channel. Any decode or encode failure is returned as
// a CompressionError; callers must not fall back to the original bytes.
func CompressImage(filename string, r io.Reader, opts CompressionOptions) (*CompressedImage, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, &CompressionError{Filename: filename, Err: fmt.Errorf("decode: %w", err)}
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &CompressionError{Filename: filename, Err: fmt.Errorf("empty image %dx%d", width, height)}
	}

	targetWidth, targetHeight := fitWithin(width, height, opts.MaxWidth, opts.MaxHeight)

	// Render onto a fresh surface. JPEG has no alpha channel, so the
	// background is filled white before drawing.
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	if opts.Format == "jpeg" {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	if targetWidth == width && targetHeight == height {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	}

	var buf bytes.Buffer
	var mimeType, ext string
	switch opts.Format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality})
		mimeType, ext = "image/jpeg", ".jpg"
	case "png":
		err = png.Encode(&buf, dst)
		mimeType, ext = "image/png", ".png"
	default:
		return nil, &CompressionError{Filename: filename, Err: fmt.Errorf("unsupported output format %q", opts.Format)}
	}
	if err != nil {
		return nil, &CompressionError{Filename: filename, Err: fmt.Errorf("encode: %w", err)}
	}

	return &CompressedImage{
		Filename: replaceExtension(filename, ext),
		MimeType: mimeType,
		Width:    targetWidth,
		Height:   targetHeight,
		Data:     buf.Bytes(),
	}, nil
}

// fitWithin computes the downscaled dimensions that fit within maxWidth x
// maxHeight while preserving aspect ratio. Images already within bounds
// keep their original size.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	ratio := 1.0
	if wr := float64(maxWidth) / float64(width); wr < ratio {
		ratio = wr
	}
	if hr := float64(maxHeight) / float64(height); hr < ratio {
		ratio = hr
	}
	if ratio >= 1.0 {
		return width, height
	}

	targetWidth := int(float64(width) * ratio)
	targetHeight := int(float64(height) * ratio)
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}
	return targetWidth, targetHeight
}

// replaceExtension keeps a sensible filename while swapping in the
// extension of the re-encoded format
func replaceExtension(filename, ext string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "image"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
