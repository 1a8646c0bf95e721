package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/apex/log"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

const (
	maxImageDimension = 1024 // Maximum width or height in pixels sent to a backend
	jpegQuality       = 85
)

// Orientation extracts the EXIF orientation from JPEG data. Returns 1 (the
// identity orientation) when there is no EXIF data or the tag is missing.
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}

	orientation, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	value, err := orientation.Int(0)
	if err != nil {
		return 1
	}

	return value
}

// correctOrientation bakes the EXIF orientation into the pixel data so that
// backends see the photo the way the user does.
func correctOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	var dstW, dstH int
	var mapTo func(x, y int) (int, int)

	switch orientation {
	case 2: // mirror horizontal
		dstW, dstH = w, h
		mapTo = func(x, y int) (int, int) { return w - 1 - x, y }
	case 3: // rotate 180
		dstW, dstH = w, h
		mapTo = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 4: // mirror vertical
		dstW, dstH = w, h
		mapTo = func(x, y int) (int, int) { return x, h - 1 - y }
	case 5: // transpose
		dstW, dstH = h, w
		mapTo = func(x, y int) (int, int) { return y, x }
	case 6: // rotate 90 clockwise
		dstW, dstH = h, w
		mapTo = func(x, y int) (int, int) { return h - 1 - y, x }
	case 7: // transverse
		dstW, dstH = h, w
		mapTo = func(x, y int) (int, int) { return h - 1 - y, w - 1 - x }
	case 8: // rotate 90 counter-clockwise
		dstW, dstH = h, w
		mapTo = func(x, y int) (int, int) { return y, w - 1 - x }
	default:
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := mapTo(x, y)
			dst.Set(dx, dy, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return dst
}

// Prepare normalizes a photo before it is sent to a vision backend: the EXIF
// orientation is baked in and the image is downscaled so that neither
// dimension exceeds maxImageDimension, preserving aspect ratio. Returns the
// input unchanged when nothing needs to be done.
func Prepare(imageData []byte) ([]byte, error) {
	orientation := Orientation(imageData)

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if orientation == 1 && width <= maxImageDimension && height <= maxImageDimension {
		return imageData, nil
	}

	if orientation != 1 {
		img = correctOrientation(img, orientation)
		bounds = img.Bounds()
		width = bounds.Dx()
		height = bounds.Dy()
	}

	newWidth, newHeight := width, height
	if width > maxImageDimension || height > maxImageDimension {
		scale := float64(maxImageDimension) / float64(width)
		if height > width {
			scale = float64(maxImageDimension) / float64(height)
		}
		newWidth = int(float64(width) * scale)
		newHeight = int(float64(height) * scale)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode prepared image: %w", err)
	}

	log.Infof("Prepared image: %d bytes -> %d bytes (%dx%d -> %dx%d, orientation: %d)",
		len(imageData), buf.Len(), width, height, newWidth, newHeight, orientation)

	return buf.Bytes(), nil
}
