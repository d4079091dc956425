// Package imgutil holds the image plumbing around the recognition engine:
// JPEG codec for thumbnails, face cropping and placeholder frames.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

const jpegQuality = 85

// EncodeJPEG encodes an image as JPEG bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes JPEG or PNG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CropFace extracts a face region from a frame with some padding around the
// bounding box, clamped to the frame. Returns nil for a degenerate region.
func CropFace(frame image.Image, bbox image.Rectangle, padding int) image.Image {
	region := bbox.Inset(-padding).Intersect(frame.Bounds())
	if region.Empty() {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(crop, crop.Bounds(), frame, region.Min, draw.Src)
	return crop
}

// Resize scales an image to fit within maxSize (width or height) while
// keeping aspect ratio. Images already small enough are returned as is.
func Resize(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, xdraw.Over, nil)
	return resized
}

// PlaceholderFrame produces a plain frame shown while the capture source is
// unavailable.
func PlaceholderFrame(width, height int) image.Image {
	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{C: color.Gray{Y: 0xe0}}, image.Point{}, draw.Src)
	return frame
}
