package biometric

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Accepted raster formats, as reported by image.Decode.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// extensions maps accepted file extensions to their image format.
var extensions = map[string]string{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
}

// FormatFromFilename returns the image format implied by the file extension.
func FormatFromFilename(name string) (string, error) {
	format, ok := extensions[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", ErrInvalidFormat
	}
	return format, nil
}

// IsImageFile reports whether the filename has an accepted image extension.
func IsImageFile(name string) bool {
	_, err := FormatFromFilename(name)
	return err == nil
}

// ValidateImage decodes the image and returns its format.
// Anything that is not a decodable JPEG or PNG yields ErrInvalidImage.
func ValidateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty data", ErrInvalidImage)
	}
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format != FormatJPEG && format != FormatPNG {
		return "", fmt.Errorf("%w: unsupported format %s", ErrInvalidImage, format)
	}
	return format, nil
}

// EncodeJPEG decodes any accepted image and re-encodes it as JPEG.
func EncodeJPEG(data []byte) ([]byte, error) {
	return PrepareImage(data, 0)
}

// PrepareImage resizes an image to fit within maxSize (width or height) while keeping aspect ratio
// and re-encodes it as JPEG. A maxSize of zero disables resizing.
func PrepareImage(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize > 0 && (width > maxSize || height > maxSize) {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// detectMIMEType detects the MIME type from image magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "application/octet-stream"
}
