package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Format is an image encoding that can be decoded and re-encoded losslessly
// in structure (same dimensions, same container).
type Format string

const (
	PNG     Format = "png"
	JPEG    Format = "jpeg"
	GIF     Format = "gif"
	BMP     Format = "bmp"
	TIFF    Format = "tiff"
	WEBP    Format = "webp"
	Unknown Format = ""
)

// ErrUnsupportedFormat is returned for encodings the codec cannot write back.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// JPEGQuality is used when a JPEG has to be re-encoded.
const JPEGQuality = 95

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case JPEG:
		return ".jpeg"
	case Unknown:
		return ""
	default:
		return "." + string(f)
	}
}

// MIMEType returns the content type of the format, or "" for Unknown.
func (f Format) MIMEType() string {
	if f == Unknown {
		return ""
	}
	return "image/" + string(f)
}

// EncodeAs returns the format a masked copy is written in. WebP can only be
// decoded, so masked WebP pictures become PNG.
func (f Format) EncodeAs() Format {
	if f == WEBP {
		return PNG
	}
	return f
}

// FormatFromExtension maps a file extension (with or without the dot) to a
// Format. Unknown extensions return Unknown.
func FormatFromExtension(ext string) Format {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png":
		return PNG
	case "jpg", "jpeg", "jpe":
		return JPEG
	case "gif":
		return GIF
	case "bmp", "dib":
		return BMP
	case "tif", "tiff":
		return TIFF
	case "webp":
		return WEBP
	default:
		return Unknown
	}
}

// FormatFromPath maps a file name to a Format by extension.
func FormatFromPath(path string) Format {
	return FormatFromExtension(filepath.Ext(path))
}

// DetectFormat sniffs the encoding from the bytes themselves.
func DetectFormat(data []byte) (Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Unknown, fmt.Errorf("failed to detect image format: %w", err)
	}
	if f := FormatFromExtension(name); f != Unknown {
		return f, nil
	}
	return Unknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Config returns the pixel dimensions without decoding the whole image.
func Config(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode decodes raw bytes. EXIF orientation is not applied so the pixel grid
// matches what the workbook displays.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Encode writes img in the given format.
func Encode(img image.Image, format Format) ([]byte, error) {
	var target imaging.Format
	switch format {
	case PNG:
		target = imaging.PNG
	case JPEG:
		target = imaging.JPEG
	case GIF:
		target = imaging.GIF
	case BMP:
		target = imaging.BMP
	case TIFF:
		target = imaging.TIFF
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, target, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
