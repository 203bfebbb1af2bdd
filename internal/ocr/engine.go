package ocr

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Backend names accepted by Options.Backend.
const (
	BackendAuto    = "auto"
	BackendLibrary = "library"
	BackendCommand = "command"
)

// Options configures an Engine.
type Options struct {
	// Backend is "auto", "library" or "command".
	Backend string
	// BinaryPath overrides tesseract executable discovery (command backend).
	BinaryPath string
	// TessdataPrefix points at a tessdata directory. Empty uses the engine default.
	TessdataPrefix string
	// PageSegMode is passed as tesseract's --psm. Zero keeps the engine default.
	PageSegMode int
	// Upscale enlarges images with a side shorter than MinSide before OCR.
	Upscale bool
	MinSide int
	// MaxTileHeight splits taller images into overlapping tiles.
	MaxTileHeight int
	TileOverlap   int
	// MaxInFlight caps concurrent in-process recognitions, counting calls
	// whose caller already gave up.
	MaxInFlight int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Backend:       BackendAuto,
		Upscale:       true,
		MinSide:       DefaultMinSide,
		MaxTileHeight: DefaultMaxTileHeight,
		TileOverlap:   DefaultTileOverlap,
		MaxInFlight:   runtime.NumCPU(),
	}
}

// New builds the engine selected by opts.Backend. Construction never checks
// the engine; call Available before processing.
func New(opts Options) (Engine, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendAuto:
		if opts.BinaryPath != "" || !libraryBuilt {
			return NewCommandEngine(opts), nil
		}
		return newLibraryEngine(opts)
	case BackendLibrary:
		return newLibraryEngine(opts)
	case BackendCommand:
		return NewCommandEngine(opts), nil
	default:
		return nil, fmt.Errorf("unknown OCR backend %q", opts.Backend)
	}
}

// Info describes an engine's availability.
type Info struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}

type versioner interface {
	Version(ctx context.Context) (string, error)
}

// GetInfo checks eng for lang and reports the outcome.
func GetInfo(ctx context.Context, eng Engine, lang string) Info {
	info := Info{Backend: eng.Name(), Language: lang}
	if err := eng.Available(ctx, lang); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true
	if v, ok := eng.(versioner); ok {
		if version, err := v.Version(ctx); err == nil {
			info.Version = version
		}
	}
	return info
}
