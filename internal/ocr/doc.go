// Package ocr wraps the Tesseract OCR engine and turns its output into a
// uniform list of recognized words with pixel boxes.
//
// # Backends
//
// Two Engine implementations exist:
//
//   - library: links libtesseract through gosseract. Requires cgo.
//   - command: runs the tesseract executable and parses its TSV output. The
//     executable is located from an explicit path, $PATH, or common install
//     locations.
//
// New picks one according to Options.Backend ("auto" prefers the command
// backend when a binary path was configured, the library otherwise).
//
// # Normalization
//
// Whatever the backend, Recognize returns words in the original image's pixel
// space with a top-left origin. Preprocessing that changes the pixel grid
// (upscaling small images, tiling very tall ones) is undone before words are
// returned, rounding outward so a box never shrinks below the glyphs it
// covers. Words with empty text or no area are dropped; low-confidence words
// are kept because filtering is the detector's decision.
//
// # Errors
//
// An engine that cannot run at all (no binary, no language data, no cgo)
// returns an error matching ErrUnavailable. A run that starts but produces
// garbage or exceeds its deadline returns *Failure.
package ocr
