// Package imaging provides the pixel-level helpers used by the masking
// pipeline.
//
// It covers three concerns:
//
//   - Codec: sniffing the format of raw image bytes, decoding them, and
//     re-encoding a modified buffer in the same format it came from.
//   - Drawing: opaque rectangle fills for redaction and a warning border for
//     images that could not be processed.
//   - OCR preparation: upscaling small images and splitting very tall images
//     into overlapping horizontal tiles.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner,
// X increasing rightward and Y increasing downward. Rectangles follow
// image.Rectangle semantics: Min is inclusive, Max is exclusive.
//
// # Thread Safety
//
// Every function is stateless. Inputs are never modified; drawing functions
// return a new buffer.
package imaging
