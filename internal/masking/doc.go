// Package masking converts detected spans into redaction rectangles and burns
// them into image bytes.
//
// Each span becomes the union of its word boxes, grown by a fixed padding in
// pixels and clipped to the image. Rectangles that overlap or touch are merged
// repeatedly until none do, so adjacent redactions never leave a seam.
//
// Padding is an absolute pixel value. It does not scale with the detected font
// size; very large text may need a larger padding to hide anti-aliased edges.
package masking
