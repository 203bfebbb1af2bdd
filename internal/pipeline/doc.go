// Package pipeline runs the masking of one workbook: extract every picture,
// recognize and detect sensitive text, mask it, and write each picture back
// at its anchor.
//
// Images are processed by a bounded pool of workers. Each image is
// independent; only placement into the output workbook is serialized, by the
// workbook session. A failure on one image is isolated and handled by the
// configured error policy.
package pipeline
