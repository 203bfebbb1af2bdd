// Package detection turns OCR words into sensitive-text spans.
//
// OCR engines report words in an order that is not reliably left-to-right,
// top-to-bottom, so detection starts with an explicit geometric step:
//
//  1. GroupLines clusters words whose boxes overlap vertically by at least
//     half of the shorter height, then orders each line by ascending X.
//  2. Each line's words are joined with single spaces and matched against a
//     patterns.Registry.
//  3. Every match's byte offsets are mapped back to whole words. A match that
//     starts or ends inside a word takes that entire word; words are never
//     split.
//  4. Matches on the same line that share words are merged into one Span that
//     keeps every pattern name.
//
// Words hyphenated across two lines ("Author-" / "ization:") are not
// reassembled and therefore do not match a rule for the full word.
package detection
