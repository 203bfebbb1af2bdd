package detection

import (
	"reflect"
	"testing"

	"github.com/ironsheep/sheet-redact/internal/patterns"
)

func newDetector(t *testing.T, opts patterns.Options, minConf float64) *Detector {
	t.Helper()
	reg, err := patterns.Compile(opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return NewDetector(reg, minConf)
}

func TestDetect_HeaderSet(t *testing.T) {
	d := newDetector(t, patterns.Options{Headers: []string{"Host", "X-API-Key"}}, 0)

	spans := d.Detect(lineWords("X-API-Key: xyz789", 10, 10, 13)).Spans
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if !reflect.DeepEqual(spans[0].Patterns, []string{"X-API-Key"}) {
		t.Errorf("Patterns = %v", spans[0].Patterns)
	}
	if spans[0].Text() != "X-API-Key: xyz789" {
		t.Errorf("span text = %q", spans[0].Text())
	}
	if spans[0].LineText != "X-API-Key: xyz789" {
		t.Errorf("LineText = %q", spans[0].LineText)
	}

	if got := d.Detect(lineWords("myHostname: foo", 10, 10, 13)).Spans; len(got) != 0 {
		t.Errorf("myHostname should not match Host, got %+v", got)
	}
}

func TestDetect_OverlappingPatternsMerge(t *testing.T) {
	d := newDetector(t, patterns.Options{Headers: []string{"Authorization"}}, 0)

	words := lineWords("Authorization: Bearer abc123", 0, 0, 13)
	spans := d.Detect(words).Spans
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1: %+v", len(spans), spans)
	}
	if !reflect.DeepEqual(spans[0].Patterns, []string{"Authorization", "Bearer"}) {
		t.Errorf("Patterns = %v", spans[0].Patterns)
	}
	if len(spans[0].Words) != 3 {
		t.Errorf("span covers %d words, want 3", len(spans[0].Words))
	}
	want := words[0].Box.Rect().Union(words[2].Box.Rect())
	if spans[0].Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", spans[0].Bounds(), want)
	}
}

func TestDetect_PartialWordTakesWholeWord(t *testing.T) {
	d := newDetector(t, patterns.Options{Regexes: []patterns.Spec{{Name: "key", Regex: `abc`}}}, 0)

	spans := d.Detect(lineWords("token=xabcx next", 0, 0, 10)).Spans
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if got := spans[0].Text(); got != "token=xabcx" {
		t.Errorf("span text = %q, want the whole word", got)
	}
}

func TestDetect_SeparateMatchesOnOneLine(t *testing.T) {
	d := newDetector(t, patterns.Options{Regexes: []patterns.Spec{
		{Name: "foo", Regex: `\bfoo\b`},
		{Name: "bar", Regex: `\bbar\b`},
	}}, 0)

	spans := d.Detect(lineWords("foo keep bar", 0, 0, 10)).Spans
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Text() != "foo" || spans[1].Text() != "bar" {
		t.Errorf("spans = %q, %q", spans[0].Text(), spans[1].Text())
	}
}

func TestDetect_MultipleLines(t *testing.T) {
	d := newDetector(t, patterns.Options{Headers: []string{"Host", "Cookie"}}, 0)

	words := append(lineWords("GET /index HTTP/1.1", 0, 0, 10), lineWords("Host: example.com", 0, 20, 10)...)
	words = append(words, lineWords("Accept: */*", 0, 40, 10)...)
	words = append(words, lineWords("Cookie: sid=42", 0, 60, 10)...)

	res := d.Detect(words)
	if len(res.Lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(res.Lines))
	}
	if len(res.Spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(res.Spans))
	}
	if res.Spans[0].Line != 1 || res.Spans[1].Line != 3 {
		t.Errorf("span lines = %d, %d; want 1, 3", res.Spans[0].Line, res.Spans[1].Line)
	}
}

// Hyphenation across lines is not reassembled; this documents the gap.
func TestDetect_SplitWordAcrossLinesNotMatched(t *testing.T) {
	d := newDetector(t, patterns.Options{Headers: []string{"Authorization"}}, 0)

	words := append(lineWords("Author-", 0, 0, 10), lineWords("ization: secret", 0, 20, 10)...)
	if spans := d.Detect(words).Spans; len(spans) != 0 {
		t.Errorf("split word unexpectedly matched: %+v", spans)
	}
}

func TestDetect_Empty(t *testing.T) {
	d := newDetector(t, patterns.Options{}, 0)
	res := d.Detect(nil)
	if len(res.Spans) != 0 || len(res.Lines) != 0 {
		t.Errorf("empty input produced %+v", res)
	}
}

func TestDetect_MinConfidence(t *testing.T) {
	d := newDetector(t, patterns.Options{Headers: []string{"Host"}}, 60)

	low := lineWords("Host: example.com", 0, 0, 10)
	for i := range low {
		low[i].Confidence = 20
	}
	if spans := d.Detect(low).Spans; len(spans) != 0 {
		t.Errorf("all-low-confidence span should be dropped, got %+v", spans)
	}

	mixed := lineWords("Host: example.com", 0, 0, 10)
	mixed[1].Confidence = 20
	spans := d.Detect(mixed).Spans
	if len(spans) != 1 || len(spans[0].Words) != 2 {
		t.Errorf("confident header should redeem low-confidence value, got %+v", spans)
	}
}

func TestSpan_BoundsEmpty(t *testing.T) {
	if !(Span{}).Bounds().Empty() {
		t.Error("empty span should have empty bounds")
	}
}
