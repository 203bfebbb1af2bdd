package patterns

import (
	"errors"
	"strings"
	"testing"
)

func mustCompile(t *testing.T, opts Options) *Registry {
	t.Helper()
	r, err := Compile(opts)
	if err != nil {
		t.Fatalf("Compile(%+v) error = %v", opts, err)
	}
	return r
}

func matchedNames(ms []Match) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Pattern.Name)
	}
	return out
}

func TestCompile_HeaderWholeToken(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"Host", "X-API-Key"}})

	tests := []struct {
		name string
		line string
		want []string
	}{
		{"api key", "X-API-Key: xyz789", []string{"X-API-Key"}},
		{"substring of longer word", "myHostname: foo", nil},
		{"hyphenated prefix", "X-Host: foo", nil},
		{"suffix", "Hostname: foo", nil},
		{"plain host", "Host: example.com", []string{"Host"}},
		{"case insensitive", "host: example.com", []string{"Host"}},
		{"mid line", "GET / HTTP/1.1 Host: example.com", []string{"Host"}},
		{"end of line", "Host", []string{"Host"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchedNames(r.Match(tt.line))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Match(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestCompile_HeaderSpanCoversValue(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"X-API-Key"}})
	line := "Accept: */* X-API-Key: xyz789"

	ms := r.Match(line)
	if len(ms) != 1 {
		t.Fatalf("got %d matches, want 1", len(ms))
	}
	if got := line[ms[0].Start:ms[0].End]; got != "X-API-Key: xyz789" {
		t.Errorf("matched %q, want header through end of line", got)
	}
}

func TestCompile_RequireSeparator(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"Host"}, RequireSeparator: true})

	tests := []struct {
		line string
		want bool
	}{
		{"Host: example.com", true},
		{"Host = example.com", true},
		{"Host   :x", true},
		{"Host example.com", false},
		{"the Host header", false},
	}
	for _, tt := range tests {
		if got := len(r.Match(tt.line)) > 0; got != tt.want {
			t.Errorf("Match(%q) hit = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestCompile_Regexes(t *testing.T) {
	r := mustCompile(t, Options{Regexes: []Spec{
		{Name: "secret", Regex: `secret=\w+`},
		{Name: "Session", Regex: `SID=\d+`, CaseSensitive: true},
	}})

	if got := matchedNames(r.Match("SECRET=abc")); len(got) != 1 || got[0] != "secret" {
		t.Errorf("case-insensitive regex: got %v", got)
	}
	if got := r.Match("sid=123"); len(got) != 0 {
		t.Errorf("case-sensitive regex should not match lowercase, got %v", matchedNames(got))
	}
	if got := r.Match("SID=123"); len(got) != 1 {
		t.Errorf("case-sensitive regex should match, got %v", matchedNames(got))
	}
}

func TestCompile_BadRegex(t *testing.T) {
	_, err := Compile(Options{Regexes: []Spec{{Regex: `([a-z`}}})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if cfgErr.Pattern != `([a-z` {
		t.Errorf("Pattern = %q", cfgErr.Pattern)
	}
}

func TestCompile_DefaultsWhenEmpty(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"  ", ""}})
	names := strings.Join(r.Names(), ",")
	for _, want := range []string{"Authorization", "Host", "X-API-Key", "Cookie", "Set-Cookie", "Bearer"} {
		if !strings.Contains(names, want) {
			t.Errorf("defaults missing %s: %s", want, names)
		}
	}
}

func TestCompile_NoDefaultsWhenHeadersGiven(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"X-Trace"}})
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (%v)", r.Len(), r.Names())
	}
}

func TestCompile_BearerCompanion(t *testing.T) {
	r := mustCompile(t, Options{Headers: []string{"authorization"}})
	if r.Len() != 2 {
		t.Fatalf("Names() = %v, want header plus Bearer", r.Names())
	}
	ms := r.Match("Authorization: Bearer abc123")
	got := matchedNames(ms)
	if len(got) != 2 {
		t.Fatalf("got %v, want header and Bearer hits", got)
	}
}

func TestCompile_DeduplicatesByName(t *testing.T) {
	r := mustCompile(t, Options{
		Headers:         []string{"Host", "host", "HOST"},
		IncludeDefaults: true,
	})
	count := 0
	for _, n := range r.Names() {
		if strings.EqualFold(n, "host") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("host appears %d times in %v", count, r.Names())
	}
}

func TestCompile_EmptySet(t *testing.T) {
	// A blank regex still counts as explicit configuration, so no defaults.
	_, err := Compile(Options{Regexes: []Spec{{Regex: "   "}}})
	if !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("err = %v, want ErrNoPatterns", err)
	}
}

func TestMatch_OrderedByOffset(t *testing.T) {
	r := mustCompile(t, Options{Regexes: []Spec{
		{Name: "b", Regex: `bbb`},
		{Name: "a", Regex: `aaa`},
	}})
	ms := r.Match("aaa bbb aaa")
	if len(ms) != 3 {
		t.Fatalf("got %d matches, want 3", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Start < ms[i-1].Start {
			t.Errorf("matches not ordered: %+v", ms)
		}
	}
}
