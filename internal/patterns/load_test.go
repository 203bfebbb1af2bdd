package patterns

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadHeaders(t *testing.T) {
	want := []string{"Authorization", "X-API-Key"}
	tests := []struct {
		name    string
		content string
	}{
		{"json array", `["Authorization", " X-API-Key ", ""]`},
		{"json object", `{"headers": ["Authorization", "X-API-Key"]}`},
		{"newline list", "# sensitive headers\nAuthorization\n\n  X-API-Key  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadHeaders(writeFile(t, "headers", tt.content))
			if err != nil {
				t.Fatalf("LoadHeaders() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestLoadHeaders_Errors(t *testing.T) {
	if _, err := LoadHeaders(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadHeaders(writeFile(t, "bad.json", `["unterminated`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoadRegexes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Spec
	}{
		{
			"string array",
			`["token=\\w+", "sid"]`,
			[]Spec{{Regex: `token=\w+`}, {Regex: "sid"}},
		},
		{
			"object wrapper",
			`{"patterns": ["secret"]}`,
			[]Spec{{Regex: "secret"}},
		},
		{
			"mixed entries",
			`["a", {"name": "sess", "regex": "SID=\\d+", "case_sensitive": true}]`,
			[]Spec{{Regex: "a"}, {Name: "sess", Regex: `SID=\d+`, CaseSensitive: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadRegexes(writeFile(t, "patterns.json", tt.content))
			if err != nil {
				t.Fatalf("LoadRegexes() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadRegexes_NotJSON(t *testing.T) {
	if _, err := LoadRegexes(writeFile(t, "patterns.txt", "secret\ntoken\n")); err == nil {
		t.Error("expected error for non-JSON patterns file")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Host, ,X-API-Key,")
	want := []string{"Host", "X-API-Key"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v, want %v", got, want)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Errorf("SplitList(\"\") = %v, want empty", got)
	}
}
