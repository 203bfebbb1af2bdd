package patterns

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadHeaders reads header names from path. Accepted layouts:
//
//	["Authorization", "Host"]
//	{"headers": ["Authorization", "Host"]}
//	Authorization
//	Host
//
// In the plain text layout blank lines and lines starting with '#' are skipped.
func LoadHeaders(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Pattern: path, Err: err}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		var list []string
		if trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &list)
		} else {
			var obj struct {
				Headers []string `json:"headers"`
			}
			err = json.Unmarshal(trimmed, &obj)
			list = obj.Headers
		}
		if err != nil {
			return nil, &ConfigError{Pattern: path, Err: fmt.Errorf("invalid headers JSON: %w", err)}
		}
		return cleanList(list), nil
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, &ConfigError{Pattern: path, Err: err}
	}
	return out, nil
}

// LoadRegexes reads regex rules from a JSON file. Accepted layouts:
//
//	["\\bsecret\\b", "token=\\w+"]
//	{"patterns": ["\\bsecret\\b"]}
//	[{"name": "session", "regex": "sid=\\w+", "case_sensitive": true}]
//
// Entries of an array may mix strings and objects.
func LoadRegexes(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Pattern: path, Err: err}
	}

	trimmed := bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj struct {
			Patterns []json.RawMessage `json:"patterns"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, &ConfigError{Pattern: path, Err: fmt.Errorf("invalid patterns JSON: %w", err)}
		}
		raw = obj.Patterns
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &ConfigError{Pattern: path, Err: fmt.Errorf("patterns file must be a JSON array: %w", err)}
	}

	specs := make([]Spec, 0, len(raw))
	for i, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			specs = append(specs, Spec{Regex: s})
			continue
		}
		var spec Spec
		if err := json.Unmarshal(item, &spec); err != nil {
			return nil, &ConfigError{Pattern: path, Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// SplitList splits an inline comma separated flag value.
func SplitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

// RegexSpecs wraps plain regex strings.
func RegexSpecs(exprs []string) []Spec {
	out := make([]Spec, 0, len(exprs))
	for _, e := range cleanList(exprs) {
		out = append(out, Spec{Regex: e})
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
