package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Kind distinguishes literal header rules from raw regex rules.
type Kind int

const (
	LiteralHeader Kind = iota
	Regex
)

func (k Kind) String() string {
	if k == LiteralHeader {
		return "header"
	}
	return "regex"
}

// tokenChars are the characters that belong to a header token.
const tokenChars = `A-Za-z0-9_\-`

// separatorWindow is how much whitespace may sit between a header and its
// ':' or '=' when separators are required.
const separatorWindow = 3

// BearerRegex catches bearer credentials wherever they appear on a line.
const BearerRegex = `\bBearer\s+[A-Za-z0-9\-._~+/=]+`

// DefaultHeaders is the built-in header list.
var DefaultHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Host",
	"X-API-Key",
	"Api-Key",
	"Cookie",
	"Set-Cookie",
	"X-Auth-Token",
}

// ErrNoPatterns is returned when compilation would produce an empty set.
var ErrNoPatterns = errors.New("no sensitive patterns configured")

// ConfigError reports a pattern configuration that cannot be used.
type ConfigError struct {
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("pattern config: %v", e.Err)
	}
	return fmt.Sprintf("pattern config: %q: %v", e.Pattern, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Spec describes a user-supplied regex rule before compilation.
type Spec struct {
	Name          string `json:"name,omitempty"`
	Regex         string `json:"regex"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// Pattern is one compiled rule.
type Pattern struct {
	Name          string
	Kind          Kind
	CaseSensitive bool
	Source        string

	re *regexp.Regexp
	// group is the submatch index holding the reportable span.
	group int
}

// Match is one hit of a pattern inside a line. Start and End are byte offsets.
type Match struct {
	Pattern *Pattern
	Start   int
	End     int
}

// Options controls Compile.
type Options struct {
	Headers          []string
	Regexes          []Spec
	IncludeDefaults  bool
	RequireSeparator bool
}

// Registry holds the compiled, de-duplicated rule set.
type Registry struct {
	patterns []*Pattern
}

// Compile builds a Registry from header names, regex rules and, optionally,
// the built-in defaults. Defaults are also used when nothing else was given.
// It fails with *ConfigError if a regex does not compile or the set is empty.
func Compile(opts Options) (*Registry, error) {
	headers := opts.Headers
	if opts.IncludeDefaults || (len(nonBlank(opts.Headers)) == 0 && len(opts.Regexes) == 0) {
		headers = append(append([]string{}, opts.Headers...), DefaultHeaders...)
	}

	r := &Registry{}
	seen := make(map[string]bool)
	add := func(p *Pattern) {
		key := strings.ToLower(p.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		r.patterns = append(r.patterns, p)
	}

	needBearer := false
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		p, err := compileHeader(h, opts.RequireSeparator)
		if err != nil {
			return nil, err
		}
		add(p)
		switch strings.ToLower(h) {
		case "authorization", "auth", "proxy-authorization":
			needBearer = true
		}
	}

	for _, s := range opts.Regexes {
		if strings.TrimSpace(s.Regex) == "" {
			continue
		}
		p, err := compileRegex(s)
		if err != nil {
			return nil, err
		}
		add(p)
	}

	if needBearer {
		p, err := compileRegex(Spec{Name: "Bearer", Regex: BearerRegex})
		if err != nil {
			return nil, err
		}
		add(p)
	}

	if len(r.patterns) == 0 {
		return nil, &ConfigError{Err: ErrNoPatterns}
	}
	return r, nil
}

// compileHeader builds the matcher for a literal header. Group 1 spans from
// the header to the end of the line.
func compileHeader(name string, requireSep bool) (*Pattern, error) {
	lead := `(?:^|[^` + tokenChars + `])`
	var expr string
	if requireSep {
		expr = fmt.Sprintf(`(?i)%s(%s[ \t]{0,%d}[:=].*)`, lead, regexp.QuoteMeta(name), separatorWindow)
	} else {
		expr = fmt.Sprintf(`(?i)%s(%s(?:$|[^%s].*))`, lead, regexp.QuoteMeta(name), tokenChars)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Pattern: name, Err: err}
	}
	return &Pattern{Name: name, Kind: LiteralHeader, Source: name, re: re, group: 1}, nil
}

func compileRegex(s Spec) (*Pattern, error) {
	expr := s.Regex
	if !s.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Pattern: s.Regex, Err: err}
	}
	name := s.Name
	if name == "" {
		name = s.Regex
	}
	return &Pattern{Name: name, Kind: Regex, CaseSensitive: s.CaseSensitive, Source: s.Regex, re: re}, nil
}

// Match returns every hit of every pattern anywhere in line, ordered by start
// offset. Empty matches are ignored.
func (r *Registry) Match(line string) []Match {
	var out []Match
	for _, p := range r.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(line, -1) {
			start, end := loc[2*p.group], loc[2*p.group+1]
			if start < 0 || end <= start {
				continue
			}
			out = append(out, Match{Pattern: p, Start: start, End: end})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// Patterns returns a copy of the compiled rules in insertion order.
func (r *Registry) Patterns() []Pattern {
	out := make([]Pattern, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = *p
	}
	return out
}

// Names returns the rule names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = p.Name
	}
	return out
}

// Len returns the number of compiled rules.
func (r *Registry) Len() int { return len(r.patterns) }

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
