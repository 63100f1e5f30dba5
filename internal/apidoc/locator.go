package apidoc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMethods are the HTTP verbs recognized when no explicit list is configured.
var DefaultMethods = []string{"GET", "POST", "PUT", "DELETE"}

// leadLines is how many lines preceding a section are kept for title lookup.
const leadLines = 20

// ErrSectionNotFound is returned when a (method, path) pair has no section in the text.
var ErrSectionNotFound = errors.New("section not found")

// ParseError records an endpoint that was skipped during extraction.
type ParseError struct {
	Method string
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Pair is a documented (method, path) operation as found by the Locator.
type Pair struct {
	Method string
	Path   string
}

// Key returns the dedup key "<METHOD> <path>".
func (p Pair) Key() string {
	return p.Method + " " + p.Path
}

// Section is the span of text attributed to one endpoint. Text is
// document[Start:End]. Lead holds up to leadLines lines immediately
// preceding Start, where the endpoint's own title usually sits.
type Section struct {
	Method string
	Path   string
	Start  int
	End    int
	Text   string
	Lead   string
}

// LocatorOptions configures endpoint discovery.
type LocatorOptions struct {
	// Methods are the HTTP verbs to look for. Empty means DefaultMethods.
	Methods []string

	// PathPrefix, when set, drops pairs whose path does not start with it (e.g. "/api/").
	PathPrefix string

	// Strict only accepts verbs preceded by the "Method" / "URL" marker lines.
	Strict bool
}

// Locator finds endpoint sections in a document.
type Locator struct {
	prefix     string
	strict     bool
	pairRe     *regexp.Regexp
	boundaryRe *regexp.Regexp
}

var markerTailRe = regexp.MustCompile(`(?:^|\n)[ \t]*Method[ \t]*\r?\n[ \t]*URL[ \t]*\r?\n[ \t]*$`)

const markerPrefix = `(?m)^[ \t]*Method[ \t]*\r?\n[ \t]*URL[ \t]*\r?\n[ \t]*`

// NewLocator creates a Locator.
func NewLocator(opts LocatorOptions) *Locator {
	methods := opts.Methods
	if len(methods) == 0 {
		methods = DefaultMethods
	}
	quoted := make([]string, 0, len(methods))
	for _, m := range methods {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToUpper(m)))
	}
	verbs := strings.Join(quoted, "|")

	l := &Locator{prefix: opts.PathPrefix, strict: opts.Strict}
	if opts.Strict {
		l.pairRe = regexp.MustCompile(markerPrefix + `(` + verbs + `)\s+(\S+)`)
		l.boundaryRe = regexp.MustCompile(markerPrefix + `(?:` + verbs + `)\s+\S+`)
	} else {
		l.pairRe = regexp.MustCompile(`\b(` + verbs + `)\s+(\S+)`)
		l.boundaryRe = regexp.MustCompile(`\n(?:` + verbs + `)\s+\S+`)
	}
	return l
}

// Pairs returns the unique (method, path) pairs in order of first appearance.
func (l *Locator) Pairs(text string) []Pair {
	var pairs []Pair
	seen := make(map[string]struct{})
	for _, m := range l.pairRe.FindAllStringSubmatch(text, -1) {
		p := Pair{Method: m[1], Path: m[2]}
		if l.prefix != "" && !strings.HasPrefix(p.Path, l.prefix) {
			continue
		}
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}

// Section returns the section of the first occurrence of the pair. The section
// runs until the next method token line, or the end of the text.
func (l *Locator) Section(text string, p Pair) (Section, error) {
	re, err := l.occurrenceRe(p)
	if err != nil {
		return Section{}, err
	}
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return Section{}, ErrSectionNotFound
	}
	start, pathEnd := loc[0], loc[3]

	end := len(text)
	if next := l.boundaryRe.FindStringIndex(text[pathEnd:]); next != nil {
		end = pathEnd + next[0]
		if !l.strict {
			// the boundary match starts on the newline before the verb
			end = l.markerStart(text, end+1)
		}
	}
	if !l.strict {
		start = l.markerStart(text, start)
	}

	return Section{
		Method: p.Method,
		Path:   p.Path,
		Start:  start,
		End:    end,
		Text:   text[start:end],
		Lead:   text[leadStart(text, start):start],
	}, nil
}

// Sections locates every pair. Pairs without a section are reported as errors.
func (l *Locator) Sections(text string) ([]Section, []ParseError) {
	var sections []Section
	var errs []ParseError
	for _, p := range l.Pairs(text) {
		sec, err := l.Section(text, p)
		if err != nil {
			errs = append(errs, ParseError{Method: p.Method, Path: p.Path, Err: err})
			continue
		}
		sections = append(sections, sec)
	}
	return sections, errs
}

func (l *Locator) occurrenceRe(p Pair) (*regexp.Regexp, error) {
	verb := regexp.QuoteMeta(p.Method)
	path := regexp.QuoteMeta(p.Path)
	if l.strict {
		return regexp.Compile(markerPrefix + verb + `\s+(` + path + `)(?:\s|$)`)
	}
	return regexp.Compile(`\b` + verb + `\s+(` + path + `)(?:\s|$)`)
}

// markerStart moves pos back onto a "Method" / "URL" marker that immediately
// precedes it, so the marker belongs to the section it introduces.
func (l *Locator) markerStart(text string, pos int) int {
	from := max(0, pos-128)
	window := text[from:pos]
	loc := markerTailRe.FindStringIndex(window)
	if loc == nil || (loc[0] == 0 && from > 0 && text[from-1] != '\n') {
		return pos
	}
	start := from + loc[0]
	if text[start] == '\n' {
		start++
	}
	return start
}

func leadStart(text string, start int) int {
	pos := start
	for i := 0; i < leadLines && pos > 0; i++ {
		nl := strings.LastIndexByte(text[:pos-1], '\n')
		if nl < 0 {
			return 0
		}
		pos = nl + 1
	}
	return pos
}
