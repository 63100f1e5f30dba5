// Package apidoc extracts endpoint records from the plain-text rendering of an
// API reference document.
//
// The Parser runs a single synchronous pass: the Locator splits the text into
// one section per documented (method, path) pair, independent extractors pull
// title, description, tables and examples from each section, the Classifier
// assigns a category and the quality scorer rates the result. Nothing in this
// package performs I/O or reads the clock, so identical input always yields
// identical output.
package apidoc

import (
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// Options configures a Parser.
type Options struct {
	Methods        []string
	PathPrefix     string
	StrictBoundary bool
	Thresholds     Thresholds

	// Categories replaces the classification table. Nil means DefaultCategories.
	Categories []Category
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Methods:    DefaultMethods,
		Thresholds: DefaultThresholds(),
	}
}

// Result is the outcome of one extraction pass.
type Result struct {
	Endpoints []domain.Endpoint
	Errors    []ParseError
	Quality   domain.QualityReport
}

// ErrorMessages returns the skipped endpoints as strings.
func (r *Result) ErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for i := range r.Errors {
		msgs = append(msgs, r.Errors[i].Error())
	}
	return msgs
}

// Parser turns document text into endpoint records.
type Parser struct {
	locator    *Locator
	classifier *Classifier
	thresholds Thresholds
}

// NewParser creates a Parser.
func NewParser(opts Options) *Parser {
	return &Parser{
		locator: NewLocator(LocatorOptions{
			Methods:    opts.Methods,
			PathPrefix: opts.PathPrefix,
			Strict:     opts.StrictBoundary,
		}),
		classifier: NewClassifier(opts.Categories),
		thresholds: opts.Thresholds,
	}
}

// Classifier returns the classifier used by the parser.
func (p *Parser) Classifier() *Classifier {
	return p.classifier
}

// Parse extracts every endpoint of the text. Endpoints whose section cannot be
// located are reported in Result.Errors and left out of Result.Endpoints.
func (p *Parser) Parse(text string) *Result {
	sections, errs := p.locator.Sections(text)

	endpoints := make([]domain.Endpoint, 0, len(sections))
	for _, sec := range sections {
		endpoints = append(endpoints, p.Endpoint(sec))
	}

	return &Result{
		Endpoints: endpoints,
		Errors:    errs,
		Quality:   BuildReport(endpoints, len(errs), p.thresholds),
	}
}

// Endpoint builds the record of one section.
func (p *Parser) Endpoint(sec Section) domain.Endpoint {
	title, description := ExtractTitleDescription(sec)
	category := p.classifier.Classify(sec.Path, title, description)

	e := domain.Endpoint{
		OperationID:       OperationID(sec.Method, sec.Path),
		Method:            sec.Method,
		Path:              sec.Path,
		Summary:           title,
		Description:       description,
		DescriptionSource: domain.DescriptionExtracted,
		Category:          category.Name,
		CategoryInfo:      category,
		Headers:           orEmpty(ExtractHeaders(sec.Text)),
		Parameters:        orEmpty(ExtractParameters(sec.Text)),
		RequestBody:       ExtractRequestBody(sec.Text),
		Responses:         orEmpty(ExtractResponses(sec.Text)),
		QualityScore:      ScoreEndpoint(title, description, category),
	}
	if e.Summary == "" {
		e.Summary = FallbackSummary(sec.Method, sec.Path)
	}
	if e.Description == "" {
		e.Description = GenerateDescription(sec.Method, sec.Path, category)
		e.DescriptionSource = domain.DescriptionGenerated
	}
	return e
}

// orEmpty keeps absent tables serializing as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var operationIDReplacer = strings.NewReplacer("/", "_", "-", "_")

// OperationID derives the operation id of an endpoint: the lower-cased method,
// an underscore, and the path with "/" and "-" replaced by "_".
func OperationID(method, path string) string {
	return strings.ToLower(method) + "_" + operationIDReplacer.Replace(path)
}

// FallbackSummary is the summary of an endpoint without a title.
func FallbackSummary(method, path string) string {
	return method + " " + lastSegment(path)
}

var descriptionVerbs = map[string]string{
	"GET":    "retrieves",
	"POST":   "creates",
	"PUT":    "updates",
	"PATCH":  "updates",
	"DELETE": "deletes",
}

// GenerateDescription synthesizes a description from method, path and category.
func GenerateDescription(method, path string, category domain.CategoryInfo) string {
	verb, ok := descriptionVerbs[method]
	if !ok {
		verb = "processes"
	}
	resource := lastSegment(path)
	if category.Name == GeneralCategory {
		return "This method " + verb + " " + resource + " data via the API."
	}
	return "This method " + verb + " " + resource + " for " + strings.ToLower(category.Description) + "."
}

func lastSegment(path string) string {
	return path[strings.LastIndexByte(path, '/')+1:]
}
