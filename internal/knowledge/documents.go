package knowledge

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

var (
	modelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\{[^{}]*"[^"]*"\s*:\s*[^{}]*\}`),
		regexp.MustCompile(`\{[^{}]*\{[^{}]*\}[^{}]*\}`),
		regexp.MustCompile(`\[[^\[\]]*\{[^{}]*\}[^\[\]]*\]`),
	}
	jsonKeyRe = regexp.MustCompile(`"(\w+)"\s*:`)

	curlRe     = regexp.MustCompile(`(?i)\bcurl\s+`)
	fencedRe   = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)```")
	exampleRe  = regexp.MustCompile(`(?i)\bexample[:\s]*\n`)
	exampleEnd = regexp.MustCompile(`\n\n|\nMethod|\n[A-Z]`)

	pathVersionRe = regexp.MustCompile(`^v\d+$`)
)

const (
	minModelLen   = 50
	maxModelLen   = 2000
	minExampleLen = 20
	maxExampleLen = 5000
	contextWindow = 1500
)

// commonTerms are glossary candidates looked up even when no path uses them.
var commonTerms = []string{
	"vehicle", "driver", "company", "task", "route", "zone", "geofence",
	"report", "order", "fuel", "trip", "sensor", "device", "notification",
}

// proseTypes maps type words used in documentation prose to normalized types.
var proseTypes = map[string]string{
	"string":   domain.TypeString,
	"text":     domain.TypeString,
	"int":      domain.TypeInteger,
	"integer":  domain.TypeInteger,
	"long":     domain.TypeInteger,
	"number":   domain.TypeNumber,
	"double":   domain.TypeNumber,
	"float":    domain.TypeNumber,
	"decimal":  domain.TypeNumber,
	"boolean":  domain.TypeBoolean,
	"bool":     domain.TypeBoolean,
	"array":    domain.TypeArray,
	"list":     domain.TypeArray,
	"object":   domain.TypeObject,
	"datetime": "datetime",
	"date":     "datetime",
	"uuid":     "uuid",
	"email":    "email",
	"url":      "url",
	"phone":    "phone",
}

type typeInfo struct {
	description string
	format      string
	example     string
}

// standardTypes lists the data types always present in the data_types table.
var standardTypes = []string{
	domain.TypeString, domain.TypeInteger, domain.TypeNumber, domain.TypeBoolean,
	domain.TypeArray, domain.TypeObject, "datetime", "uuid", "email", "url", "phone",
}

var typeInfos = map[string]typeInfo{
	domain.TypeString:  {"Text value", "", `"abc"`},
	domain.TypeInteger: {"Whole number", "int64", "42"},
	domain.TypeNumber:  {"Decimal number", "double", "3.14"},
	domain.TypeBoolean: {"Logical value", "true|false", "true"},
	domain.TypeArray:   {"Ordered list of values", "", "[1, 2]"},
	domain.TypeObject:  {"JSON object", "", `{"key": "value"}`},
	"datetime":         {"Date and time", "ISO 8601", "2024-01-31T10:00:00Z"},
	"uuid":             {"Unique identifier", "uuid", "123e4567-e89b-12d3-a456-426614174000"},
	"email":            {"Email address", "email", "user@example.com"},
	"url":              {"Web address", "uri", "https://example.com"},
	"phone":            {"Phone number", "E.164", "+15551234567"},
}

func endpointsTable(endpoints []domain.Endpoint) *domain.Table {
	b := newBuilder(TableEndpoints, "endpoint",
		"operation_id", "method", "path", "summary", "description", "category",
		"headers", "parameters", "responses", "has_request_body", "quality_score")
	for _, e := range endpoints {
		b.add(map[string]string{
			"operation_id":     e.OperationID,
			"method":           e.Method,
			"path":             e.Path,
			"summary":          e.Summary,
			"description":      e.Description,
			"category":         e.Category,
			"headers":          strconv.Itoa(len(e.Headers)),
			"parameters":       strconv.Itoa(len(e.Parameters)),
			"responses":        strconv.Itoa(len(e.Responses)),
			"has_request_body": boolString(e.RequestBody != nil),
			"quality_score":    strconv.FormatFloat(e.QualityScore, 'f', -1, 64),
		})
	}
	return b.table
}

func modelsTable(text string) *domain.Table {
	b := newBuilder(TableModels, "model", "name", "kind", "fields", "field_count", "valid_json", "structure")
	seen := make(map[string]struct{})
	for _, re := range modelPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			structure := text[loc[0]:loc[1]]
			if n := runeLen(structure); n <= minModelLen || n >= maxModelLen {
				continue
			}
			if _, dup := seen[structure]; dup {
				continue
			}
			seen[structure] = struct{}{}

			kind := modelKind(text[max(0, loc[0]-200):loc[0]])
			fields := jsonKeys(structure)
			b.add(map[string]string{
				"name":        modelName(kind, b.next()),
				"kind":        kind,
				"fields":      strings.Join(fields, ","),
				"field_count": strconv.Itoa(len(fields)),
				"valid_json":  boolString(json.Valid([]byte(structure))),
				"structure":   structure,
			})
		}
	}
	return b.table
}

// modelKind tells request models from response models by the nearest label
// before the structure.
func modelKind(before string) string {
	req := strings.LastIndex(before, "Request")
	resp := strings.LastIndex(before, "Response")
	switch {
	case req < 0 && resp < 0:
		return "unknown"
	case req > resp:
		return "request"
	default:
		return "response"
	}
}

func modelName(kind string, n int) string {
	switch kind {
	case "request":
		return "RequestModel" + strconv.Itoa(n)
	case "response":
		return "ResponseModel" + strconv.Itoa(n)
	default:
		return "Model" + strconv.Itoa(n)
	}
}

func jsonKeys(structure string) []string {
	var keys []string
	for _, sub := range jsonKeyRe.FindAllStringSubmatch(structure, -1) {
		if !slices.Contains(keys, sub[1]) {
			keys = append(keys, sub[1])
		}
	}
	return keys
}

func examplesTable(text string) *domain.Table {
	b := newBuilder(TableExamples, "example", "type", "language", "content", "related_endpoint")

	add := func(kind, language, content string, at int) {
		content = strings.TrimSpace(content)
		if n := runeLen(content); n <= minExampleLen || n >= maxExampleLen {
			return
		}
		if language == "" {
			language = exampleLanguage(content)
		}
		b.add(map[string]string{
			"type":             kind,
			"language":         language,
			"content":          content,
			"related_endpoint": precedingEndpoint(text, at),
		})
	}

	for _, loc := range curlRe.FindAllStringIndex(text, -1) {
		add("curl", "shell", untilStop(text, loc[0]), loc[0])
	}
	for _, sub := range fencedRe.FindAllStringSubmatchIndex(text, -1) {
		language := strings.ToLower(text[sub[2]:sub[3]])
		kind := "code"
		if language == "json" {
			kind = "json"
		}
		add(kind, language, text[sub[4]:sub[5]], sub[0])
	}
	for _, loc := range exampleRe.FindAllStringIndex(text, -1) {
		content := untilStop(text, loc[1])
		if strings.Contains(content, "=") {
			continue
		}
		add("example", "", content, loc[0])
	}
	return b.table
}

// untilStop returns text from start up to the first blank line, "Method"
// marker or capitalized line.
func untilStop(text string, start int) string {
	rest := text[start:]
	if loc := exampleEnd.FindStringIndex(rest); loc != nil {
		return rest[:loc[0]]
	}
	return rest
}

func exampleLanguage(content string) string {
	switch {
	case strings.HasPrefix(content, "{"), strings.HasPrefix(content, "["):
		return "json"
	case strings.HasPrefix(strings.ToLower(content), "curl"):
		return "shell"
	default:
		return "text"
	}
}

// precedingEndpoint returns the last "METHOD /path" reference shortly before pos.
func precedingEndpoint(text string, pos int) string {
	window := text[max(0, pos-contextWindow):pos]
	refs := endpointRefRe.FindAllStringSubmatch(window, -1)
	if len(refs) == 0 {
		return ""
	}
	last := refs[len(refs)-1]
	return last[1] + " " + last[2]
}

func glossaryTable(text string, endpoints []domain.Endpoint) *domain.Table {
	b := newBuilder(TableGlossary, "term", "term", "definition", "usage_count", "related_endpoints")

	candidates := make(map[string]struct{})
	for _, e := range endpoints {
		for _, seg := range strings.Split(e.Path, "/") {
			seg = strings.ToLower(seg)
			if len(seg) <= 3 || strings.HasPrefix(seg, "{") || seg == "api" || pathVersionRe.MatchString(seg) {
				continue
			}
			candidates[seg] = struct{}{}
		}
	}
	for _, t := range commonTerms {
		candidates[t] = struct{}{}
	}

	terms := make([]string, 0, len(candidates))
	for t := range candidates {
		terms = append(terms, t)
	}
	slices.Sort(terms)

	for _, term := range terms {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\w*\b[^.\n]*`)
		hits := re.FindAllString(text, -1)
		if len(hits) == 0 {
			continue
		}
		var related []string
		for _, e := range endpoints {
			if strings.Contains(strings.ToLower(e.Path), term) && len(related) < 10 {
				related = append(related, e.OperationID)
			}
		}
		b.add(map[string]string{
			"term":              term,
			"definition":        truncate(strings.TrimSpace(hits[0]), 200),
			"usage_count":       strconv.Itoa(len(hits)),
			"related_endpoints": strings.Join(related, ";"),
		})
	}
	return b.table
}

func dataTypesTable(params *domain.Table, endpoints []domain.Endpoint) *domain.Table {
	b := newBuilder(TableDataTypes, "type", "name", "description", "format", "example", "usage_count")

	usage := make(map[string]int)
	for _, r := range params.Records {
		if t := r.Get("type"); t != "" {
			usage[t]++
		}
	}
	for _, e := range endpoints {
		for _, h := range e.Headers {
			usage[h.DataType]++
		}
		for _, p := range e.Parameters {
			usage[p.DataType]++
		}
	}

	names := slices.Clone(standardTypes)
	var extra []string
	for t := range usage {
		if t != "" && !slices.Contains(standardTypes, t) {
			extra = append(extra, t)
		}
	}
	slices.Sort(extra)
	names = append(names, extra...)

	for _, name := range names {
		info, ok := typeInfos[name]
		if !ok {
			info = typeInfo{description: "Type used in the documentation"}
		}
		b.add(map[string]string{
			"name":        name,
			"description": info.description,
			"format":      info.format,
			"example":     info.example,
			"usage_count": strconv.Itoa(usage[name]),
		})
	}
	return b.table
}
