package apidoc

import (
	"regexp"
	"slices"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// Section labels used as table anchors and terminators.
const (
	LabelRequestHeaders    = "Request headers"
	LabelRequestParameters = "Request parameters"
	LabelRequestBody       = "Request body"
	LabelResponseExample   = "Response example"
	LabelRequestModel      = "Request model"
)

// dataTypes maps every accepted raw type spelling to its normalized type.
var dataTypes = map[string]string{
	"String":         domain.TypeString,
	"Long":           domain.TypeInteger,
	"Integer":        domain.TypeInteger,
	"Boolean":        domain.TypeBoolean,
	"List":           domain.TypeArray,
	"Array<String>":  domain.TypeArray,
	"Array<Integer>": domain.TypeArray,
	"Array<Long>":    domain.TypeArray,
	"Object":         domain.TypeObject,
	"DateTime":       domain.TypeString,
	"LocalDateTime":  domain.TypeString,
	"Date":           domain.TypeString,
	"Double":         domain.TypeNumber,
	"Float":          domain.TypeNumber,
	"BigDecimal":     domain.TypeNumber,
	"UUID":           domain.TypeString,
	"byte array":     domain.TypeString,
	"MultipartFile":  domain.TypeString,
}

var requiredFlags = map[string]bool{
	"yes":   true,
	"true":  true,
	"no":    false,
	"false": false,
}

var columnLabels = map[string]struct{}{
	"Key": {}, "Parameter": {}, "Data": {}, "Required": {},
	"Description": {}, "Attribute": {}, "Type": {},
}

var headerLikeNames = map[string]struct{}{
	"apiKey": {}, "externalId": {}, "Authorization": {}, "Content-Type": {}, "Accept": {},
}

var identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

var (
	headersLabelRe = regexp.MustCompile(regexp.QuoteMeta(LabelRequestHeaders) + `\s*\n`)
	paramsLabelRe  = regexp.MustCompile(regexp.QuoteMeta(LabelRequestParameters) + `\s*\n`)
)

// ExtractHeaders returns the rows of the "Request headers" table of a section.
func ExtractHeaders(section string) []domain.Header {
	block, ok := labeledBlock(section, headersLabelRe,
		LabelRequestParameters, LabelRequestBody, LabelResponseExample, LabelRequestModel)
	if !ok {
		return nil
	}
	var headers []domain.Header
	for _, f := range tableRows(block, "Key") {
		headers = append(headers, domain.Header{Field: f})
	}
	return headers
}

// ExtractParameters returns the rows of the "Request parameters" table of a
// section, each with an inferred location.
func ExtractParameters(section string) []domain.Parameter {
	block, ok := labeledBlock(section, paramsLabelRe,
		LabelRequestBody, LabelResponseExample, LabelRequestModel)
	if !ok {
		return nil
	}
	var params []domain.Parameter
	for _, f := range tableRows(block, "Parameter", "Key") {
		params = append(params, domain.Parameter{Field: f, Location: ParameterLocation(f.Name)})
	}
	return params
}

// ParameterLocation infers where a parameter is sent from its name.
func ParameterLocation(name string) string {
	if _, ok := headerLikeNames[name]; ok {
		return domain.LocationHeader
	}
	if strings.HasSuffix(name, "Id") || strings.HasSuffix(name, "Code") || name == "vin" || name == "vinCode" {
		return domain.LocationPath
	}
	return domain.LocationQuery
}

// NormalizeDataType maps a raw type spelling to a normalized type. Unknown
// spellings are strings.
func NormalizeDataType(raw string) string {
	if t, ok := dataTypes[raw]; ok {
		return t
	}
	return domain.TypeString
}

// NormalizeRequired maps a raw required flag to a bool. Unknown values are false.
func NormalizeRequired(raw string) bool {
	return requiredFlags[strings.ToLower(raw)]
}

// labeledBlock returns the text after the label up to the earliest terminator,
// or the end of the section.
func labeledBlock(section string, label *regexp.Regexp, terminators ...string) (string, bool) {
	loc := label.FindStringIndex(section)
	if loc == nil {
		return "", false
	}
	rest := section[loc[1]:]
	end := len(rest)
	for _, t := range terminators {
		if i := strings.Index(rest, t); i >= 0 && i < end {
			end = i
		}
	}
	return rest[:end], true
}

// tableRows reads a table laid out one cell per line. The header row must be
// one of firstColumns followed by "Data type", "Required", "Description".
// Rows are read in groups of four; a group failing validation is dropped.
func tableRows(block string, firstColumns ...string) []domain.Field {
	lines := nonEmptyLines(block)
	if len(lines) < 4 {
		return nil
	}

	start := -1
	for i := 0; i+3 < len(lines); i++ {
		if slices.Contains(firstColumns, lines[i]) &&
			lines[i+1] == "Data type" &&
			lines[i+2] == "Required" &&
			lines[i+3] == "Description" {
			start = i + 4
			break
		}
	}
	if start < 0 {
		return nil
	}

	var fields []domain.Field
	for i := start; i+3 < len(lines); i += 4 {
		name, rawType, rawRequired, desc := lines[i], lines[i+1], lines[i+2], lines[i+3]
		if !isIdentifier(name) || !isDataType(rawType) || !isRequiredFlag(rawRequired) || len([]rune(desc)) < 3 {
			continue
		}
		fields = append(fields, domain.Field{
			Name:        name,
			DataType:    NormalizeDataType(rawType),
			Required:    NormalizeRequired(rawRequired),
			Description: desc,
		})
	}
	return fields
}

func isIdentifier(name string) bool {
	if len(name) < 2 || !identifierRe.MatchString(name) {
		return false
	}
	_, label := columnLabels[name]
	return !label
}

func isDataType(raw string) bool {
	_, ok := dataTypes[raw]
	return ok
}

func isRequiredFlag(raw string) bool {
	_, ok := requiredFlags[strings.ToLower(raw)]
	return ok
}

// nonEmptyLines splits text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
