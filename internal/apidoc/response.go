package apidoc

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// DefaultStatusCode is assigned to response examples without a "Status" line.
const DefaultStatusCode = "200"

var (
	responseLabelRe = regexp.MustCompile(regexp.QuoteMeta(LabelResponseExample) + `\s*\n`)
	bodyLabelRe     = regexp.MustCompile(regexp.QuoteMeta(LabelRequestBody) + `\s*\n`)

	bareEnumPayloadRe = regexp.MustCompile(`("payload"\s*:\s*)([A-Z_][A-Z0-9_]*)`)
	trailingCommaRe   = regexp.MustCompile(`,(\s*[}\]])`)
)

// ExtractResponses returns every "Response example" of a section. A block
// runs from its label to the next blank line.
func ExtractResponses(section string) []domain.ResponseExample {
	var responses []domain.ResponseExample
	rest := section
	for {
		loc := responseLabelRe.FindStringIndex(rest)
		if loc == nil {
			break
		}
		rest = rest[loc[1]:]
		end := strings.Index(rest, "\n\n")
		if end < 0 {
			end = len(rest)
		}
		if r, ok := parseResponseBlock(rest[:end]); ok {
			responses = append(responses, r)
		}
		rest = rest[end:]
	}
	return responses
}

func parseResponseBlock(block string) (domain.ResponseExample, bool) {
	lines := nonEmptyLines(block)
	status := DefaultStatusCode

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "Status" && i+1 < len(lines) && isDigits(lines[i+1]) {
			status = lines[i+1]
			i++
			continue
		}

		var from int
		switch {
		case line == "Response":
			from = i + 1
			if from < len(lines) && isDigits(lines[from]) {
				from++
			}
		case strings.HasPrefix(line, "{") || strings.HasPrefix(line, "["):
			from = i
		default:
			continue
		}

		p, ok := ParsePayload(collectJSON(lines[min(from, len(lines)):]))
		if !ok {
			return domain.ResponseExample{}, false
		}
		return domain.ResponseExample{
			StatusCode:  status,
			Description: "HTTP " + status + " response",
			Example:     p,
			Validated:   ValidateStructure(p),
		}, true
	}
	return domain.ResponseExample{}, false
}

// collectJSON accumulates lines until they form a complete JSON value.
func collectJSON(lines []string) string {
	for n := 1; n <= len(lines); n++ {
		text := strings.Join(lines[:n], "\n")
		if isJSONComplete(text) {
			return text
		}
	}
	return strings.Join(lines, "\n")
}

func isJSONComplete(text string) bool {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return false
	case json.Valid([]byte(text)):
		return true
	case strings.HasPrefix(text, "{"):
		return strings.Count(text, "{") == strings.Count(text, "}") && strings.HasSuffix(text, "}")
	case strings.HasPrefix(text, "["):
		return strings.Count(text, "[") == strings.Count(text, "]") && strings.HasSuffix(text, "]")
	}
	return false
}

// ExtractRequestBody returns the "Request body" example of a section, or nil.
func ExtractRequestBody(section string) *domain.Payload {
	block, ok := labeledBlock(section, bodyLabelRe, LabelResponseExample, LabelRequestModel)
	if !ok {
		return nil
	}
	block = strings.TrimSpace(block)
	if first, rest, _ := strings.Cut(block, "\n"); strings.TrimSpace(first) == LabelRequestBody {
		block = strings.TrimSpace(rest)
	}
	p, ok := ParsePayload(block)
	if !ok {
		return nil
	}
	return &p
}

// ParsePayload parses example text as JSON. Text that does not open with a
// bracket is kept raw. Invalid JSON gets two repairs (quoting a bare upper-case
// "payload" value and dropping trailing commas) before falling back to raw text.
// It returns false only for blank text.
func ParsePayload(text string) (domain.Payload, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Payload{}, false
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return domain.Payload{Raw: text}, true
	}
	if js, ok := compactJSON(trimmed); ok {
		return domain.Payload{JSON: js}, true
	}

	fixed := bareEnumPayloadRe.ReplaceAllString(trimmed, `${1}"${2}"`)
	fixed = trailingCommaRe.ReplaceAllString(fixed, `${1}`)
	if js, ok := compactJSON(fixed); ok {
		return domain.Payload{JSON: js}, true
	}
	return domain.Payload{Raw: text}, true
}

func compactJSON(text string) (json.RawMessage, bool) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(text)); err != nil {
		return nil, false
	}
	return json.RawMessage(buf.Bytes()), true
}

// ValidateStructure describes the shape of a payload.
func ValidateStructure(p domain.Payload) domain.ResponseValidation {
	v := domain.ResponseValidation{StructureType: "unknown"}
	if !p.IsJSON() {
		return v
	}
	switch p.JSON[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(p.JSON, &obj); err != nil {
			return v
		}
		_, v.HasStatus = obj["status"]
		_, v.HasPayload = obj["payload"]
		v.IsValidJSON = true
		v.StructureType = "object"
	case '[':
		v.IsValidJSON = true
		v.StructureType = "array"
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
