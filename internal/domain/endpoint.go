package domain

import (
	"encoding/json"
	"strings"
)

// Data type constants. Every raw type spelling found in a document is
// normalized to one of these.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeNumber  = "number"
)

// Parameter location constants.
const (
	LocationHeader = "header"
	LocationPath   = "path"
	LocationQuery  = "query"
)

// Category confidence and match strategy constants.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	MatchedByURLPattern = "url_pattern"
	MatchedByKeywords   = "keywords"
	MatchedByDefault    = "default"
)

// Priority tiers of a category. Static per category.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Description source constants.
const (
	DescriptionExtracted = "extracted"
	DescriptionGenerated = "generated"
)

// Endpoint is one documented HTTP operation, identified by (Method, Path).
type Endpoint struct {
	// OperationID is derived from Method and Path.
	// Example: "get__api_v1_vehicles"
	OperationID string `json:"operation_id"`

	Method string `json:"method"`
	Path   string `json:"path"`

	// Summary is the extracted title, or "<METHOD> <last path segment>"
	// when no title was found.
	Summary string `json:"summary"`

	// Description is the extracted description or a generated sentence.
	Description       string `json:"description"`
	DescriptionSource string `json:"description_source"`

	Category     string       `json:"category"`
	CategoryInfo CategoryInfo `json:"category_info"`

	Headers     []Header          `json:"headers"`
	Parameters  []Parameter       `json:"parameters"`
	RequestBody *Payload          `json:"request_body"`
	Responses   []ResponseExample `json:"responses"`

	// QualityScore is the per-endpoint completeness score in [0, 1].
	QualityScore float64 `json:"quality_score"`
}

// Field is a row of a "Request headers" or "Request parameters" table.
type Field struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Header is a request header row.
type Header struct {
	Field
}

// Parameter is a request parameter row with an inferred location.
type Parameter struct {
	Field
	Location string `json:"location"`
}

// Payload is an example body. JSON holds the value when the text parsed as
// JSON (possibly after repair); otherwise Raw holds the original text.
type Payload struct {
	JSON json.RawMessage
	Raw  string
}

// IsJSON reports whether the payload holds a parsed JSON value.
func (p *Payload) IsJSON() bool {
	return p != nil && len(p.JSON) > 0
}

// Value decodes the JSON value, or returns the raw text.
func (p *Payload) Value() any {
	if p == nil {
		return nil
	}
	if !p.IsJSON() {
		return p.Raw
	}
	var v any
	if err := json.Unmarshal(p.JSON, &v); err != nil {
		return p.Raw
	}
	return v
}

// MarshalJSON emits the JSON value verbatim (key order preserved), or the raw text as a string.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.JSON) > 0 {
		return p.JSON, nil
	}
	return json.Marshal(p.Raw)
}

// UnmarshalJSON accepts any JSON value. A bare string is kept as raw text.
func (p *Payload) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		p.JSON = nil
		return json.Unmarshal(data, &p.Raw)
	}
	p.JSON = append(json.RawMessage(nil), data...)
	p.Raw = ""
	return nil
}

// String returns the payload as text.
func (p *Payload) String() string {
	if p == nil {
		return ""
	}
	if p.IsJSON() {
		return string(p.JSON)
	}
	return p.Raw
}

// ResponseValidation summarizes the structure of a response example.
type ResponseValidation struct {
	IsValidJSON   bool   `json:"is_valid_json"`
	HasStatus     bool   `json:"has_status"`
	HasPayload    bool   `json:"has_payload"`
	StructureType string `json:"structure_type"` // object, array or unknown
}

// ResponseExample is one "Response example" block of an endpoint.
type ResponseExample struct {
	StatusCode  string             `json:"status_code"`
	Description string             `json:"description"`
	Example     Payload            `json:"example"`
	Validated   ResponseValidation `json:"validated"`
}

// CategoryInfo is the result of classifying an endpoint.
type CategoryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Confidence  string `json:"confidence"`
	MatchedBy   string `json:"matched_by"`
}

// Bleve field name constants for endpoint documents.
const (
	EndpointFieldID          = "id"
	EndpointFieldMethod      = "method"
	EndpointFieldPath        = "path"
	EndpointFieldSummary     = "summary"
	EndpointFieldDescription = "description"
	EndpointFieldCategory    = "category"
	EndpointFieldFields      = "fields"
)

// EndpointDocument is the representation of an Endpoint stored in the search index.
type EndpointDocument struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Category    string `json:"category"`

	// Fields holds header and parameter names and descriptions, space separated.
	Fields string `json:"fields"`
}

// NewEndpointDocument builds the index document for an endpoint.
func NewEndpointDocument(e Endpoint) EndpointDocument {
	var sb strings.Builder
	for _, h := range e.Headers {
		sb.WriteString(h.Name)
		sb.WriteByte(' ')
		sb.WriteString(h.Description)
		sb.WriteByte(' ')
	}
	for _, p := range e.Parameters {
		sb.WriteString(p.Name)
		sb.WriteByte(' ')
		sb.WriteString(p.Description)
		sb.WriteByte(' ')
	}
	return EndpointDocument{
		ID:          e.OperationID,
		Method:      e.Method,
		Path:        e.Path,
		Summary:     e.Summary,
		Description: e.Description,
		Category:    e.Category,
		Fields:      strings.TrimSpace(sb.String()),
	}
}
