// Package knowledge builds the loose knowledge-base tables of a document.
//
// Unlike the endpoint records produced by apidoc, these tables are sampled
// observations over the whole text: each record is a flat row with a
// sequential id, and records in different tables do not reference each other.
package knowledge

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// Table names, in output order.
const (
	TableEndpoints     = "endpoints"
	TableModels        = "models"
	TableParameters    = "parameters"
	TableExamples      = "examples"
	TableErrors        = "errors"
	TableAuth          = "auth"
	TableWebhooks      = "webhooks"
	TableRateLimits    = "rate_limits"
	TableBusinessRules = "business_rules"
	TableGlossary      = "glossary"
	TableWorkflows     = "workflows"
	TableIntegrations  = "integrations"
	TablePermissions   = "permissions"
	TableDataTypes     = "data_types"
	TableValidations   = "validations"
)

// Names lists every table in output order.
var Names = []string{
	TableEndpoints, TableModels, TableParameters, TableExamples, TableErrors,
	TableAuth, TableWebhooks, TableRateLimits, TableBusinessRules, TableGlossary,
	TableWorkflows, TableIntegrations, TablePermissions, TableDataTypes, TableValidations,
}

var descriptions = map[string]string{
	TableEndpoints:     "API methods with category and extraction quality",
	TableModels:        "Data structures and JSON schemas found in examples",
	TableParameters:    "Parameters mentioned in the documentation prose",
	TableExamples:      "Code, request and response examples",
	TableErrors:        "Error codes and failure descriptions",
	TableAuth:          "Authentication methods",
	TableWebhooks:      "Events and notifications",
	TableRateLimits:    "API limits",
	TableBusinessRules: "Business rules and constraints",
	TableGlossary:      "Glossary of domain terms",
	TableWorkflows:     "Usage scenarios and steps",
	TableIntegrations:  "Integrations with other systems",
	TablePermissions:   "Roles and permissions",
	TableDataTypes:     "Data types and formats",
	TableValidations:   "Validation rules",
}

// Description returns the human description of a table.
func Description(name string) string {
	if d, ok := descriptions[name]; ok {
		return d
	}
	return "Additional information"
}

// Build produces all tables for a document text and its parsed endpoints.
func Build(text string, endpoints []domain.Endpoint) []domain.Table {
	tables := make(map[string]*domain.Table, len(Names))

	tables[TableEndpoints] = endpointsTable(endpoints)
	tables[TableModels] = modelsTable(text)
	tables[TableExamples] = examplesTable(text)
	tables[TableGlossary] = glossaryTable(text, endpoints)
	for _, pt := range patternTables {
		tables[pt.name] = pt.build(text)
	}
	tables[TableDataTypes] = dataTypesTable(tables[TableParameters], endpoints)

	out := make([]domain.Table, 0, len(Names))
	for _, name := range Names {
		out = append(out, *tables[name])
	}
	return out
}

// TotalRecords returns the number of records across tables.
func TotalRecords(tables []domain.Table) int {
	n := 0
	for _, t := range tables {
		n += len(t.Records)
	}
	return n
}

// builder appends records with sequential ids.
type builder struct {
	table  *domain.Table
	prefix string
}

func newBuilder(name, prefix string, columns ...string) *builder {
	return &builder{
		table: &domain.Table{
			Name:        name,
			Description: Description(name),
			Columns:     columns,
			Records:     []domain.Record{},
		},
		prefix: prefix,
	}
}

func (b *builder) next() int {
	return len(b.table.Records) + 1
}

func (b *builder) add(values map[string]string) {
	b.table.Records = append(b.table.Records, domain.Record{
		ID:     fmt.Sprintf("%s_%d", b.prefix, b.next()),
		Values: values,
	})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func containsAnyFold(s string, words ...string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
