package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

const proseDoc = `Authentication: every request carries the apiKey header issued to the partner.
Rate limit: 100 requests per minute for each company.
404 - Vehicle with the given identifier was not found
500 - Internal server error occurred on the platform
Note: the driver must be assigned to a vehicle before the task starts.
Step 1: create a driver with POST /api/v1/drivers
Response example
{"status": "OK", "payload": {"id": 1, "name": "Truck"}}
Webhook: vehicle status change when the ignition turns on
curl -X GET https://host/api/v1/vehicles -H "apiKey: KEY"
Export: trip data is exported in CSV format for accounting
Role: admin users can manage all company vehicles
Validation: name length must not exceed 100 characters
vehicleId - identifier of the vehicle, required`

var proseEndpoints = []domain.Endpoint{
	{OperationID: "post__api_v1_drivers", Method: "POST", Path: "/api/v1/drivers", Category: "drivers"},
}

func buildTables(t *testing.T) map[string]domain.Table {
	t.Helper()
	tables := Build(proseDoc, proseEndpoints)
	byName := make(map[string]domain.Table, len(tables))
	for _, table := range tables {
		byName[table.Name] = table
	}
	return byName
}

func TestBuild_TablesInOrder(t *testing.T) {
	tables := Build(proseDoc, proseEndpoints)

	if len(tables) != len(Names) {
		t.Fatalf("Build() returned %d tables, want %d", len(tables), len(Names))
	}
	for i, table := range tables {
		if table.Name != Names[i] {
			t.Errorf("tables[%d] = %q, want %q", i, table.Name, Names[i])
		}
		if table.Description == "" {
			t.Errorf("table %q has no description", table.Name)
		}
		if table.Records == nil {
			t.Errorf("table %q has nil records", table.Name)
		}
	}
}

func TestBuild_SequentialIDs(t *testing.T) {
	prefixes := map[string]string{
		TableErrors:        "error",
		TableBusinessRules: "rule",
		TableDataTypes:     "type",
		TableEndpoints:     "endpoint",
	}
	tables := buildTables(t)

	for name, prefix := range prefixes {
		for i, r := range tables[name].Records {
			if want := fmt.Sprintf("%s_%d", prefix, i+1); r.ID != want {
				t.Errorf("%s record %d id = %q, want %q", name, i, r.ID, want)
			}
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	errs := buildTables(t)[TableErrors].Records

	if len(errs) != 3 {
		t.Fatalf("errors = %d records, want 3", len(errs))
	}
	tests := []struct {
		code, kind, retryable, severity string
	}{
		{"404", "client_error", "false", "medium"},
		{"500", "server_error", "true", "high"},
		{"ERR_003", "application_error", "false", "low"},
	}
	for i, tt := range tests {
		r := errs[i]
		if r.Get("code") != tt.code || r.Get("type") != tt.kind ||
			r.Get("retryable") != tt.retryable || r.Get("severity") != tt.severity {
			t.Errorf("errors[%d] = %v, want %+v", i, r.Values, tt)
		}
	}
	if errs[0].Get("description") != "Vehicle with the given identifier was not found" {
		t.Errorf("description = %q", errs[0].Get("description"))
	}
}

func TestBuild_ProseTables(t *testing.T) {
	tables := buildTables(t)

	tests := []struct {
		table  string
		count  int
		column string
		want   string
	}{
		{TableAuth, 2, "type", "API_KEY"},
		{TableAuth, 2, "header_name", "apiKey"},
		{TableRateLimits, 1, "value", "100"},
		{TableRateLimits, 1, "unit", "requests"},
		{TableBusinessRules, 3, "enforcement", "hard"},
		{TableWorkflows, 1, "order", "1"},
		{TableWorkflows, 1, "related_endpoints", "POST /api/v1/drivers"},
		{TableWebhooks, 1, "trigger", "the ignition turns on"},
		{TableIntegrations, 1, "direction", "outbound"},
		{TableIntegrations, 1, "format", "CSV"},
		{TablePermissions, 2, "level", "admin"},
		{TablePermissions, 2, "scope", "company"},
		{TableValidations, 3, "rule", "length"},
		{TableParameters, 1, "name", "vehicleId"},
		{TableParameters, 1, "location", domain.LocationPath},
		{TableParameters, 1, "required", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.column, func(t *testing.T) {
			records := tables[tt.table].Records
			if len(records) != tt.count {
				t.Fatalf("%s = %d records, want %d", tt.table, len(records), tt.count)
			}
			if got := records[0].Get(tt.column); got != tt.want {
				t.Errorf("%s[0].%s = %q, want %q", tt.table, tt.column, got, tt.want)
			}
		})
	}
}

func TestBuild_Models(t *testing.T) {
	models := buildTables(t)[TableModels].Records

	if len(models) != 1 {
		t.Fatalf("models = %d records, want 1", len(models))
	}
	m := models[0]
	if m.Get("kind") != "response" || m.Get("name") != "ResponseModel1" {
		t.Errorf("model = %v", m.Values)
	}
	if m.Get("fields") != "status,payload,id,name" || m.Get("field_count") != "4" {
		t.Errorf("fields = %q (%s)", m.Get("fields"), m.Get("field_count"))
	}
	if m.Get("valid_json") != "true" {
		t.Errorf("valid_json = %q", m.Get("valid_json"))
	}
}

func TestBuild_Examples(t *testing.T) {
	examples := buildTables(t)[TableExamples].Records

	var curl, response *domain.Record
	for i := range examples {
		switch examples[i].Get("type") {
		case "curl":
			curl = &examples[i]
		case "example":
			response = &examples[i]
		}
	}
	if curl == nil || !strings.HasPrefix(curl.Get("content"), "curl -X GET") || curl.Get("language") != "shell" {
		t.Errorf("curl example = %v", curl)
	}
	if response == nil {
		t.Fatal("missing response example")
	}
	if response.Get("language") != "json" || response.Get("related_endpoint") != "POST /api/v1/drivers" {
		t.Errorf("response example = %v", response.Values)
	}
}

func TestBuild_Glossary(t *testing.T) {
	glossary := buildTables(t)[TableGlossary].Records

	var drivers *domain.Record
	for i := range glossary {
		if glossary[i].Get("term") == "geofence" {
			t.Error("terms absent from the text should be skipped")
		}
		if glossary[i].Get("term") == "drivers" {
			drivers = &glossary[i]
		}
	}
	if drivers == nil {
		t.Fatal("missing term drivers")
	}
	if drivers.Get("usage_count") != "1" || drivers.Get("related_endpoints") != "post__api_v1_drivers" {
		t.Errorf("drivers = %v", drivers.Values)
	}
}

func TestBuild_DataTypes(t *testing.T) {
	types := buildTables(t)[TableDataTypes].Records

	if len(types) != len(standardTypes) {
		t.Fatalf("data_types = %d records, want %d", len(types), len(standardTypes))
	}
	if types[0].Get("name") != domain.TypeString || types[0].Get("usage_count") != "1" {
		t.Errorf("data_types[0] = %v", types[0].Values)
	}
}

func TestBuild_EmptyText(t *testing.T) {
	tables := Build("", nil)

	for _, table := range tables {
		if table.Name == TableDataTypes {
			continue
		}
		if len(table.Records) != 0 {
			t.Errorf("table %q has %d records, want 0", table.Name, len(table.Records))
		}
	}
	if got := TotalRecords(tables); got != len(standardTypes) {
		t.Errorf("TotalRecords() = %d, want %d", got, len(standardTypes))
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"400", false},
		{"408", true},
		{"429", true},
		{"500", true},
		{"501", false},
		{"503", true},
		{"ERR_001", false},
	}

	for _, tt := range tests {
		if got := Retryable(tt.code); got != tt.want {
			t.Errorf("Retryable(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestLimitValue(t *testing.T) {
	tests := []struct {
		text, value, unit string
	}{
		{"Rate limit: 100 requests per minute", "100", "requests"},
		{"Timeout: 30 seconds", "30", "seconds"},
		{"max 5", "5", "requests"},
		{"no numbers here", "", ""},
	}

	for _, tt := range tests {
		value, unit := LimitValue(tt.text)
		if value != tt.value || unit != tt.unit {
			t.Errorf("LimitValue(%q) = %q, %q, want %q, %q", tt.text, value, unit, tt.value, tt.unit)
		}
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"auth key", AuthType("API Key"), "API_KEY"},
		{"auth bearer", AuthType("Bearer"), "BEARER"},
		{"auth other", AuthType("authentication"), "OTHER"},
		{"step number", StepOrder("Step 3"), "3"},
		{"step first", StepOrder("First"), "1"},
		{"step finally", StepOrder("finally"), "last"},
		{"step then", StepOrder("then"), ""},
		{"direction import", IntegrationDirection("Import"), "inbound"},
		{"direction sync", IntegrationDirection("sync"), "bidirectional"},
		{"permission manager", PermissionLevel("manager of the fleet"), "manager"},
		{"permission default", PermissionLevel("anyone"), "user"},
		{"validation format", ValidationRule("pattern: ^[0-9]+$"), "format"},
		{"validation range", ValidationRule("between 1 and 10"), "range"},
		{"validation general", ValidationRule("checked by the server"), "general"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestRuleStrength(t *testing.T) {
	if s, e := RuleStrength("Must"); s != "high" || e != "hard" {
		t.Errorf("RuleStrength(Must) = %s, %s", s, e)
	}
	if s, e := RuleStrength("should"); s != "medium" || e != "soft" {
		t.Errorf("RuleStrength(should) = %s, %s", s, e)
	}
	if s, e := RuleStrength("note"); s != "low" || e != "soft" {
		t.Errorf("RuleStrength(note) = %s, %s", s, e)
	}
}
