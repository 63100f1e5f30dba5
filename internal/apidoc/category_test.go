package apidoc

import (
	"regexp"
	"testing"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name        string
		path        string
		title       string
		description string
		category    string
		confidence  string
		matchedBy   string
	}{
		{"versioned path", "/api/v1/vehicles", "", "", "vehicles", domain.ConfidenceHigh, domain.MatchedByURLPattern},
		{"unversioned path", "/api/activities/assign", "", "", "activities", domain.ConfidenceHigh, domain.MatchedByURLPattern},
		{"second pattern", "/api/external-tasks", "", "", "tasks", domain.ConfidenceHigh, domain.MatchedByURLPattern},
		{"geo zone", "/api/v2/geo-zones/{zoneId}", "", "", "locations", domain.ConfidenceHigh, domain.MatchedByURLPattern},
		{"path beats keywords", "/api/v1/drivers", "Upload document file", "", "drivers", domain.ConfidenceHigh, domain.MatchedByURLPattern},
		{"many keywords", "/v2/things", "Upload document file", "", "documents", domain.ConfidenceHigh, domain.MatchedByKeywords},
		{"single keyword", "/v2/things", "Trip summary", "", "orders", domain.ConfidenceMedium, domain.MatchedByKeywords},
		{"keyword in description", "/v2/things", "", "Lists the TACHOGRAPH files.", "tacho", domain.ConfidenceHigh, domain.MatchedByKeywords},
		{"tie keeps table order", "/x", "vehicle driver", "", "vehicles", domain.ConfidenceMedium, domain.MatchedByKeywords},
		{"nothing matches", "/x", "Misc", "", GeneralCategory, domain.ConfidenceLow, domain.MatchedByDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.path, tt.title, tt.description)
			if got.Name != tt.category {
				t.Errorf("Name = %q, want %q", got.Name, tt.category)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %q, want %q", got.Confidence, tt.confidence)
			}
			if got.MatchedBy != tt.matchedBy {
				t.Errorf("MatchedBy = %q, want %q", got.MatchedBy, tt.matchedBy)
			}
		})
	}
}

func TestClassifier_CategoryMetadata(t *testing.T) {
	c := NewClassifier(nil)

	got := c.Classify("/api/v1/vehicles", "", "")
	if got.Description != "Vehicle and device management" || got.Priority != domain.PriorityHigh {
		t.Errorf("Classify() = %+v, want vehicle metadata", got)
	}

	general := c.Classify("/x", "", "")
	if general.Description != "General API operations" || general.Priority != domain.PriorityMedium {
		t.Errorf("general category = %+v", general)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(nil)

	first := c.Classify("/v3/misc", "Assign driver card", "Assigns a card to the driver.")
	for i := 0; i < 10; i++ {
		if got := c.Classify("/v3/misc", "Assign driver card", "Assigns a card to the driver."); got != first {
			t.Fatalf("Classify() = %+v, want %+v", got, first)
		}
	}
}

func TestClassifier_CustomTable(t *testing.T) {
	c := NewClassifier([]Category{
		{
			Name:        "billing",
			Description: "Billing",
			Priority:    domain.PriorityLow,
			Paths:       []*regexp.Regexp{regexp.MustCompile(`^/billing`)},
		},
	})

	if got := c.Classify("/billing/invoices", "", ""); got.Name != "billing" {
		t.Errorf("Classify() = %q, want billing", got.Name)
	}
	if got := c.Classify("/api/v1/vehicles", "", ""); got.Name != GeneralCategory {
		t.Errorf("Classify() = %q, want %q", got.Name, GeneralCategory)
	}

	names := c.Categories()
	if len(names) != 2 || names[1] != GeneralCategory {
		t.Errorf("Categories() = %v", names)
	}
}
