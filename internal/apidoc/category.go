package apidoc

import (
	"regexp"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// GeneralCategory is assigned when neither paths nor keywords match.
const GeneralCategory = "general"

// Category is one rule of the classification table.
type Category struct {
	Name        string
	Description string
	Priority    string

	// Paths are matched against the endpoint path; the first match wins.
	Paths []*regexp.Regexp

	// Keywords are counted as case-insensitive substrings of title and description.
	Keywords []string
}

func (c Category) info(confidence, matchedBy string) domain.CategoryInfo {
	return domain.CategoryInfo{
		Name:        c.Name,
		Description: c.Description,
		Priority:    c.Priority,
		Confidence:  confidence,
		MatchedBy:   matchedBy,
	}
}

// resourcePath matches /api/<resource>... with an optional version segment.
func resourcePath(resource string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)/api/(?:v\d+/)?` + regexp.QuoteMeta(resource))
}

// DefaultCategories is the built-in classification table, in evaluation order.
var DefaultCategories = []Category{
	{
		Name: "activities", Description: "Activity management operations", Priority: domain.PriorityHigh,
		Paths:    []*regexp.Regexp{resourcePath("activit")},
		Keywords: []string{"activity", "activities", "assign", "fill", "create"},
	},
	{
		Name: "vehicles", Description: "Vehicle and device management", Priority: domain.PriorityHigh,
		Paths:    []*regexp.Regexp{resourcePath("vehicle"), resourcePath("period-info"), resourcePath("latest-")},
		Keywords: []string{"vehicle", "vehicles", "vin", "device", "attached"},
	},
	{
		Name: "drivers", Description: "Driver management operations", Priority: domain.PriorityHigh,
		Paths:    []*regexp.Regexp{resourcePath("driver"), resourcePath("ddd")},
		Keywords: []string{"driver", "drivers", "ddd", "card"},
	},
	{
		Name: "documents", Description: "Document management", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("document")},
		Keywords: []string{"document", "documents", "file", "upload"},
	},
	{
		Name: "reports", Description: "Reporting and analytics", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("report")},
		Keywords: []string{"report", "reports", "analytics"},
	},
	{
		Name: "tasks", Description: "Task management", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("task"), resourcePath("external-task")},
		Keywords: []string{"task", "tasks", "external"},
	},
	{
		Name: "orders", Description: "Order and trip management", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("order")},
		Keywords: []string{"order", "orders", "trip"},
	},
	{
		Name: "partners", Description: "Partner management", Priority: domain.PriorityLow,
		Paths:    []*regexp.Regexp{resourcePath("partner")},
		Keywords: []string{"partner", "partners", "company"},
	},
	{
		Name: "locations", Description: "Location and geofencing", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("poi"), resourcePath("geo-zone")},
		Keywords: []string{"poi", "location", "zone", "geo"},
	},
	{
		Name: "payments", Description: "Payment management", Priority: domain.PriorityLow,
		Paths:    []*regexp.Regexp{resourcePath("payment-card")},
		Keywords: []string{"payment", "card", "finance"},
	},
	{
		Name: "eco", Description: "Environmental data", Priority: domain.PriorityLow,
		Paths:    []*regexp.Regexp{resourcePath("eco")},
		Keywords: []string{"eco", "environmental", "emission"},
	},
	{
		Name: "tacho", Description: "Tachograph operations", Priority: domain.PriorityMedium,
		Paths:    []*regexp.Regexp{resourcePath("tacho")},
		Keywords: []string{"tacho", "tachograph", "chart"},
	},
	{
		Name: "forms", Description: "Forms and questionnaires", Priority: domain.PriorityLow,
		Paths:    []*regexp.Regexp{resourcePath("forms")},
		Keywords: []string{"form", "forms", "questionnaire"},
	},
}

var generalCategory = Category{
	Name:        GeneralCategory,
	Description: "General API operations",
	Priority:    domain.PriorityMedium,
}

// Classifier assigns categories from an ordered rule table.
type Classifier struct {
	categories []Category
}

// NewClassifier creates a Classifier. A nil table means DefaultCategories.
func NewClassifier(categories []Category) *Classifier {
	if categories == nil {
		categories = DefaultCategories
	}
	return &Classifier{categories: categories}
}

// Classify returns the category of an endpoint. Path patterns are tried first
// in table order. Otherwise every category is scored by its keyword hits in
// title and description; the first category with the highest score wins.
func (c *Classifier) Classify(path, title, description string) domain.CategoryInfo {
	for _, cat := range c.categories {
		for _, re := range cat.Paths {
			if re.MatchString(path) {
				return cat.info(domain.ConfidenceHigh, domain.MatchedByURLPattern)
			}
		}
	}

	text := strings.ToLower(title + " " + description)
	best, bestScore := -1, 0
	for i, cat := range c.categories {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		confidence := domain.ConfidenceMedium
		if bestScore >= 2 {
			confidence = domain.ConfidenceHigh
		}
		return c.categories[best].info(confidence, domain.MatchedByKeywords)
	}

	return generalCategory.info(domain.ConfidenceLow, domain.MatchedByDefault)
}

// Categories returns the names of all categories, general last.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.categories)+1)
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return append(names, GeneralCategory)
}
