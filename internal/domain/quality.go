package domain

// Quality label constants.
const (
	QualityHigh   = "HIGH"
	QualityMedium = "MEDIUM"
	QualityLow    = "LOW"
)

// ExtractionStats are the aggregate counts of one extraction run.
type ExtractionStats struct {
	Endpoints  int `json:"endpoints"`
	Headers    int `json:"headers"`
	Parameters int `json:"parameters"`
	Responses  int `json:"responses"`
	Errors     int `json:"errors"`
}

// Coverage holds the percentage of endpoints that have at least one item of each kind.
type Coverage struct {
	Headers     float64 `json:"headers"`
	Parameters  float64 `json:"parameters"`
	Responses   float64 `json:"responses"`
	RequestBody float64 `json:"request_body"`
}

// CategoryQuality is the per-category breakdown of a quality report.
type CategoryQuality struct {
	Count      int     `json:"count"`
	AvgQuality float64 `json:"avg_quality"`
	Priority   string  `json:"priority"`
}

// QualityReport is the aggregate readiness report of one extraction run.
// Percentages are in [0, 100].
type QualityReport struct {
	Statistics ExtractionStats `json:"statistics"`
	Coverage   Coverage        `json:"coverage"`

	TitleQuality         float64 `json:"title_quality"`
	DescriptionQuality   float64 `json:"description_quality"`
	ValidTitles          int     `json:"valid_titles"`
	ValidDescriptions    int     `json:"valid_descriptions"`
	GeneratedDescription int     `json:"generated_descriptions"`
	AvgEndpointQuality   float64 `json:"avg_endpoint_quality"`

	Categories map[string]CategoryQuality `json:"categories"`

	DataCompleteness float64 `json:"data_completeness"`
	ReadinessScore   float64 `json:"readiness_score"`
	QualityLabel     string  `json:"quality_label"`

	Recommendations []string `json:"recommendations"`
}
