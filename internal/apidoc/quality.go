package apidoc

import (
	"fmt"
	"math"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// Thresholds are the readiness policy constants behind the quality label.
// All values are percentages.
type Thresholds struct {
	HighReadiness             float64 `mapstructure:"high_readiness"`
	HighDescriptionCoverage   float64 `mapstructure:"high_description_coverage"`
	MediumReadiness           float64 `mapstructure:"medium_readiness"`
	MediumDescriptionCoverage float64 `mapstructure:"medium_description_coverage"`
}

// DefaultThresholds returns the default labeling policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighReadiness:             85,
		HighDescriptionCoverage:   60,
		MediumReadiness:           75,
		MediumDescriptionCoverage: 40,
	}
}

// Label maps a readiness score and description coverage to a quality label.
func (t Thresholds) Label(readiness, descriptionCoverage float64) string {
	switch {
	case readiness >= t.HighReadiness && descriptionCoverage >= t.HighDescriptionCoverage:
		return domain.QualityHigh
	case readiness >= t.MediumReadiness && descriptionCoverage >= t.MediumDescriptionCoverage:
		return domain.QualityMedium
	default:
		return domain.QualityLow
	}
}

var httpVerbs = []string{"GET", "POST", "PUT", "DELETE"}

// ScoreEndpoint computes the completeness score of one endpoint in [0, 1]
// from its extracted title and description (before any fallback) and category.
func ScoreEndpoint(title, description string, category domain.CategoryInfo) float64 {
	score := 0.0

	if len([]rune(title)) > 5 {
		score += 0.15
		if !hasAnyPrefix(title, httpVerbs...) {
			score += 0.10
		}
	}

	if len([]rune(description)) > 30 {
		score += 0.15
		if isTemplated(description) {
			score += 0.20
		}
	}

	switch category.Confidence {
	case domain.ConfidenceHigh:
		score += 0.2
	case domain.ConfidenceMedium:
		score += 0.1
	}

	// every located endpoint has its structural fields
	score += 0.2

	return round(math.Min(score, 1.0), 2)
}

// BuildReport aggregates the quality of a set of endpoints. skipped is the
// number of endpoints skipped during extraction.
func BuildReport(endpoints []domain.Endpoint, skipped int, t Thresholds) domain.QualityReport {
	r := domain.QualityReport{
		Statistics: domain.ExtractionStats{Endpoints: len(endpoints), Errors: skipped},
		Categories: make(map[string]domain.CategoryQuality),
	}

	var withHeaders, withParams, withResponses, withBody int
	var scoreSum float64
	for _, e := range endpoints {
		r.Statistics.Headers += len(e.Headers)
		r.Statistics.Parameters += len(e.Parameters)
		r.Statistics.Responses += len(e.Responses)

		if isQualifyingTitle(e.Summary) {
			r.ValidTitles++
		}
		if isTemplated(e.Description) {
			r.ValidDescriptions++
		}
		if e.DescriptionSource == domain.DescriptionGenerated {
			r.GeneratedDescription++
		}
		if len(e.Headers) > 0 {
			withHeaders++
		}
		if len(e.Parameters) > 0 {
			withParams++
		}
		if len(e.Responses) > 0 {
			withResponses++
		}
		if e.RequestBody != nil {
			withBody++
		}
		scoreSum += e.QualityScore

		c := r.Categories[e.Category]
		c.Count++
		c.AvgQuality += e.QualityScore
		c.Priority = e.CategoryInfo.Priority
		r.Categories[e.Category] = c
	}
	for name, c := range r.Categories {
		c.AvgQuality = round(c.AvgQuality/float64(c.Count), 3)
		r.Categories[name] = c
	}

	total := len(endpoints)
	titles := ratio(r.ValidTitles, total)
	descriptions := ratio(r.ValidDescriptions, total)
	headers := ratio(withHeaders, total)
	params := ratio(withParams, total)
	responses := ratio(withResponses, total)
	avgQuality := 0.0
	if total > 0 {
		avgQuality = scoreSum / float64(total)
	}

	// labels use unrounded values; rounding is for display only
	readiness := titles*0.20 + descriptions*0.30 + headers*0.15 + params*0.15 + responses*0.15 + avgQuality*100*0.05

	r.TitleQuality = round(titles, 1)
	r.DescriptionQuality = round(descriptions, 1)
	r.Coverage = domain.Coverage{
		Headers:     round(headers, 1),
		Parameters:  round(params, 1),
		Responses:   round(responses, 1),
		RequestBody: percent(withBody, total),
	}
	r.AvgEndpointQuality = round(avgQuality, 3)
	r.ReadinessScore = round(readiness, 1)
	r.DataCompleteness = round((titles+descriptions+responses+params)/4, 1)
	r.QualityLabel = t.Label(readiness, descriptions)
	r.Recommendations = recommendations(r, readiness, t)
	return r
}

func recommendations(r domain.QualityReport, readiness float64, t Thresholds) []string {
	var recs []string
	if readiness < t.HighReadiness {
		if r.DescriptionQuality < 50 {
			recs = append(recs, "Improve description extraction: descriptions are the main readiness gap")
		}
		if r.TitleQuality < 90 {
			recs = append(recs, "Refine title extraction")
		}
		recs = append(recs, fmt.Sprintf("Reach %.0f%% readiness for %s quality", t.HighReadiness, domain.QualityHigh))
	}
	if r.DescriptionQuality < 30 {
		recs = append(recs, "Add description sentence templates for this document layout")
	}
	if len(recs) == 0 {
		recs = append(recs, "Extraction quality is sufficient")
	}
	return recs
}

// isQualifyingTitle reports whether a summary is a real title and not the
// "<METHOD> <segment>" fallback.
func isQualifyingTitle(summary string) bool {
	return len([]rune(summary)) > 5 && !hasAnyPrefix(summary, "GET ", "POST ", "PUT ", "DELETE ")
}

func isTemplated(description string) bool {
	lower := strings.ToLower(description)
	return strings.HasPrefix(lower, "this method") || strings.HasPrefix(lower, "this endpoint")
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func percent(n, total int) float64 {
	return round(ratio(n, total), 1)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
