package apidoc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// titleWindow is how many lines above the "Method" marker are searched for a title.
const titleWindow = 20

var invalidTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^=== .* \d+ ===$`),
	regexp.MustCompile(`^Fleethand API$`),
	regexp.MustCompile(`^(?:Activities|Vehicles|Drivers|Documents|Forms|Reports)$`),
	regexp.MustCompile(`^\d+ \w+$`),
	regexp.MustCompile(`^(?:Request|Method|URL)$`),
	regexp.MustCompile(`^https?://`),
	regexp.MustCompile(`^\w{1,3}$`),
	regexp.MustCompile(`^(?:Status|Response|Key|Data type|Required|Description)$`),
}

var titleActionWords = []string{
	"get", "create", "update", "delete", "assign", "append", "confirm",
	"upload", "download", "initiate", "cancel", "remove", "reject",
	"add", "insert", "upsert", "fill",
}

var titleDomainWords = []string{
	"activities", "configuration", "vehicle", "driver", "document",
	"files", "reports", "sheets", "crossings", "groups", "form",
	"cards", "companies", "expense", "trip", "eco",
}

// descriptionTemplates are the sentence openers accepted as descriptions.
var descriptionTemplates = []string{
	"This method", "This endpoint",
	"Returns", "Creates", "Updates", "Deletes", "Assigns", "Retrieves", "Gets",
	"Method", "Endpoint", "API",
}

var (
	// anchored at line start, for single-line checks
	descriptionLineRes = compileTemplates(`(?i)^`)
	// unanchored, for searching a joined window of lines
	descriptionSearchRes = compileTemplates(`(?i)`)
)

func compileTemplates(prefix string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(descriptionTemplates))
	for _, t := range descriptionTemplates {
		res = append(res, regexp.MustCompile(prefix+regexp.QuoteMeta(t)+` (.+?)\.`))
	}
	return res
}

// ExtractTitleDescription returns the title and description of a section.
// Either may be empty.
//
// The "Method" marker line anchors the search: the title is the closest valid
// line above it and the description is looked for around the title.
func ExtractTitleDescription(sec Section) (title, description string) {
	lines := sectionLines(sec)
	methodIdx := methodLine(lines, lineCount(sec.Lead))
	if methodIdx < 0 {
		return "", ""
	}

	titleIdx := -1
	for i := max(0, methodIdx-titleWindow); i < methodIdx; i++ {
		if line := strings.TrimSpace(lines[i]); IsValidTitle(line) {
			title = line
			titleIdx = i
		}
	}

	// without a title the lines above the marker belong to the previous section
	if titleIdx < 0 {
		return "", descriptionAfterMarker(lines, methodIdx)
	}
	return title, findDescription(lines, titleIdx, methodIdx)
}

// IsValidTitle reports whether a line looks like an endpoint title: at least
// two words, not a structural label, and naming an action or a known resource.
func IsValidTitle(line string) bool {
	if utf8.RuneCountInString(line) < 5 {
		return false
	}
	for _, re := range invalidTitlePatterns {
		if re.MatchString(line) {
			return false
		}
	}
	if len(strings.Fields(line)) < 2 {
		return false
	}
	lower := strings.ToLower(line)
	return containsAny(lower, titleActionWords) || containsAny(lower, titleDomainWords)
}

// IsValidDescription reports whether a line reads as a description sentence.
func IsValidDescription(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < 20 {
		return false
	}
	for _, re := range descriptionLineRes {
		if re.MatchString(line) {
			return true
		}
	}
	first, _ := utf8.DecodeRuneInString(line)
	return unicode.IsUpper(first) &&
		strings.Contains(line, ".") &&
		len(strings.Fields(line)) >= 5 &&
		n <= 200
}

func findDescription(lines []string, titleIdx, methodIdx int) string {
	// lines right after the title
	for i := titleIdx + 1; i < min(titleIdx+5, methodIdx); i++ {
		if line := strings.TrimSpace(lines[i]); IsValidDescription(line) {
			return line
		}
	}

	// wider window up to the marker
	for i := max(0, titleIdx-5); i < methodIdx; i++ {
		if line := strings.TrimSpace(lines[i]); IsValidDescription(line) {
			return line
		}
	}

	// some layouts place the description after the marker
	if line := descriptionAfterMarker(lines, methodIdx); line != "" {
		return line
	}

	around := strings.Join(lines[max(0, titleIdx-3):min(len(lines), titleIdx+7)], " ")
	for _, re := range descriptionSearchRes {
		loc := re.FindStringIndex(around)
		if loc == nil {
			continue
		}
		if sentence := fullSentence(around, loc[0]); utf8.RuneCountInString(sentence) > 20 {
			return sentence
		}
	}
	return ""
}

func descriptionAfterMarker(lines []string, methodIdx int) string {
	for i := methodIdx + 1; i < min(len(lines), methodIdx+10); i++ {
		if line := strings.TrimSpace(lines[i]); IsValidDescription(line) {
			return line
		}
	}
	return ""
}

// fullSentence expands pos to the sentence containing it: back to the previous
// terminator and forward through the next period. Sentences that do not start
// with an upper-case letter are rejected.
func fullSentence(text string, pos int) string {
	start := strings.LastIndexAny(text[:pos], ".!?") + 1

	end := len(text)
	if dot := strings.IndexByte(text[pos:], '.'); dot >= 0 {
		end = pos + dot + 1
	}

	sentence := strings.TrimSpace(text[start:end])
	first, _ := utf8.DecodeRuneInString(sentence)
	if sentence == "" || !unicode.IsUpper(first) {
		return ""
	}
	return sentence
}

// sectionLines returns the lead lines followed by the section lines.
func sectionLines(sec Section) []string {
	lines := splitLead(sec.Lead)
	return append(lines, strings.Split(sec.Text, "\n")...)
}

func splitLead(lead string) []string {
	if lead == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(lead, "\n"), "\n")
}

func lineCount(lead string) int {
	return len(splitLead(lead))
}

// methodLine returns the index of the "Method" marker: the first one inside the
// section, otherwise the last one in the lead, otherwise -1.
func methodLine(lines []string, sectionFrom int) int {
	for i := sectionFrom; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "Method" {
			return i
		}
	}
	for i := sectionFrom - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "Method" {
			return i
		}
	}
	return -1
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
