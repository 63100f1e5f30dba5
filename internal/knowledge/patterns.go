package knowledge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// match is one regular expression hit. Kind is the first capture group when
// the expression has two or more groups; Text is always the last group.
type match struct {
	Kind string
	Text string
	Full string
}

// patternTable is a table filled by scanning the text with a list of
// expressions, in order.
type patternTable struct {
	name    string
	prefix  string
	columns []string
	rules   []*regexp.Regexp
	minText int
	accept  func(m match) bool
	fields  func(m match, n int) map[string]string
}

func (pt patternTable) build(text string) *domain.Table {
	b := newBuilder(pt.name, pt.prefix, pt.columns...)
	for _, re := range pt.rules {
		for _, groups := range re.FindAllStringSubmatch(text, -1) {
			m := newMatch(groups)
			if runeLen(m.Text) <= pt.minText {
				continue
			}
			if pt.accept != nil && !pt.accept(m) {
				continue
			}
			b.add(pt.fields(m, b.next()))
		}
	}
	return b.table
}

func newMatch(groups []string) match {
	m := match{Full: strings.TrimSpace(groups[0])}
	switch {
	case len(groups) == 1:
		m.Text = m.Full
	case len(groups) == 2:
		m.Text = strings.TrimSpace(groups[1])
	default:
		m.Kind = strings.TrimSpace(groups[1])
		m.Text = strings.TrimSpace(groups[len(groups)-1])
	}
	return m
}

var (
	statusCodeRe  = regexp.MustCompile(`\b([4-5]\d{2})\b`)
	numberRe      = regexp.MustCompile(`\d+`)
	perUnitRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:per|/)\s*(second|minute|hour|day|request)`)
	limitUnitRe   = regexp.MustCompile(`(?i)\b(seconds?|minutes?|hours?|days?|requests?|items?|records?|characters?|symbols?|bytes?|kb|mb)\b`)
	headerNameRe  = regexp.MustCompile(`\b(apiKey|api_key|Authorization|X-[A-Za-z-]+)\b`)
	stepNumberRe  = regexp.MustCompile(`(?i)^step\s*(\d+)`)
	endpointRefRe = regexp.MustCompile(`\b(GET|POST|PUT|DELETE|PATCH)\s+(/\S+)`)
	formatRe      = regexp.MustCompile(`\b(JSON|CSV|XML|XLSX|PDF)\b`)
	triggerRe     = regexp.MustCompile(`(?i)\bwhen\s+([^,;]+)`)
)

var patternTables = []patternTable{
	{
		name:    TableParameters,
		prefix:  "param",
		columns: []string{"name", "type", "description", "location", "required"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(\w+Id)\s*[-–:]\s*([^.\n]+)`),
			regexp.MustCompile(`(\w+)\s*\(([^)]+)\)\s*[-–:]\s*([^.\n]+)`),
			regexp.MustCompile("`(\\w+)`\\s*[-–:]\\s*([^.\\n]+)"),
			regexp.MustCompile(`(?i)(\w+)\s+parameter\s*[-–:]\s*([^.\n]+)`),
		},
		minText: 5,
		accept: func(m match) bool {
			return runeLen(m.Kind) > 2
		},
		fields: func(m match, _ int) map[string]string {
			return map[string]string{
				"name":        m.Kind,
				"type":        parameterType(m),
				"description": truncate(m.Text, 200),
				"location":    apidoc.ParameterLocation(m.Kind),
				"required":    boolString(containsAnyFold(m.Text, "required", "mandatory")),
			}
		},
	},
	{
		name:    TableErrors,
		prefix:  "error",
		columns: []string{"code", "description", "type", "retryable", "severity"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`\b([4-5]\d{2})\s*[-–:]\s*([^.\n]+)`),
			regexp.MustCompile(`(?i)\berror[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\bfailed[:\s]+([^.\n]+)`),
		},
		minText: 10,
		fields: func(m match, n int) map[string]string {
			code := m.Kind
			if code == "" {
				code = fmt.Sprintf("ERR_%03d", n)
			}
			return map[string]string{
				"code":        code,
				"description": truncate(m.Text, 300),
				"type":        ErrorType(code),
				"retryable":   boolString(Retryable(code)),
				"severity":    ErrorSeverity(code),
			}
		},
	},
	{
		name:    TableAuth,
		prefix:  "auth",
		columns: []string{"method", "description", "type", "header_name"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(API[_\s]?Key|Token|Bearer|Authorization)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(authentication)[:\s]+([^.\n]+)`),
		},
		minText: 5,
		fields: func(m match, _ int) map[string]string {
			kind := AuthType(m.Kind)
			return map[string]string{
				"method":      m.Kind,
				"description": truncate(m.Text, 200),
				"type":        kind,
				"header_name": authHeader(kind, m.Text),
			}
		},
	},
	{
		name:    TableWebhooks,
		prefix:  "webhook",
		columns: []string{"event_name", "description", "trigger"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(webhook|event|notification|callback)[:\s]+([^.\n]+)`),
		},
		minText: 10,
		fields: func(m match, _ int) map[string]string {
			trigger := ""
			if sub := triggerRe.FindStringSubmatch(m.Text); sub != nil {
				trigger = strings.TrimSpace(sub[1])
			}
			return map[string]string{
				"event_name":  strings.ToLower(m.Kind),
				"description": truncate(m.Text, 200),
				"trigger":     trigger,
			}
		},
	},
	{
		name:    TableRateLimits,
		prefix:  "limit",
		columns: []string{"type", "description", "value", "unit"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(limit|maximum|max|minimum|min|rate)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(timeout|delay)[:\s]+([^.\n]+)`),
			perUnitRe,
		},
		accept: func(m match) bool {
			return containsAnyFold(m.Full, "limit", "rate") || perUnitRe.MatchString(m.Full)
		},
		fields: func(m match, _ int) map[string]string {
			value, unit := LimitValue(m.Full)
			kind := strings.ToLower(m.Kind)
			if numberRe.MatchString(m.Kind) {
				kind = "rate"
			}
			return map[string]string{
				"type":        kind,
				"description": truncate(m.Full, 200),
				"value":       value,
				"unit":        unit,
			}
		},
	},
	{
		name:    TableBusinessRules,
		prefix:  "rule",
		columns: []string{"type", "description", "severity", "enforcement"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(must|should|cannot|can't|required|mandatory|forbidden)\s+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(rule|constraint|restriction|limitation)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(note|important|warning|attention)[:\s]+([^.\n]+)`),
		},
		minText: 20,
		fields: func(m match, _ int) map[string]string {
			severity, enforcement := RuleStrength(m.Kind)
			return map[string]string{
				"type":        strings.ToLower(m.Kind),
				"description": truncate(m.Text, 300),
				"severity":    severity,
				"enforcement": enforcement,
			}
		},
	},
	{
		name:    TableWorkflows,
		prefix:  "workflow",
		columns: []string{"step_indicator", "description", "order", "related_endpoints"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(first|then|next|after|finally)[,:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(step\s*\d+)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(workflow|process|scenario)[:\s]+([^.\n]+)`),
		},
		minText: 15,
		fields: func(m match, _ int) map[string]string {
			return map[string]string{
				"step_indicator":    strings.ToLower(m.Kind),
				"description":       truncate(m.Text, 300),
				"order":             StepOrder(m.Kind),
				"related_endpoints": endpointRefs(m.Text),
			}
		},
	},
	{
		name:    TableIntegrations,
		prefix:  "integration",
		columns: []string{"keyword", "description", "direction", "format"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(integration|connect|sync|import|export)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(third[\s-]party|external)[:\s]+([^.\n]+)`),
		},
		minText: 20,
		fields: func(m match, _ int) map[string]string {
			format := "JSON"
			if f := formatRe.FindString(m.Text); f != "" {
				format = f
			}
			return map[string]string{
				"keyword":     strings.ToLower(m.Kind),
				"description": truncate(m.Text, 300),
				"direction":   IntegrationDirection(m.Kind),
				"format":      format,
			}
		},
	},
	{
		name:    TablePermissions,
		prefix:  "permission",
		columns: []string{"role", "description", "level", "scope"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(role|permission|access|privilege)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(admin|user|manager|operator)[:\s]+([^.\n]+)`),
		},
		minText: 10,
		fields: func(m match, _ int) map[string]string {
			scope := "resource"
			if containsAnyFold(m.Text, "company", "organization", "account") {
				scope = "company"
			}
			return map[string]string{
				"role":        strings.ToLower(m.Kind),
				"description": truncate(m.Text, 200),
				"level":       PermissionLevel(m.Kind + " " + m.Text),
				"scope":       scope,
			}
		},
	},
	{
		name:    TableValidations,
		prefix:  "validation",
		columns: []string{"keyword", "description", "rule"},
		rules: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(valid|invalid|validate|validation)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(format|pattern|regex)[:\s]+([^.\n]+)`),
			regexp.MustCompile(`(?i)\b(length|size|range)[:\s]+([^.\n]+)`),
		},
		minText: 10,
		fields: func(m match, _ int) map[string]string {
			return map[string]string{
				"keyword":     strings.ToLower(m.Kind),
				"description": truncate(m.Text, 200),
				"rule":        ValidationRule(m.Kind + " " + m.Text),
			}
		},
	},
}

// ErrorType classifies an error code: 4xx codes are client errors, 5xx
// codes server errors, anything else an application error.
func ErrorType(code string) string {
	switch {
	case statusCodeRe.MatchString(code) && code[0] == '4':
		return "client_error"
	case statusCodeRe.MatchString(code) && code[0] == '5':
		return "server_error"
	default:
		return "application_error"
	}
}

// Retryable reports whether a request failing with code may be retried.
func Retryable(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return n == 408 || n == 429 || (n >= 500 && n != 501)
}

// ErrorSeverity maps an error code to high, medium or low.
func ErrorSeverity(code string) string {
	switch ErrorType(code) {
	case "server_error":
		return "high"
	case "client_error":
		return "medium"
	default:
		return "low"
	}
}

// AuthType maps an authentication keyword to API_KEY, BEARER or OTHER.
func AuthType(keyword string) string {
	lower := strings.ToLower(keyword)
	switch {
	case strings.Contains(lower, "key"):
		return "API_KEY"
	case strings.Contains(lower, "token"), strings.Contains(lower, "bearer"), strings.Contains(lower, "authorization"):
		return "BEARER"
	default:
		return "OTHER"
	}
}

func authHeader(kind, text string) string {
	if h := headerNameRe.FindString(text); h != "" {
		return h
	}
	switch kind {
	case "API_KEY":
		return "apiKey"
	case "BEARER":
		return "Authorization"
	default:
		return ""
	}
}

// LimitValue returns the first number in text and the unit that follows it,
// defaulting the unit to "requests".
func LimitValue(text string) (value, unit string) {
	loc := numberRe.FindStringIndex(text)
	if loc == nil {
		return "", ""
	}
	value = text[loc[0]:loc[1]]
	unit = "requests"
	if u := limitUnitRe.FindString(text[loc[1]:]); u != "" {
		unit = strings.ToLower(u)
	}
	return value, unit
}

// RuleStrength maps a rule keyword to a severity and an enforcement mode.
func RuleStrength(keyword string) (severity, enforcement string) {
	switch strings.ToLower(keyword) {
	case "must", "cannot", "can't", "required", "mandatory", "forbidden":
		return "high", "hard"
	case "should", "important", "warning", "attention", "restriction", "constraint":
		return "medium", "soft"
	default:
		return "low", "soft"
	}
}

// StepOrder returns the position a step keyword implies, or "" when it
// only implies relative order.
func StepOrder(indicator string) string {
	if sub := stepNumberRe.FindStringSubmatch(indicator); sub != nil {
		return sub[1]
	}
	switch strings.ToLower(indicator) {
	case "first":
		return "1"
	case "finally":
		return "last"
	default:
		return ""
	}
}

// IntegrationDirection maps an integration keyword to inbound, outbound or
// bidirectional.
func IntegrationDirection(keyword string) string {
	switch strings.ToLower(keyword) {
	case "import":
		return "inbound"
	case "export":
		return "outbound"
	default:
		return "bidirectional"
	}
}

// PermissionLevel returns the strongest role named in text.
func PermissionLevel(text string) string {
	lower := strings.ToLower(text)
	for _, level := range []string{"admin", "manager", "operator"} {
		if strings.Contains(lower, level) {
			return level
		}
	}
	return "user"
}

// ValidationRule classifies a validation statement.
func ValidationRule(text string) string {
	switch {
	case containsAnyFold(text, "length", "characters", "symbols", "size"):
		return "length"
	case containsAnyFold(text, "format", "pattern", "regex"):
		return "format"
	case containsAnyFold(text, "range", "between", "greater", "less", "max", "min"):
		return "range"
	case containsAnyFold(text, "required", "mandatory", "empty"):
		return "presence"
	default:
		return "general"
	}
}

func parameterType(m match) string {
	for _, word := range strings.FieldsFunc(m.Full, func(r rune) bool {
		return r == '(' || r == ')' || r == ',' || r == ' ' || r == ':'
	}) {
		if t, ok := proseTypes[strings.ToLower(word)]; ok {
			return t
		}
	}
	if strings.HasSuffix(m.Kind, "Id") {
		return domain.TypeString
	}
	return ""
}

func endpointRefs(text string) string {
	var refs []string
	for _, sub := range endpointRefRe.FindAllStringSubmatch(text, -1) {
		refs = append(refs, sub[1]+" "+sub[2])
	}
	return strings.Join(refs, ";")
}
