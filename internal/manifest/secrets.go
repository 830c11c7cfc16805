package manifest

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern that might indicate a credential.
type SensitivePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

// Manifests only need a token for private repositories, and that belongs in
// RELFETCH_TOKEN or GITHUB_TOKEN rather than in a checked-in file.
var sensitivePatterns = []SensitivePattern{
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`(gh[pousr]_[a-zA-Z0-9]{36,}|github_pat_[a-zA-Z0-9_]{22,})`),
		Description: "Potential GitHub token detected",
	},
	{
		Name:        "Token",
		Pattern:     regexp.MustCompile(`(?i)(token|auth[_-]?token|access[_-]?token|bearer)\s*=\s*['"][a-zA-Z0-9_-]{15,}['"]`),
		Description: "Potential authentication token detected",
	},
}

// SensitiveDataFinding represents a detected credential-like line.
type SensitiveDataFinding struct {
	PatternName string
	Description string
	Line        int
	Preview     string // Redacted preview of the match
}

// DetectSensitiveData scans manifest source for credential-like values.
// A line is reported once, under the first pattern it matches.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding

	for lineNum, line := range strings.Split(content, "\n") {
		for _, pattern := range sensitivePatterns {
			if pattern.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: pattern.Name,
					Description: pattern.Description,
					Line:        lineNum + 1,
					Preview:     redactSensitiveValue(line, pattern.Pattern),
				})
				break
			}
		}
	}

	return findings
}

// redactSensitiveValue keeps the key of an assignment and hides the value.
func redactSensitiveValue(line string, pattern *regexp.Regexp) string {
	if key, _, ok := strings.Cut(line, "="); ok {
		return strings.TrimSpace(key) + " = [REDACTED]"
	}
	return strings.TrimSpace(pattern.ReplaceAllString(line, "[REDACTED]"))
}

// FormatSensitiveDataWarning renders findings as a single warning message.
func FormatSensitiveDataWarning(findings []SensitiveDataFinding) string {
	if len(findings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("manifest appears to contain credentials:\n")
	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("  line %d: %s (%s)\n", f.Line, f.Description, f.Preview))
	}
	sb.WriteString("set RELFETCH_TOKEN or GITHUB_TOKEN instead of hardcoding tokens")
	return sb.String()
}
