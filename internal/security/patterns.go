package security

import "regexp"

type pattern struct {
	rule string
	re   *regexp.Regexp
}

var sqlInjectionPatterns = []pattern{
	{"sql union select", regexp.MustCompile(`(?i)union\s+(all\s+)?select`)},
	{"sql keyword", regexp.MustCompile(`(?i)(select\s+.+\s+from|insert\s+into|delete\s+from|drop\s+table|truncate\s+table|update\s+\w+\s+set)`)},
	{"sql tautology", regexp.MustCompile(`(?i)\b(or|and)\b\s+\d+\s*=\s*\d+`)},
	{"sql quoted tautology", regexp.MustCompile(`(?i)\b(or|and)\b\s*'[^']*'\s*=`)},
	{"sql quote break", regexp.MustCompile(`(?i)'\s*(or|and)\b`)},
	{"sql comment", regexp.MustCompile(`(--|/\*|\*/)`)},
	{"sql time probe", regexp.MustCompile(`(?i)(sleep\s*\(|benchmark\s*\(|waitfor\s+delay)`)},
}

var xssPatterns = []pattern{
	{"xss script tag", regexp.MustCompile(`(?i)<\s*/?\s*script`)},
	{"xss markup", regexp.MustCompile(`(?i)<\s*(iframe|object|embed|svg|img\s[^>]*onerror)`)},
	{"xss uri scheme", regexp.MustCompile(`(?i)(javascript\s*:|vbscript\s*:|data\s*:\s*text/html)`)},
	{"xss event handler", regexp.MustCompile(`(?i)\bon(error|load|click|mouseover|mouseout|focus|blur|change|submit|keydown|keyup)\s*=`)},
	{"xss sink", regexp.MustCompile(`(?i)(alert\s*\(|eval\s*\(|expression\s*\(|document\.cookie|document\.write)`)},
}

var traversalPatterns = []pattern{
	{"path traversal", regexp.MustCompile(`\.\./|\.\.\\`)},
	{"encoded traversal", regexp.MustCompile(`(?i)(%2e%2e(%2f|%5c|/|\\)|\.\.%2f|\.\.%5c|%252e)`)},
	{"system file probe", regexp.MustCompile(`(?i)/etc/(passwd|shadow|hosts)`)},
	{"windows path probe", regexp.MustCompile(`(?i)c:\\(windows|boot\.ini|inetpub)`)},
}

// allPatterns is the scan order for a single value. Short-circuits on
// the first match.
var allPatterns = [][]pattern{sqlInjectionPatterns, xssPatterns, traversalPatterns}

// matchValue returns the first attack signature found in s, or nil.
func matchValue(s, location string) *ValidationError {
	if s == "" {
		return nil
	}
	for _, group := range allPatterns {
		for _, p := range group {
			if p.re.MatchString(s) {
				return &ValidationError{Rule: p.rule, Location: location}
			}
		}
	}
	return nil
}
