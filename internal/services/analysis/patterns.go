package analysis

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/tento/internal/models"
)

//go:embed patterns.yaml
var patternsYAML []byte

// patternCatalog mirrors the grouping in patterns.yaml. Groups flatten
// in declaration order so the default pattern list is deterministic.
type patternCatalog struct {
	SQL       []string `yaml:"sql"`
	PHP       []string `yaml:"php"`
	DotNet    []string `yaml:"dotnet"`
	Java      []string `yaml:"java"`
	WebServer []string `yaml:"web_server"`
}

var defaultPatterns = loadDefaultPatterns()

func loadDefaultPatterns() []string {
	var catalog patternCatalog
	if err := yaml.Unmarshal(patternsYAML, &catalog); err != nil {
		panic(fmt.Sprintf("invalid embedded pattern catalog: %v", err))
	}
	var flat []string
	flat = append(flat, catalog.SQL...)
	flat = append(flat, catalog.PHP...)
	flat = append(flat, catalog.DotNet...)
	flat = append(flat, catalog.Java...)
	flat = append(flat, catalog.WebServer...)
	return flat
}

// DefaultPatterns returns a copy of the built-in error fragments.
func DefaultPatterns() []string {
	patterns := make([]string, len(defaultPatterns))
	copy(patterns, defaultPatterns)
	return patterns
}

const snippetRadius = 40

// matchPatterns scans one result's response text for the configured
// fragments and returns a finding when any matched.
func matchPatterns(result *models.JobResult, patterns []string, caseSensitive bool, counts map[string]int) *models.PatternFinding {
	if result.Response == nil {
		return nil
	}
	haystack := responseText(result.Response)
	scanned := haystack
	if !caseSensitive {
		scanned = strings.ToLower(haystack)
	}

	var matched []string
	firstOffset := -1
	for _, pattern := range patterns {
		needle := pattern
		if !caseSensitive {
			needle = strings.ToLower(pattern)
		}
		offset := strings.Index(scanned, needle)
		if offset < 0 {
			continue
		}
		matched = append(matched, pattern)
		counts[pattern]++
		if firstOffset < 0 || offset < firstOffset {
			firstOffset = offset
		}
	}
	if len(matched) == 0 {
		return nil
	}

	return &models.PatternFinding{
		Ordinal:  result.Ordinal,
		Patterns: matched,
		Snippet:  snippetAround(haystack, firstOffset),
		Payload:  payloadOf(result),
	}
}

// responseText reconstructs the scannable surface of a response:
// status line, headers in sorted order, then the body.
func responseText(response *models.HTTPResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP %d\r\n", response.StatusCode)
	names := make([]string, 0, len(response.Headers))
	for name := range response.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", name, response.Headers[name])
	}
	b.WriteString("\r\n")
	b.WriteString(response.Body)
	return b.String()
}

// snippetAround extracts up to snippetRadius bytes either side of the
// match offset.
func snippetAround(text string, offset int) string {
	if offset < 0 {
		return ""
	}
	start := offset - snippetRadius
	if start < 0 {
		start = 0
	}
	end := offset + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	return text[start:end]
}

// payloadOf joins the payload values that produced the row, for
// display in findings.
func payloadOf(result *models.JobResult) string {
	values := result.Provenance.Values()
	if len(values) == 0 {
		return ""
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}
