package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const maxFindingsPerSection = 10

// buildMarkdown assembles the canonical report document. The HTML and
// PDF formats are derived from the same structure.
func buildMarkdown(data *reportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Report: %s\n\n", data.job.ID)

	b.WriteString("## Job\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Name | %s |\n", data.job.Name)
	fmt.Fprintf(&b, "| Status | %s |\n", data.job.Status)
	fmt.Fprintf(&b, "| Run | %d |\n", data.job.RunID)
	fmt.Fprintf(&b, "| Created | %s |\n", data.job.CreatedAt.Format(time.RFC3339))
	if data.job.Error != "" {
		fmt.Fprintf(&b, "| Error | %s |\n", data.job.Error)
	}
	b.WriteString("\n")

	progress := data.job.Progress
	b.WriteString("## Progress\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total requests | %d |\n", progress.TotalRequests)
	fmt.Fprintf(&b, "| Completed | %d |\n", progress.CompletedRequests)
	fmt.Fprintf(&b, "| Successful | %d |\n", progress.SuccessfulRequests)
	fmt.Fprintf(&b, "| Failed | %d |\n", progress.FailedRequests)
	fmt.Fprintf(&b, "| Completion | %.1f%% |\n", progress.Percentage())
	fmt.Fprintf(&b, "| Elapsed | %.2fs |\n", progress.Elapsed())
	b.WriteString("\n")

	b.WriteString("## Status Code Distribution\n\n")
	if len(data.statusCounts) == 0 {
		b.WriteString("No responses recorded.\n\n")
	} else {
		b.WriteString("| Status | Count |\n|---|---|\n")
		codes := make([]int, 0, len(data.statusCounts))
		for code := range data.statusCounts {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			label := fmt.Sprintf("%d", code)
			if code == 0 {
				label = "transport failure"
			}
			fmt.Fprintf(&b, "| %s | %d |\n", label, data.statusCounts[code])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Error Patterns\n\n")
	fmt.Fprintf(&b, "Findings: %d across %d results.\n\n", len(data.patterns.Findings), data.patterns.TotalResults)
	if len(data.patterns.Findings) > 0 {
		b.WriteString("| Request | Patterns | Payload |\n|---|---|---|\n")
		for i, finding := range data.patterns.Findings {
			if i >= maxFindingsPerSection {
				fmt.Fprintf(&b, "\n%d more findings omitted.\n", len(data.patterns.Findings)-maxFindingsPerSection)
				break
			}
			fmt.Fprintf(&b, "| %d | %s | %s |\n",
				finding.Ordinal, escapeCell(strings.Join(finding.Patterns, "; ")), escapeCell(finding.Payload))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Payload Reflection\n\n")
	fmt.Fprintf(&b, "Findings: %d across %d results.\n\n", len(data.reflection.Findings), data.reflection.TotalResults)
	if len(data.reflection.Findings) > 0 {
		b.WriteString("| Request | Variant | Context | Payload |\n|---|---|---|---|\n")
		for i, finding := range data.reflection.Findings {
			if i >= maxFindingsPerSection {
				fmt.Fprintf(&b, "\n%d more findings omitted.\n", len(data.reflection.Findings)-maxFindingsPerSection)
				break
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n",
				finding.Ordinal, finding.Variant, finding.Context, escapeCell(finding.Payload))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Time Delays\n\n")
	fmt.Fprintf(&b, "Flagged: %d across %d results.\n\n", data.delays.FlaggedCount, data.delays.TotalResults)
	if len(data.delays.Findings) > 0 {
		b.WriteString("| Request | Elapsed | Baseline | Delta | Payload |\n|---|---|---|---|---|\n")
		for _, finding := range data.delays.Findings {
			fmt.Fprintf(&b, "| %d | %.2fs | %.2fs | %.2fs | %s |\n",
				finding.Ordinal, finding.Elapsed, finding.Baseline, finding.Delta, escapeCell(finding.Payload))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// escapeCell keeps payload text from breaking the table syntax.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
