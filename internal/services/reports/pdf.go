package reports

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
)

// renderPDF lays out the report directly from the collected data
// rather than round-tripping through markdown.
func renderPDF(data *reportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Job Report: %s", data.job.ID), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeSection(pdf, "Job")
	writePairs(pdf, [][2]string{
		{"Name", data.job.Name},
		{"Status", string(data.job.Status)},
		{"Run", fmt.Sprintf("%d", data.job.RunID)},
		{"Error", data.job.Error},
	})

	progress := data.job.Progress
	writeSection(pdf, "Progress")
	writePairs(pdf, [][2]string{
		{"Total requests", fmt.Sprintf("%d", progress.TotalRequests)},
		{"Completed", fmt.Sprintf("%d", progress.CompletedRequests)},
		{"Successful", fmt.Sprintf("%d", progress.SuccessfulRequests)},
		{"Failed", fmt.Sprintf("%d", progress.FailedRequests)},
		{"Completion", fmt.Sprintf("%.1f%%", progress.Percentage())},
		{"Elapsed", fmt.Sprintf("%.2fs", progress.Elapsed())},
	})

	writeSection(pdf, "Status Code Distribution")
	codes := make([]int, 0, len(data.statusCounts))
	for code := range data.statusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	pairs := make([][2]string, 0, len(codes))
	for _, code := range codes {
		label := fmt.Sprintf("%d", code)
		if code == 0 {
			label = "transport failure"
		}
		pairs = append(pairs, [2]string{label, fmt.Sprintf("%d", data.statusCounts[code])})
	}
	writePairs(pdf, pairs)

	writeSection(pdf, "Error Patterns")
	writeLine(pdf, fmt.Sprintf("Findings: %d across %d results", len(data.patterns.Findings), data.patterns.TotalResults))
	for i, finding := range data.patterns.Findings {
		if i >= maxFindingsPerSection {
			writeLine(pdf, fmt.Sprintf("%d more findings omitted", len(data.patterns.Findings)-maxFindingsPerSection))
			break
		}
		writeLine(pdf, fmt.Sprintf("#%d  %s  (payload: %s)",
			finding.Ordinal, strings.Join(finding.Patterns, "; "), finding.Payload))
	}

	writeSection(pdf, "Payload Reflection")
	writeLine(pdf, fmt.Sprintf("Findings: %d across %d results", len(data.reflection.Findings), data.reflection.TotalResults))
	for i, finding := range data.reflection.Findings {
		if i >= maxFindingsPerSection {
			writeLine(pdf, fmt.Sprintf("%d more findings omitted", len(data.reflection.Findings)-maxFindingsPerSection))
			break
		}
		writeLine(pdf, fmt.Sprintf("#%d  %s in %s context  (payload: %s)",
			finding.Ordinal, finding.Variant, finding.Context, finding.Payload))
	}

	writeSection(pdf, "Time Delays")
	writeLine(pdf, fmt.Sprintf("Flagged: %d across %d results", data.delays.FlaggedCount, data.delays.TotalResults))
	for _, finding := range data.delays.Findings {
		writeLine(pdf, fmt.Sprintf("#%d  %.2fs over %.2fs baseline  (payload: %s)",
			finding.Ordinal, finding.Elapsed, finding.Baseline, finding.Payload))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
}

func writePairs(pdf *fpdf.Fpdf, pairs [][2]string) {
	for _, pair := range pairs {
		if pair[1] == "" {
			continue
		}
		pdf.CellFormat(45, 6, pair[0], "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, pair[1], "", "L", false)
	}
}

func writeLine(pdf *fpdf.Fpdf, text string) {
	pdf.MultiCell(0, 6, text, "", "L", false)
}
