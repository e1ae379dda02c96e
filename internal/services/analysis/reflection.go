package analysis

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/tento/internal/models"
)

// jsEscaper produces the backslash-escaped form a JavaScript string
// literal would carry.
var jsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	`/`, `\/`,
)

// variantsOf builds the searchable forms of one payload. Encoded
// variants identical to the raw payload are dropped so a hit is only
// reported once.
func variantsOf(payload string, cfg models.ReflectionConfig) map[string]string {
	variants := map[string]string{models.VariantRaw: payload}
	add := func(name, encoded string) {
		if encoded == payload {
			return
		}
		variants[name] = encoded
	}
	if cfg.CheckHTMLEncoded {
		add(models.VariantHTMLEscape, html.EscapeString(payload))
	}
	if cfg.CheckURLEncoded {
		add(models.VariantURLEscape, url.QueryEscape(payload))
	}
	if cfg.CheckJSEncoded {
		add(models.VariantJSEscape, jsEscaper.Replace(payload))
	}
	return variants
}

// findReflections searches one result's body for each payload variant
// and appends a finding per variant hit.
func findReflections(result *models.JobResult, cfg models.ReflectionConfig, counts map[string]int) []models.ReflectionFinding {
	if result.Response == nil || result.Response.Body == "" {
		return nil
	}
	body := result.Response.Body

	var findings []models.ReflectionFinding
	for _, payload := range result.Provenance.Values() {
		if len(payload) < cfg.MinPayloadLength {
			continue
		}
		variants := variantsOf(payload, cfg)
		for _, variant := range []string{models.VariantRaw, models.VariantHTMLEscape, models.VariantURLEscape, models.VariantJSEscape} {
			needle, ok := variants[variant]
			if !ok {
				continue
			}
			offset := strings.Index(body, needle)
			if offset < 0 {
				continue
			}
			counts[variant]++
			// Context classification searches the raw payload: goquery
			// decodes entities, so html-encoded hits surface in text and
			// attribute nodes in their decoded form.
			findings = append(findings, models.ReflectionFinding{
				Ordinal: result.Ordinal,
				Payload: payload,
				Variant: variant,
				Offset:  offset,
				Context: reflectionContext(body, payload),
			})
		}
	}
	return findings
}

// reflectionContext classifies where in an HTML body the reflected
// value landed. Script blocks are the most exploitable surface, then
// attribute values, then text nodes. Non-HTML bodies and parse
// failures report unknown.
func reflectionContext(body, needle string) string {
	if !strings.Contains(body, "<") {
		return "unknown"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "unknown"
	}

	context := "unknown"
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Text(), needle) {
			context = "script"
			return false
		}
		return true
	})
	if context != "unknown" {
		return context
	}

	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range s.Nodes[0].Attr {
			if strings.Contains(attr.Val, needle) {
				context = "attribute"
				return false
			}
		}
		return true
	})
	if context != "unknown" {
		return context
	}

	if strings.Contains(doc.Text(), needle) {
		return "text"
	}
	return "unknown"
}
