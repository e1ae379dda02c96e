package httpexec

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// BuildWire reconstructs the wire-level request text for audit storage:
// request line with the resolved path, headers in emitted order, blank
// line, body. Non-UTF-8 bodies render as a size placeholder so the
// stored blob stays printable.
func BuildWire(parsed *ParsedRequest, resolvedURL string) string {
	path := "/"
	if u, err := url.Parse(resolvedURL); err == nil {
		if u.Path != "" {
			path = u.Path
		}
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		if u.Fragment != "" {
			path += "#" + u.Fragment
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", parsed.Method, path, parsed.Version)
	for _, h := range parsed.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	b.WriteString("\r\n")
	if parsed.Body != "" {
		if utf8.ValidString(parsed.Body) {
			b.WriteString(parsed.Body)
		} else {
			fmt.Fprintf(&b, "[Binary data: %d bytes]", len(parsed.Body))
		}
	}
	return b.String()
}
