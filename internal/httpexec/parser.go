// -----------------------------------------------------------------------
// Raw request parser - turns a text blob into a structured request
// -----------------------------------------------------------------------

package httpexec

import (
	"strings"

	"github.com/ternarybob/tento/internal/models"
)

// Header is one parsed header line. Order is preserved from the blob.
type Header struct {
	Name  string
	Value string
}

// ParsedRequest is the structured form of a raw request blob.
type ParsedRequest struct {
	Method  string
	Target  string
	Version string
	Headers []Header
	Body    string
}

// HeaderValue returns the first header matching name, case-insensitive.
func (p *ParsedRequest) HeaderValue(name string) (string, bool) {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// ContentType returns the declared Content-Type value, or "".
func (p *ParsedRequest) ContentType() string {
	v, _ := p.HeaderValue("Content-Type")
	return v
}

// IsMultipart reports whether the declared content type is a multipart
// form. Multipart bodies are kept byte-exact through parsing.
func (p *ParsedRequest) IsMultipart() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(p.ContentType())), "multipart/")
}

// ParseRequest parses a raw request blob. The first non-empty line is
// the request line, headers follow until the first blank line, and the
// body is everything after it. Continuation lines (leading space or
// tab) append to the previous header. A declared Content-Length is
// informational only; the executor recomputes it from the body it
// actually sends.
func ParseRequest(blob string) (*ParsedRequest, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, models.NewInvalidInput("malformed request: empty request text")
	}

	crlf := strings.Contains(blob, "\r\n")

	// Split header section from body on the raw blob so the body's
	// exact bytes survive for multipart payloads.
	headerSection := blob
	body := ""
	if crlf {
		if idx := strings.Index(blob, "\r\n\r\n"); idx >= 0 {
			headerSection = blob[:idx]
			body = blob[idx+4:]
		}
	} else {
		if idx := strings.Index(blob, "\n\n"); idx >= 0 {
			headerSection = blob[:idx]
			body = blob[idx+2:]
		}
	}

	lines := strings.Split(strings.ReplaceAll(headerSection, "\r\n", "\n"), "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return nil, models.NewInvalidInput("malformed request: empty request text")
	}

	requestLine := strings.TrimSpace(lines[i])
	parts := strings.Fields(requestLine)
	if len(parts) < 2 {
		return nil, models.NewInvalidInput("malformed request: request line %q needs a method and target", requestLine)
	}

	parsed := &ParsedRequest{
		Method:  strings.ToUpper(parts[0]),
		Target:  parts[1],
		Version: "HTTP/1.1",
	}
	if len(parts) > 2 {
		parsed.Version = parts[2]
	}

	for i++; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(parsed.Headers) > 0 {
				last := &parsed.Headers[len(parsed.Headers)-1]
				last.Value += " " + strings.TrimSpace(line)
			}
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			// Tolerated: a stray non-header line before the blank
			// separator is skipped rather than failing the parse.
			continue
		}
		parsed.Headers = append(parsed.Headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	if parsed.IsMultipart() {
		if !crlf {
			body = strings.ReplaceAll(body, "\n", "\r\n")
		}
		parsed.Body = body
	} else {
		parsed.Body = strings.TrimRight(body, " \t\r\n")
	}

	return parsed, nil
}
