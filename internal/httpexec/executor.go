// -----------------------------------------------------------------------
// HTTP executor - sends raw request text, one client per batch
// -----------------------------------------------------------------------

package httpexec

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/models"
	"golang.org/x/time/rate"
)

const defaultMaxResponseBytes = 10 * 1024 * 1024

// Executor sends raw request text to the configured target. A batch
// shares one http.Client; transport failures are embedded in the
// response rather than returned as errors so a batch runs to the end.
type Executor struct {
	logger arbor.ILogger
	config *common.ExecutorConfig
}

// NewExecutor creates the request executor.
func NewExecutor(logger arbor.ILogger, config *common.ExecutorConfig) interfaces.BatchExecutor {
	return &Executor{
		logger: logger,
		config: config,
	}
}

// Execute sends one raw request with a dedicated client.
func (e *Executor) Execute(ctx context.Context, content string, config models.HTTPConfig) *models.HTTPResponse {
	client := newClient(config)
	defer client.CloseIdleConnections()
	return e.send(ctx, client, content, config)
}

// ExecuteBatch sends every request through one shared client, in the
// mode selected by config, delivering results in ordinal order.
func (e *Executor) ExecuteBatch(ctx context.Context, contents []string, config models.HTTPConfig, onResult func(ordinal int, response *models.HTTPResponse)) error {
	client := newClient(config)
	defer client.CloseIdleConnections()

	if config.SequentialExecution {
		return e.executeSequential(ctx, client, contents, config, onResult)
	}
	return e.executeParallel(ctx, client, contents, config, onResult)
}

// executeSequential sends requests one at a time in ordinal order,
// sleeping request_delay between them. Cancellation takes effect
// between requests: the in-flight exchange is detached from the batch
// context so it always runs to completion and records its real
// response. The delay is sliced so that a cancellation never waits
// more than a second to take effect.
func (e *Executor) executeSequential(ctx context.Context, client *http.Client, contents []string, config models.HTTPConfig, onResult func(int, *models.HTTPResponse)) error {
	for i, content := range contents {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		onResult(i, e.send(context.WithoutCancel(ctx), client, content, config))

		if i < len(contents)-1 && config.RequestDelay > 0 {
			delay := time.Duration(config.RequestDelay * float64(time.Second))
			if err := sleepWithCancel(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// executeParallel fans out every request, bounded by the configured
// fan-out limit and request rate, then joins results positionally. On
// cancellation only the outstanding slots are dropped: requests that
// already ran still deliver their responses before the error returns.
func (e *Executor) executeParallel(ctx context.Context, client *http.Client, contents []string, config models.HTTPConfig, onResult func(int, *models.HTTPResponse)) error {
	responses := make([]*models.HTTPResponse, len(contents))

	limit := e.config.MaxParallelRequests
	if limit <= 0 {
		limit = 16
	}
	sem := make(chan struct{}, limit)

	var limiter *rate.Limiter
	if e.config.MaxRequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.config.MaxRequestsPerSecond), 1)
	}

	var wg sync.WaitGroup
	for i, content := range contents {
		wg.Add(1)
		go func(ordinal int, body string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			responses[ordinal] = e.send(ctx, client, body, config)
		}(i, content)
	}
	wg.Wait()

	err := ctx.Err()
	for i, response := range responses {
		if response == nil {
			if err != nil {
				continue
			}
			response = &models.HTTPResponse{Headers: map[string]string{}, Error: "request was not sent"}
		}
		onResult(i, response)
	}
	return err
}

// send performs one full exchange: parse, resolve, emit, read.
func (e *Executor) send(ctx context.Context, client *http.Client, content string, config models.HTTPConfig) *models.HTTPResponse {
	parsed, err := ParseRequest(content)
	if err != nil {
		return failedResponse(err)
	}

	resolvedURL, host, err := resolveURL(parsed, config)
	if err != nil {
		return failedResponse(err)
	}

	headers := emitHeaders(parsed, config, host, e.config.UserAgent)
	body := prepareBody(parsed)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, parsed.Method, resolvedURL, reader)
	if err != nil {
		return failedResponse(err)
	}
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Host") {
			req.Host = h.Value
			continue
		}
		req.Header.Set(h.Name, h.Value)
	}

	audit := BuildWire(&ParsedRequest{
		Method:  parsed.Method,
		Target:  parsed.Target,
		Version: parsed.Version,
		Headers: headers,
		Body:    body,
	}, resolvedURL)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		e.logger.Debug().Err(err).Str("url", resolvedURL).Msg("Request transport failure")
		result := failedResponse(err)
		result.ActualRequest = audit
		return result
	}
	defer resp.Body.Close()

	limit := e.config.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, limit))
	elapsed := time.Since(start).Seconds()

	result := &models.HTTPResponse{
		StatusCode:    resp.StatusCode,
		Headers:       flattenHeaders(resp.Header),
		Body:          string(respBody),
		URL:           resp.Request.URL.String(),
		ElapsedTime:   elapsed,
		ActualRequest: audit,
	}
	if readErr != nil {
		result.Error = readErr.Error()
	}
	return result
}

// newClient builds the per-batch client from the HTTPConfig: timeout,
// redirect policy, and certificate verification.
func newClient(config models.HTTPConfig) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	if !config.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   time.Duration(config.Timeout * float64(time.Second)),
	}
	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// resolveURL applies the target resolution rules: an absolute target
// supplies path, query, fragment, and host; otherwise the target is
// the path and the host comes from the Host header or base_url. The
// scheme always comes from config.
func resolveURL(parsed *ParsedRequest, config models.HTTPConfig) (string, string, error) {
	target := parsed.Target
	var host, path string

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", "", models.NewInvalidInput("malformed request: invalid absolute target %q", target)
		}
		host = u.Host
		path = u.Path
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		if u.Fragment != "" {
			path += "#" + u.Fragment
		}
	} else {
		path = target
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if h, ok := parsed.HeaderValue("Host"); ok && strings.TrimSpace(h) != "" {
			host = strings.TrimSpace(h)
		} else {
			host = config.BaseURL
		}
	}

	return config.Scheme + "://" + host + path, host, nil
}

// emitHeaders builds the outgoing header list: additional headers from
// config first, then parsed headers overriding them, excluding the
// transport-owned host, connection, and content-length. Host is
// synthesized from the resolved host.
func emitHeaders(parsed *ParsedRequest, config models.HTTPConfig, host, userAgent string) []Header {
	headers := make([]Header, 0, len(parsed.Headers)+len(config.AdditionalHeaders)+2)

	names := make([]string, 0, len(config.AdditionalHeaders))
	for name := range config.AdditionalHeaders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		headers = append(headers, Header{Name: name, Value: config.AdditionalHeaders[name]})
	}

	for _, h := range parsed.Headers {
		switch strings.ToLower(h.Name) {
		case "host", "connection", "content-length":
			continue
		}
		headers = setHeader(headers, h.Name, h.Value)
	}

	headers = append([]Header{{Name: "Host", Value: host}}, headers...)
	if _, ok := findHeader(headers, "User-Agent"); !ok && userAgent != "" {
		headers = append(headers, Header{Name: "User-Agent", Value: userAgent})
	}
	return headers
}

func setHeader(headers []Header, name, value string) []Header {
	for i := range headers {
		if strings.EqualFold(headers[i].Name, name) {
			headers[i].Value = value
			return headers
		}
	}
	return append(headers, Header{Name: name, Value: value})
}

func findHeader(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// prepareBody applies the per-content-type body policy. GET and HEAD
// drop the body entirely.
func prepareBody(parsed *ParsedRequest) string {
	if parsed.Method == http.MethodGet || parsed.Method == http.MethodHead {
		return ""
	}
	body := parsed.Body
	if body == "" {
		return ""
	}

	mediaType, params, err := mime.ParseMediaType(parsed.ContentType())
	if err != nil {
		return body
	}
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return closeMultipart(body, params["boundary"])
	case mediaType == "application/json":
		var value interface{}
		if json.Unmarshal([]byte(body), &value) == nil {
			if out, marshalErr := json.Marshal(value); marshalErr == nil {
				return string(out)
			}
		}
		return body
	default:
		return body
	}
}

// closeMultipart rewrites a trailing --boundary terminator into the
// closing --boundary-- form. All other bytes are preserved.
func closeMultipart(body, boundary string) string {
	if boundary == "" {
		return body
	}
	open := "--" + boundary
	closing := open + "--"

	trimmed := strings.TrimRight(body, "\r\n")
	if strings.HasSuffix(trimmed, closing) || !strings.HasSuffix(trimmed, open) {
		return body
	}
	return body[:len(trimmed)] + "--" + body[len(trimmed):]
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}

func failedResponse(err error) *models.HTTPResponse {
	return &models.HTTPResponse{
		Headers: map[string]string{},
		Error:   err.Error(),
	}
}

// sleepWithCancel sleeps for d in slices of at most one second so a
// cancelled context interrupts the wait promptly.
func sleepWithCancel(ctx context.Context, d time.Duration) error {
	for d > 0 {
		slice := d
		if slice > time.Second {
			slice = time.Second
		}
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		d -= slice
	}
	return nil
}
