// -----------------------------------------------------------------------
// Analysis engine configurations, findings, and reports
// -----------------------------------------------------------------------

package models

// Baseline methods for the time-delay detector.
const (
	BaselineFirstRequest = "first_request"
	BaselineMedian       = "median"
	BaselineMean         = "mean"
)

// Reflection variants searched in response bodies.
const (
	VariantRaw        = "raw"
	VariantHTMLEscape = "html_encoded"
	VariantURLEscape  = "url_encoded"
	VariantJSEscape   = "js_encoded"
)

// ErrorPatternConfig drives the error-pattern matcher. An empty
// Patterns list selects the built-in catalog.
type ErrorPatternConfig struct {
	Patterns      []string `json:"patterns,omitempty"`
	CaseSensitive bool     `json:"case_sensitive"`
}

// ReflectionConfig drives the payload-reflection detector. Payloads
// shorter than MinPayloadLength are skipped so single characters do
// not match incidentally. Callers decode request bodies over
// DefaultReflectionConfig so omitted toggles keep their defaults.
type ReflectionConfig struct {
	CheckHTMLEncoded bool `json:"check_html_encoded"`
	CheckURLEncoded  bool `json:"check_url_encoded"`
	CheckJSEncoded   bool `json:"check_js_encoded"`
	MinPayloadLength int  `json:"min_payload_length"`
}

// TimeDelayConfig drives the time-delay anomaly detector. When
// PartitionByPayload is set, results whose payloads contain known
// delay functions are baselined separately from the rest.
type TimeDelayConfig struct {
	TimeThreshold      float64 `json:"time_threshold"`
	BaselineMethod     string  `json:"baseline_method"`
	PartitionByPayload bool    `json:"partition_by_payload"`
	TopSlowest         int     `json:"top_slowest"`
}

// DefaultReflectionConfig enables every encoded variant and requires
// payloads of at least four characters.
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		CheckHTMLEncoded: true,
		CheckURLEncoded:  true,
		CheckJSEncoded:   true,
		MinPayloadLength: 4,
	}
}

// DefaultTimeDelayConfig flags anything five seconds over the median.
func DefaultTimeDelayConfig() TimeDelayConfig {
	return TimeDelayConfig{
		TimeThreshold:  5.0,
		BaselineMethod: BaselineMedian,
		TopSlowest:     10,
	}
}

// PatternFinding is one result that matched error patterns.
type PatternFinding struct {
	Ordinal  int      `json:"request_number"`
	Patterns []string `json:"matched_patterns"`
	Snippet  string   `json:"snippet"`
	Payload  string   `json:"payload,omitempty"`
}

// ErrorPatternReport summarizes one matcher pass over a job.
type ErrorPatternReport struct {
	JobID         string             `json:"job_id"`
	Config        ErrorPatternConfig `json:"config"`
	TotalResults  int                `json:"total_results"`
	PatternCounts map[string]int     `json:"pattern_counts"`
	Findings      []PatternFinding   `json:"findings"`
}

// ReflectionFinding is one payload hit in a response body.
type ReflectionFinding struct {
	Ordinal int    `json:"request_number"`
	Payload string `json:"payload"`
	Variant string `json:"variant"`
	Offset  int    `json:"offset"`
	Context string `json:"context,omitempty"`
}

// ReflectionReport summarizes one reflection pass over a job.
type ReflectionReport struct {
	JobID         string              `json:"job_id"`
	Config        ReflectionConfig    `json:"config"`
	TotalResults  int                 `json:"total_results"`
	VariantCounts map[string]int      `json:"variant_counts"`
	Findings      []ReflectionFinding `json:"findings"`
}

// TimeDelayFinding is one result whose elapsed time exceeded the
// baseline by at least the configured threshold.
type TimeDelayFinding struct {
	Ordinal   int     `json:"request_number"`
	Payload   string  `json:"payload,omitempty"`
	Elapsed   float64 `json:"elapsed_time"`
	Baseline  float64 `json:"baseline"`
	Delta     float64 `json:"delta"`
	Partition string  `json:"partition,omitempty"`
}

// TimeDelayReport summarizes one time-delay pass over a job. Findings
// hold the top slowest flagged entries, slowest first.
type TimeDelayReport struct {
	JobID        string             `json:"job_id"`
	Config       TimeDelayConfig    `json:"config"`
	TotalResults int                `json:"total_results"`
	Baselines    map[string]float64 `json:"baselines"`
	FlaggedCount int                `json:"flagged_count"`
	Findings     []TimeDelayFinding `json:"findings"`
}
