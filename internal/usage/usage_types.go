package usage

import "time"

// Operations recorded by the planner.
const (
	OpRoadmap = "roadmap"
	OpTasks   = "tasks"
	OpUnknown = "unknown"
)

// Data is the persisted document.
type Data struct {
	Version   string `json:"version"`
	Aggregate Stats  `json:"aggregate"`
}

// Stats holds generation counters broken down by dimension.
type Stats struct {
	Total       Counts            `json:"total"`
	ByProvider  map[string]Counts `json:"by_provider"`
	ByModel     map[string]Counts `json:"by_model"`
	ByOperation map[string]Counts `json:"by_operation"` // roadmap, tasks
	LastCall    time.Time         `json:"last_call,omitempty"`
}

// Counts sums LLM calls and their outcomes. Sizes are in characters; the
// providers do not report tokens through LLMClient.
type Counts struct {
	Calls         int64 `json:"calls"`
	Failures      int64 `json:"failures"`
	Fallbacks     int64 `json:"fallbacks"` // heuristic output used instead
	PromptChars   int64 `json:"prompt_chars"`
	ResponseChars int64 `json:"response_chars"`
	LatencyMillis int64 `json:"latency_ms"`
}

func (c *Counts) addCall(prompt, response int, failed bool, latency time.Duration) {
	c.Calls++
	if failed {
		c.Failures++
	}
	c.PromptChars += int64(prompt)
	c.ResponseChars += int64(response)
	c.LatencyMillis += latency.Milliseconds()
}

// FallbackRate is the share of generations that ended on a heuristic.
func (c Counts) FallbackRate() float64 {
	if c.Calls == 0 {
		return 0
	}
	return float64(c.Fallbacks) / float64(c.Calls)
}

// AvgLatency is the mean call latency.
func (c Counts) AvgLatency() time.Duration {
	if c.Calls == 0 {
		return 0
	}
	return time.Duration(c.LatencyMillis/c.Calls) * time.Millisecond
}
