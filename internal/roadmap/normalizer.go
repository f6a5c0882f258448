// Package roadmap turns LLM roadmap text into ordered, day-indexed roadmap
// items, with a deterministic fallback when the text is unusable.
package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"dreamplan/internal/dayrange"
	"dreamplan/internal/logging"
	"dreamplan/internal/perception"
	"dreamplan/internal/types"

	"github.com/google/uuid"
)

// Result is the outcome of normalization. Items is never empty for a goal
// with a positive timeframe.
type Result struct {
	Items    []types.RoadmapItem
	Fallback bool   // true when Items came from FallbackItems
	Reason   string // why the fallback was taken
}

// Normalizer converts raw LLM output into roadmap items.
type Normalizer struct {
	newID func() string
}

// NewNormalizer creates a Normalizer that assigns uuid ids.
func NewNormalizer() *Normalizer {
	return &Normalizer{newID: uuid.NewString}
}

// NewNormalizerWithIDs creates a Normalizer drawing ids from newID.
func NewNormalizerWithIDs(newID func() string) *Normalizer {
	if newID == nil {
		return NewNormalizer()
	}
	return &Normalizer{newID: newID}
}

// periodKeys are the accepted spellings of an item's time period, in
// lookup order.
var periodKeys = []string{"timePeriod", "timeperiod", "time_period", "period", "day"}

// Normalize never fails: anything it cannot decode yields the fallback
// roadmap.
func (n *Normalizer) Normalize(goal *types.Goal, raw string) Result {
	body := perception.StripCodeFences(raw)

	elems, err := decodeArray(body)
	if err != nil {
		return n.Fallback(goal, fmt.Sprintf("decode: %v", err))
	}
	if len(elems) == 0 {
		return n.Fallback(goal, "empty roadmap")
	}

	items := make([]types.RoadmapItem, 0, len(elems))
	skipped := 0
	for _, elem := range elems {
		item, ok := n.decodeItem(goal, elem)
		if !ok {
			skipped++
			continue
		}
		item.Position = len(items)
		items = append(items, item)
	}
	if len(items) == 0 {
		return n.Fallback(goal, fmt.Sprintf("no usable items among %d", len(elems)))
	}
	if skipped > 0 {
		logging.Get(logging.CategoryRoadmap).Warn("goal %s: skipped %d roadmap entries without a time period", goal.ID, skipped)
	}
	logging.RoadmapDebug("goal %s: normalized %d roadmap items", goal.ID, len(items))
	return Result{Items: items}
}

// Fallback returns the deterministic roadmap, recording reason.
func (n *Normalizer) Fallback(goal *types.Goal, reason string) Result {
	logging.Roadmap("goal %s: using fallback roadmap (%s)", goal.ID, reason)
	return Result{Items: FallbackItems(goal, n.newID), Fallback: true, Reason: reason}
}

// decodeArray decodes a JSON array, retrying on the outermost [...] when
// the model wrapped it in prose.
func decodeArray(body string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	err := json.Unmarshal([]byte(body), &elems)
	if err == nil {
		return elems, nil
	}
	start, end := strings.IndexByte(body, '['), strings.LastIndexByte(body, ']')
	if start >= 0 && end > start {
		if err2 := json.Unmarshal([]byte(body[start:end+1]), &elems); err2 == nil {
			return elems, nil
		}
	}
	return nil, err
}

func (n *Normalizer) decodeItem(goal *types.Goal, elem json.RawMessage) (types.RoadmapItem, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil {
		return types.RoadmapItem{}, false
	}

	label, rng, ok := periodOf(fields)
	if !ok {
		return types.RoadmapItem{}, false
	}

	item := types.RoadmapItem{
		ID:     n.newID(),
		GoalID: goal.ID,
		Label:  label,
		Range:  rng,
	}

	tasksRaw, present := lookup(fields, "tasks", "todos")
	switch {
	case present && !isNull(tasksRaw):
		item.Tasks = decodeTaskList(tasksRaw)
	default:
		item.Tasks = []string{fmt.Sprintf("Work on %s (%s)", goal.Title, label)}
	}
	return item, true
}

// periodOf extracts the label and parsed range. A numeric day becomes a
// "Day N" label; a label without digits is kept with a nil range.
func periodOf(fields map[string]json.RawMessage) (string, *dayrange.Range, bool) {
	raw, ok := lookup(fields, periodKeys...)
	if !ok || isNull(raw) {
		return "", nil, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", nil, false
		}
		if r, err := dayrange.Parse(s); err == nil {
			return s, &r, true
		}
		return s, nil, true
	}

	r, err := dayrange.ParseValue(raw)
	if err != nil {
		return "", nil, false
	}
	return r.Label(), &r, true
}

// decodeTaskList accepts a list of strings or a single string. Blank
// entries are dropped; an explicit empty list stays empty.
func decodeTaskList(raw json.RawMessage) []string {
	out := []string{}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var one string
		if err := json.Unmarshal(raw, &one); err == nil && strings.TrimSpace(one) != "" {
			out = append(out, strings.TrimSpace(one))
		}
		return out
	}
	for _, elem := range list {
		var s string
		if err := json.Unmarshal(elem, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// lookup finds the first present key, case-insensitively.
func lookup(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			return v, true
		}
	}
	for _, key := range keys {
		for k, v := range fields {
			if strings.EqualFold(k, key) {
				return v, true
			}
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
