// Package suggestions serves the curated goal templates users can adopt
// as new goals.
package suggestions

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed suggestions.yaml
var defaultCatalog []byte

// DefaultTimeframe applies to templates that do not set one.
const DefaultTimeframe = 30

// Categories known to the catalog.
var Categories = []string{"wellness", "career", "fitness", "finance"}

// Suggestion is one goal template.
type Suggestion struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Timeframe   int      `yaml:"timeframe"`
	Steps       []string `yaml:"steps"`
}

// GoalDescription folds the starter steps into the description so the
// roadmap prompt sees them.
func (s Suggestion) GoalDescription() string {
	if len(s.Steps) == 0 {
		return s.Description
	}
	return fmt.Sprintf("%s Starter steps: %s.", s.Description, strings.Join(s.Steps, "; "))
}

// Catalog is an ordered set of suggestions.
type Catalog struct {
	items []Suggestion
	byID  map[string]int
}

type catalogFile struct {
	Suggestions []Suggestion `yaml:"suggestions"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions: %w", err)
	}

	c := &Catalog{byID: make(map[string]int)}
	for i, s := range f.Suggestions {
		if s.ID == "" || s.Title == "" {
			return nil, fmt.Errorf("suggestion %d: id and title are required", i)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate suggestion id %q", s.ID)
		}
		if s.Timeframe <= 0 {
			s.Timeframe = DefaultTimeframe
		}
		c.byID[s.ID] = len(c.items)
		c.items = append(c.items, s)
	}
	return c, nil
}

// List returns the suggestions of one category, or all when category is
// empty.
func (c *Catalog) List(category string) []Suggestion {
	var out []Suggestion
	for _, s := range c.items {
		if category == "" || strings.EqualFold(s.Category, category) {
			out = append(out, s)
		}
	}
	return out
}

// Get looks up a suggestion by id.
func (c *Catalog) Get(id string) (Suggestion, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Suggestion{}, false
	}
	return c.items[i], true
}

// CategoryCounts returns how many suggestions each category holds.
func (c *Catalog) CategoryCounts() map[string]int {
	out := make(map[string]int)
	for _, s := range c.items {
		out[s.Category]++
	}
	return out
}

// IDs returns every suggestion id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
