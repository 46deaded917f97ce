package scoring

import (
	"fmt"
	"sort"
)

// Weight bounds for a single check. A weight encodes how strongly a failing
// check is expected to hurt ranking.
const (
	MinWeight     = 1
	MaxWeight     = 10
	DefaultWeight = 5
)

// WeightTable maps a check name to its impact weight. Unknown check names
// resolve to the table's fallback weight.
type WeightTable struct {
	weights  map[string]int
	fallback int
}

// defaultWeights is the built-in table. Checks that block indexing or the
// main ranking signals sit at the top of the range.
var defaultWeights = map[string]int{
	// Indexability
	"robots_meta":    10,
	"indexability":   10,
	"http_status":    10,
	"canonical_tag":  8,
	"sitemap":        6,
	"redirect_chain": 6,

	// On-page
	"title_presence":    10,
	"h1_presence":       10,
	"meta_description":  7,
	"title_length":      6,
	"duplicate_title":   6,
	"heading_structure": 4,
	"word_count":        3,
	"image_alt":         5,
	"lang_attribute":    2,

	// Links
	"broken_links":   9,
	"internal_links": 4,

	// Technical
	"https":           9,
	"mixed_content":   7,
	"mobile_viewport": 8,
	"response_time":   7,
	"structured_data": 4,
	"open_graph":      2,
	"compression":     1,
}

// DefaultWeightTable returns the built-in weight table.
func DefaultWeightTable() WeightTable {
	w := make(map[string]int, len(defaultWeights))
	for k, v := range defaultWeights {
		w[k] = v
	}
	return WeightTable{weights: w, fallback: DefaultWeight}
}

// NewWeightTable builds a table from explicit weights. A fallback of zero
// selects DefaultWeight.
func NewWeightTable(weights map[string]int, fallback int) (WeightTable, error) {
	if fallback == 0 {
		fallback = DefaultWeight
	}
	if err := checkWeight("default", fallback); err != nil {
		return WeightTable{}, err
	}
	w := make(map[string]int, len(weights))
	for k, v := range weights {
		if err := checkWeight(k, v); err != nil {
			return WeightTable{}, err
		}
		w[k] = v
	}
	return WeightTable{weights: w, fallback: fallback}, nil
}

// WithOverrides returns a copy of t with the given weights replacing or
// extending the existing entries.
func (t WeightTable) WithOverrides(overrides map[string]int, fallback int) (WeightTable, error) {
	merged := make(map[string]int, len(t.weights)+len(overrides))
	for k, v := range t.weights {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	if fallback == 0 {
		fallback = t.Fallback()
	}
	return NewWeightTable(merged, fallback)
}

// Weight returns the weight for a check name, or the fallback weight when the
// name is not in the table.
func (t WeightTable) Weight(checkName string) int {
	if w, ok := t.weights[checkName]; ok {
		return w
	}
	return t.Fallback()
}

// Fallback returns the weight used for unknown check names.
func (t WeightTable) Fallback() int {
	if t.fallback == 0 {
		return DefaultWeight
	}
	return t.fallback
}

// Names returns the known check names in sorted order.
func (t WeightTable) Names() []string {
	names := make([]string, 0, len(t.weights))
	for k := range t.weights {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func checkWeight(name string, w int) error {
	if w < MinWeight || w > MaxWeight {
		return fmt.Errorf("weight for %q is %d, must be between %d and %d", name, w, MinWeight, MaxWeight)
	}
	return nil
}
