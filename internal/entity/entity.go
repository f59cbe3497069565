// Package entity holds the entity span types shared by the native
// recognizers and the custom pattern matcher.
package entity

import (
	"fmt"
	"sort"
)

// Source values identify which stage produced an entity.
const (
	SourceModel   = "model"
	SourcePattern = "pattern"
)

// Entity is one recognized span of text. Offsets are byte offsets into
// the analyzed document and satisfy text[Start:End] == Text.
type Entity struct {
	Text        string `json:"text"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"`
}

// String returns a debug representation, e.g. ORG("WHO")[4:7].
func (e Entity) String() string {
	return fmt.Sprintf("%s(%q)[%d:%d]", e.Label, e.Text, e.Start, e.End)
}

// Collection is an ordered list of entities. After Merge the ordering
// invariant is ascending Start offset.
type Collection []Entity

// Merge concatenates the native and custom entity lists and stable-sorts
// the result by start offset. Ties keep insertion order, so native
// entities precede custom ones at equal offsets. Spans matched by both a
// model and a pattern rule are kept twice; callers that need overlap
// resolution must do it themselves.
func Merge(native, custom []Entity) Collection {
	merged := make(Collection, 0, len(native)+len(custom))
	merged = append(merged, native...)
	merged = append(merged, custom...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})
	return merged
}

// LabelCount is one row of a Summary.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary counts entities per label, ordered by descending count. Ties
// keep the order in which a label first appears in the collection.
type Summary []LabelCount

// Summarize builds a Summary from a collection. An empty collection
// yields an empty summary.
func Summarize(c Collection) Summary {
	counts := make(map[string]int, len(c))
	firstSeen := make(map[string]int, len(c))
	for i, e := range c {
		if _, ok := counts[e.Label]; !ok {
			firstSeen[e.Label] = i
		}
		counts[e.Label]++
	}
	out := make(Summary, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Label] < firstSeen[out[j].Label]
	})
	return out
}

// Total returns the sum of all counts. It always equals the length of
// the collection the summary was built from.
func (s Summary) Total() int {
	n := 0
	for _, row := range s {
		n += row.Count
	}
	return n
}
