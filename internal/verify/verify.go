package verify

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a difference between parsed and truth values.
type Kind string

const (
	// MissingParsed means truth has a value the parser did not produce.
	// It does not fail a comparison.
	MissingParsed Kind = "missing_parsed"
	// MissingTruth means the parser produced a value truth does not have.
	MissingTruth Kind = "missing_truth"
	// Mismatch means both sides have a value and they differ.
	Mismatch Kind = "mismatch"
)

// Difference is one dotted path whose values disagree.
type Difference struct {
	Path   string `json:"path"`
	Parsed any    `json:"parsed"`
	Truth  any    `json:"truth"`
	Kind   Kind   `json:"kind"`
}

// Report lists every difference, sorted by path.
type Report struct {
	Differences []Difference `json:"differences"`
}

// Passed is true when every difference is a value missing on the parsed side.
func (r Report) Passed() bool {
	return len(r.Failures()) == 0
}

// Failures returns the differences that fail the comparison.
func (r Report) Failures() []Difference {
	var out []Difference
	for _, d := range r.Differences {
		if d.Kind != MissingParsed {
			out = append(out, d)
		}
	}
	return out
}

func (r Report) String() string {
	if len(r.Differences) == 0 {
		return "no differences"
	}
	var b strings.Builder
	for _, d := range r.Differences {
		fmt.Fprintf(&b, "%s %s: parsed=%v truth=%v\n", d.Kind, d.Path, d.Parsed, d.Truth)
	}
	return b.String()
}

// Compare flattens both structures to dotted paths and reports where they
// differ. Numbers compare by value whatever their Go type.
func Compare(parsed, truth map[string]any) Report {
	p := make(map[string]any)
	flatten("", parsed, p)
	t := make(map[string]any)
	flatten("", truth, t)

	var diffs []Difference
	for path, pv := range p {
		tv, ok := t[path]
		switch {
		case !ok:
			diffs = append(diffs, Difference{Path: path, Parsed: pv, Kind: MissingTruth})
		case !equal(pv, tv):
			diffs = append(diffs, Difference{Path: path, Parsed: pv, Truth: tv, Kind: Mismatch})
		}
	}
	for path, tv := range t {
		if _, ok := p[path]; !ok {
			diffs = append(diffs, Difference{Path: path, Truth: tv, Kind: MissingParsed})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Path < diffs[j].Path })
	return Report{Differences: diffs}
}

func flatten(prefix string, v any, out map[string]any) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch m := v.(type) {
	case map[string]any:
		for k, sub := range m {
			flatten(join(k), sub, out)
		}
	case map[string]int:
		for k, sub := range m {
			out[join(k)] = sub
		}
	case map[string]string:
		for k, sub := range m {
			out[join(k)] = sub
		}
	case []any:
		for i, sub := range m {
			flatten(join(strconv.Itoa(i)), sub, out)
		}
	case nil:
		// absent
	default:
		if prefix != "" {
			out[prefix] = v
		}
	}
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
