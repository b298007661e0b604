package classify

import (
	"fmt"
	"strconv"
	"strings"

	"railreplay/internal/catalog"
	"railreplay/internal/log"
)

// AmbiguityError is returned when more than one rule matches a line. The
// catalog is meant to be mutually exclusive per line, so this is fatal.
type AmbiguityError struct {
	Index   int
	Line    string
	Matches []catalog.Record
}

func (e *AmbiguityError) Error() string {
	var b strings.Builder
	if e.Index >= 0 {
		fmt.Fprintf(&b, "ambiguous line %d %q matched %d rules:", e.Index, e.Line, len(e.Matches))
	} else {
		fmt.Fprintf(&b, "ambiguous line %q matched %d rules:", e.Line, len(e.Matches))
	}
	for _, m := range e.Matches {
		b.WriteString("\n\t")
		b.WriteString(m.String())
	}
	return b.String()
}

// Line is an input line the classifier could not place.
type Line struct {
	Index int
	Text  string
}

// Result is a fully classified transcript.
type Result struct {
	Records     []catalog.Record
	Unprocessed []Line
}

// Classifier dispatches lines to the rules of a catalog.
type Classifier struct {
	catalog *catalog.Catalog
}

// New creates a classifier over c.
func New(c *catalog.Catalog) *Classifier {
	return &Classifier{catalog: c}
}

// Classify evaluates every rule against line. It returns the single match,
// ok=false when nothing matched, or an *AmbiguityError.
func (c *Classifier) Classify(line string) (catalog.Record, bool, error) {
	return c.classify(-1, line)
}

func (c *Classifier) classify(index int, line string) (catalog.Record, bool, error) {
	var matches []catalog.Record
	for _, r := range c.catalog.Rules() {
		if m := r.Match(line); m != nil {
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		return nil, false, nil
	case 1:
		return matches[0], true, nil
	default:
		return nil, false, &AmbiguityError{Index: index, Line: line, Matches: matches}
	}
}

// ClassifyAll classifies a transcript whose lines are already normalized.
// Blank lines are skipped, unclassifiable lines are collected, and the first
// ambiguous line aborts the run. Records carry their 0-based line index in
// the id field.
func (c *Classifier) ClassifyAll(lines []string) (*Result, error) {
	res := &Result{}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, ok, err := c.classify(i, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("unprocessed line", "index", i, "line", line)
			res.Unprocessed = append(res.Unprocessed, Line{Index: i, Text: line})
			continue
		}

		rec[catalog.FieldID] = strconv.Itoa(i)
		log.Debug("classified line", "index", i, "type", rec.Type())
		res.Records = append(res.Records, rec)
	}

	if len(res.Unprocessed) > 0 {
		log.Warn("transcript has unprocessed lines", "count", len(res.Unprocessed), "classified", len(res.Records))
	}
	return res, nil
}
