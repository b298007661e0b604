package catalog

import (
	"regexp"
)

// Rule recognizes one event or action subtype in a transcript line.
// Rules are immutable once built and safe to share between goroutines.
type Rule struct {
	Name     string
	Type     string
	Parent   string
	Pattern  *regexp.Regexp
	Dismiss  []string
	Required []string

	// Derive adds fields computed from the captures, e.g. a round label.
	Derive func(Record)

	dismiss  []*regexp.Regexp
	required []*regexp.Regexp
}

// NewRule compiles a rule. pattern uses named capture groups for the fields
// it extracts.
func NewRule(name, typ, parent, pattern string) *Rule {
	return &Rule{
		Name:    name,
		Type:    typ,
		Parent:  parent,
		Pattern: regexp.MustCompile(pattern),
	}
}

// WithDismiss returns a copy of the rule rejecting lines containing any of words.
func (r *Rule) WithDismiss(words ...string) *Rule {
	c := *r
	c.Dismiss = append(append([]string(nil), r.Dismiss...), words...)
	c.dismiss = compileWords(c.Dismiss)
	return &c
}

// WithRequired returns a copy of the rule rejecting lines containing none of words.
func (r *Rule) WithRequired(words ...string) *Rule {
	c := *r
	c.Required = append(append([]string(nil), r.Required...), words...)
	c.required = compileWords(c.Required)
	return &c
}

// WithDerive returns a copy of the rule with a field derivation hook.
func (r *Rule) WithDerive(fn func(Record)) *Rule {
	c := *r
	c.Derive = fn
	return &c
}

// Match returns the record the rule extracts from line, or nil.
// Dismiss words are checked first, then required words, then the pattern.
func (r *Rule) Match(line string) Record {
	if Dismissed(r.dismiss, line) {
		return nil
	}
	if !Admitted(r.required, line) {
		return nil
	}

	m := r.Pattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	rec := Record{FieldType: r.Type, FieldParent: r.Parent}
	for i, name := range r.Pattern.SubexpNames() {
		if i == 0 || name == "" || m[i] == "" {
			continue
		}
		rec[name] = m[i]
	}
	if r.Derive != nil {
		r.Derive(rec)
	}
	return rec
}

func compileWords(words []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		res = append(res, wholeWord(w))
	}
	return res
}

// wholeWord matches w only when it is not glued to other word characters.
func wholeWord(w string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\W)` + regexp.QuoteMeta(w) + `(?:\W|$)`)
}

// Dismissed reports whether any dismiss word occurs in line.
func Dismissed(words []*regexp.Regexp, line string) bool {
	for _, w := range words {
		if w.MatchString(line) {
			return true
		}
	}
	return false
}

// Admitted reports whether line passes the required-word gate. An empty
// word list admits everything.
func Admitted(words []*regexp.Regexp, line string) bool {
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if w.MatchString(line) {
			return true
		}
	}
	return false
}

// ContainsWord reports whether w occurs in line as a whole word.
func ContainsWord(line, w string) bool {
	return wholeWord(w).MatchString(line)
}
