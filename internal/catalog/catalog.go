package catalog

import (
	"fmt"
	"sort"
)

// Catalog is the explicit registry of concrete rules. Only registered rules
// take part in classification.
type Catalog struct {
	rules  []*Rule
	byName map[string]*Rule
}

// New builds a catalog, rejecting unnamed, untyped or duplicate rules.
func New(rules ...*Rule) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Rule, len(rules))}
	for _, r := range rules {
		if r == nil || r.Name == "" || r.Type == "" || r.Pattern == nil {
			return nil, fmt.Errorf("incomplete rule %+v", r)
		}
		if r.Parent != ParentAction && r.Parent != ParentEvent {
			return nil, fmt.Errorf("rule %s: parent must be %s or %s, got %q", r.Name, ParentAction, ParentEvent, r.Parent)
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule %s", r.Name)
		}
		c.byName[r.Name] = r
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// Rules returns the registered rules in registration order.
func (c *Catalog) Rules() []*Rule {
	return append([]*Rule(nil), c.rules...)
}

// Rule looks up a rule by name.
func (c *Catalog) Rule(name string) (*Rule, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Len returns the number of registered rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Types returns every classification type the catalog can produce, sorted.
func (c *Catalog) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range c.rules {
		if !seen[r.Type] {
			seen[r.Type] = true
			types = append(types, r.Type)
		}
	}
	sort.Strings(types)
	return types
}
