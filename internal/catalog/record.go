package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Parent categories
const (
	ParentAction = "Action"
	ParentEvent  = "Event"
)

// Well-known record fields
const (
	FieldType       = "type"
	FieldParent     = "parent"
	FieldID         = "id"
	FieldPhase      = "phase"
	FieldSequence   = "sequence"
	FieldPlayer     = "player"
	FieldCompany    = "company"
	FieldEntity     = "entity"
	FieldAmount     = "amount"
	FieldPercentage = "percentage"
	FieldCount      = "count"
	FieldSharePrice = "share_price"
	FieldPerShare   = "per_share"
	FieldLocation   = "location"
	FieldTile       = "tile"
	FieldRotation   = "rotation"
	FieldTrain      = "train"
	FieldOldTrain   = "old_train"
	FieldSource     = "source"
	FieldPrivate    = "private"
	FieldRound      = "round"
	FieldNumber     = "number"
	FieldResult     = "result"
)

// Record is one classified transcript line: field name to extracted value.
// It always carries FieldType and FieldParent.
type Record map[string]string

// Type returns the classification type.
func (r Record) Type() string { return r[FieldType] }

// Parent returns Action or Event.
func (r Record) Parent() string { return r[FieldParent] }

// Get returns the field value or "".
func (r Record) Get(field string) string { return r[field] }

// Has reports whether the field is present and non-empty.
func (r Record) Has(field string) bool { return r[field] != "" }

// Int parses an integer field. Missing fields are an error.
func (r Record) Int(field string) (int, error) {
	v, ok := r[field]
	if !ok || v == "" {
		return 0, fmt.Errorf("record %s has no %q field", r, field)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("record %s: field %q is not an integer: %w", r, field, err)
	}
	return n, nil
}

// IntOr parses an optional integer field, returning def when it is absent.
func (r Record) IntOr(field string, def int) (int, error) {
	if !r.Has(field) {
		return def, nil
	}
	return r.Int(field)
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the record as a sorted field-value mapping, e.g.
// {amount: 80, company: B&O, parent: Action, type: Withhold}.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(r[k])
	}
	b.WriteByte('}')
	return b.String()
}
