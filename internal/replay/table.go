package replay

import (
	"sort"

	"railreplay/internal/catalog"
)

// Table is a header plus rows of equal width.
type Table struct {
	Header []string
	Rows   [][]string
}

var leadingColumns = []string{
	catalog.FieldID,
	catalog.FieldType,
	catalog.FieldParent,
	catalog.FieldPhase,
	catalog.FieldSequence,
}

func (t *Trajectory) recordColumns() []string {
	lead := make(map[string]bool, len(leadingColumns))
	for _, c := range leadingColumns {
		lead[c] = true
	}
	seen := make(map[string]bool)
	var rest []string
	for _, rec := range t.Records {
		for k := range rec {
			if !lead[k] && !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(append([]string(nil), leadingColumns...), rest...)
}

// ClassifiedTable has one row per record; absent fields are empty cells.
func (t *Trajectory) ClassifiedTable() Table {
	cols := t.recordColumns()
	table := Table{Header: cols}
	for _, rec := range t.Records {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = rec[c]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// StateTable is the classified table with the flattened snapshot taken
// after each record appended to its row.
func (t *Trajectory) StateTable() Table {
	table := t.ClassifiedTable()
	table.Header = append(table.Header, t.Initial.Columns()...)
	for i, snap := range t.Snapshots {
		table.Rows[i] = append(table.Rows[i], snap.Row()...)
	}
	return table
}
