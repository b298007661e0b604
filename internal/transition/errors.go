package transition

import (
	"fmt"
	"strings"

	"railreplay/internal/catalog"
)

// UnknownTypeError means a record reached the engine with a type that has
// no procedure. It points at a catalog/engine mismatch.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no state transition for record type %q", e.Type)
}

// ContributionError is raised when a contribution cannot be routed to
// exactly one train-less company presided over by the contributor.
type ContributionError struct {
	Record     catalog.Record
	Candidates []string
}

func (e *ContributionError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("contribution %s: player presides over no company without trains", e.Record)
	}
	return fmt.Sprintf("contribution %s: player presides over several companies without trains: %s", e.Record, strings.Join(e.Candidates, ", "))
}
