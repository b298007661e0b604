package replay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"railreplay/internal/catalog"
	"railreplay/internal/config"
	"railreplay/internal/state"
)

var (
	annotationPattern = regexp.MustCompile(`^(.+?)\s*\(.*\)$`)
	resultPattern     = regexp.MustCompile(`\s*(.+?) \(\$(-?\d+)\)`)
	speakerPattern    = regexp.MustCompile(`^([^:]+): `)
)

// Spectator stands in for a chat speaker who never played.
const Spectator = "spectator"


// stripAnnotation turns "E19 (Albany)" into "E19".
func stripAnnotation(s string) string {
	if m := annotationPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Standing is one entry of a declared final ranking.
type Standing struct {
	Name  string
	Value int
}

// parseResult reads "Alice ($1200), Bob ($1100)" in declared order.
func parseResult(s string) ([]Standing, error) {
	var out []Standing
	for _, part := range strings.Split(s, ",") {
		m := resultPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("malformed result entry %q", strings.TrimSpace(part))
		}
		v, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("malformed result value %q: %w", m[2], err)
		}
		out = append(out, Standing{Name: m[1], Value: v})
	}
	return out, nil
}

func formatResult(standings []Standing) string {
	parts := make([]string, len(standings))
	for i, s := range standings {
		parts[i] = fmt.Sprintf("%s ($%d)", s.Name, s.Value)
	}
	return strings.Join(parts, ", ")
}

// pseudonyms assigns player names in order of first appearance.
type pseudonyms struct {
	anonymize bool
	byName    map[string]string
	order     []string
}

func newPseudonyms(anonymize bool, seed []string) *pseudonyms {
	p := &pseudonyms{anonymize: anonymize, byName: make(map[string]string)}
	for _, name := range seed {
		p.get(name)
	}
	return p
}

func (p *pseudonyms) get(name string) string {
	if alias, ok := p.byName[name]; ok {
		return alias
	}
	alias := name
	if p.anonymize {
		alias = "player" + strconv.Itoa(len(p.order)+1)
	}
	p.byName[name] = alias
	p.order = append(p.order, alias)
	return alias
}

// redactSpeaker replaces the "Name: " prefix of a chat line with the
// speaker's pseudonym. The rest of the line is kept as written.
func redactSpeaker(line string, players map[string]string) string {
	m := speakerPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return line
	}
	alias, ok := players[line[m[2]:m[3]]]
	if !ok {
		alias = Spectator
	}
	return alias + line[m[3]:]
}

// isPlayerSource reports whether a source field names a player rather than
// a share pool, the depot or a company.
func isPlayerSource(v *config.Variant, source string) bool {
	switch source {
	case "", state.SourceIPO, state.SourceMarket, v.Depot:
		return false
	}
	return !v.IsCompany(source)
}

// prepare returns cleaned copies of the records: entity routing, annotation
// stripping, anonymization and phase/sequence forward fill, in that order.
func prepare(v *config.Variant, records []catalog.Record, names *pseudonyms) ([]catalog.Record, error) {
	out := make([]catalog.Record, len(records))
	phase := v.InitialPhase
	sequence := v.InitialRound

	for i, src := range records {
		rec := src.Clone()

		if ent, ok := rec[catalog.FieldEntity]; ok {
			delete(rec, catalog.FieldEntity)
			if bare := stripAnnotation(ent); v.IsCompany(bare) {
				rec[catalog.FieldCompany] = bare
			} else {
				rec[catalog.FieldPlayer] = ent
			}
		}

		for _, field := range []string{catalog.FieldLocation, catalog.FieldCompany, catalog.FieldSource} {
			if val, ok := rec[field]; ok {
				rec[field] = stripAnnotation(val)
			}
		}

		if name, ok := rec[catalog.FieldPlayer]; ok {
			rec[catalog.FieldPlayer] = names.get(name)
		}
		if source, ok := rec[catalog.FieldSource]; ok && isPlayerSource(v, source) {
			rec[catalog.FieldSource] = names.get(source)
		}
		if res, ok := rec[catalog.FieldResult]; ok {
			standings, err := parseResult(res)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", src, err)
			}
			for j := range standings {
				standings[j].Name = names.get(standings[j].Name)
			}
			rec[catalog.FieldResult] = formatResult(standings)
		}

		if rec.Type() == catalog.TypePhaseChange && rec.Has(catalog.FieldPhase) {
			phase = rec[catalog.FieldPhase]
		}
		if rec.Has(catalog.FieldSequence) {
			sequence = rec[catalog.FieldSequence]
		}
		if phase != "" {
			rec[catalog.FieldPhase] = phase
		}
		if sequence != "" {
			rec[catalog.FieldSequence] = sequence
		}

		out[i] = rec
	}
	return out, nil
}
