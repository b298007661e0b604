package replay

import (
	"fmt"

	"railreplay/internal/catalog"
	"railreplay/internal/classify"
	"railreplay/internal/config"
	"railreplay/internal/log"
	"railreplay/internal/state"
	"railreplay/internal/transition"
)

// EndingUnfinished marks a transcript whose last record does not end the game.
const EndingUnfinished = "Unfinished"

// Option configures a Driver.
type Option func(*Driver)

// WithoutAnonymization keeps the players' display names.
func WithoutAnonymization() Option {
	return func(d *Driver) { d.anonymize = false }
}

// WithPlayers fixes the seating order. Listed players get the first
// pseudonyms even if they never appear in the transcript.
func WithPlayers(names ...string) Option {
	return func(d *Driver) { d.players = append([]string(nil), names...) }
}

// WithGameID labels the run in its metadata.
func WithGameID(id string) Option {
	return func(d *Driver) { d.gameID = id }
}

// WithCatalog replaces the default rule catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(d *Driver) { d.classifier = classify.New(c) }
}

// Driver replays transcripts of one game variant. A Driver holds no state
// between runs.
type Driver struct {
	variant    *config.Variant
	classifier *classify.Classifier
	engine     *transition.Engine
	anonymize  bool
	players    []string
	gameID     string
}

// New creates a driver for the variant. Its catalog only closes the
// variant's own privates.
func New(v *config.Variant, opts ...Option) *Driver {
	privates := make([]string, len(v.Privates))
	for i, p := range v.Privates {
		privates[i] = p.Name
	}
	d := &Driver{
		variant:    v,
		classifier: classify.New(catalog.ForPrivates(privates)),
		engine:     transition.New(v),
		anonymize:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trajectory is a replayed transcript: the prepared records and the state
// after each of them.
type Trajectory struct {
	Records   []catalog.Record
	Snapshots []*state.GameState
	Initial   *state.GameState
	Players   map[string]string // display name -> pseudonym
	Ending    string
	Result    map[string]int
	Winner    string
}

// Final returns the state after the last record.
func (t *Trajectory) Final() *state.GameState {
	if len(t.Snapshots) == 0 {
		return t.Initial
	}
	return t.Snapshots[len(t.Snapshots)-1]
}

// Metadata summarizes a run.
type Metadata struct {
	GameType         string            `json:"game_type" yaml:"game_type"`
	GameID           string            `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	Players          map[string]string `json:"players" yaml:"players"`
	Ending           string            `json:"ending" yaml:"ending"`
	Result           map[string]int    `json:"result,omitempty" yaml:"result,omitempty"`
	Winner           string            `json:"winner,omitempty" yaml:"winner,omitempty"`
	Unprocessed      int               `json:"unprocessed" yaml:"unprocessed"`
	UnprocessedLines []string          `json:"unprocessed_lines,omitempty" yaml:"unprocessed_lines,omitempty"`
}

// Result is everything a run produces.
type Result struct {
	Trajectory  *Trajectory
	Metadata    Metadata
	Unprocessed []classify.Line
}

// Run classifies normalized transcript lines and replays them.
func (d *Driver) Run(lines []string) (*Result, error) {
	classified, err := d.classifier.ClassifyAll(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to classify transcript: %w", err)
	}

	traj, err := d.Replay(classified.Records)
	if err != nil {
		return nil, err
	}

	unprocessed := classified.Unprocessed
	if d.anonymize {
		unprocessed = make([]classify.Line, len(classified.Unprocessed))
		for i, l := range classified.Unprocessed {
			unprocessed[i] = classify.Line{Index: l.Index, Text: redactSpeaker(l.Text, traj.Players)}
		}
	}

	meta := Metadata{
		GameType:    d.variant.Name,
		GameID:      d.gameID,
		Players:     traj.Players,
		Ending:      traj.Ending,
		Result:      traj.Result,
		Winner:      traj.Winner,
		Unprocessed: len(unprocessed),
	}
	for _, l := range unprocessed {
		meta.UnprocessedLines = append(meta.UnprocessedLines, l.Text)
	}

	log.Info("replayed transcript", "game", d.gameID, "records", len(traj.Records), "unprocessed", meta.Unprocessed, "ending", meta.Ending)
	return &Result{Trajectory: traj, Metadata: meta, Unprocessed: unprocessed}, nil
}

// Replay applies already classified records in order, snapshotting the
// state after each one.
func (d *Driver) Replay(records []catalog.Record) (*Trajectory, error) {
	names := newPseudonyms(d.anonymize, d.players)
	prepared, err := prepare(d.variant, records, names)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare records: %w", err)
	}

	gs := state.New(d.variant, names.order)
	traj := &Trajectory{
		Records:   prepared,
		Snapshots: make([]*state.GameState, 0, len(prepared)),
		Initial:   gs.Clone(),
		Players:   names.byName,
		Ending:    EndingUnfinished,
	}

	logger := log.With("game", d.gameID)
	for _, rec := range prepared {
		if err := d.engine.Apply(rec, gs); err != nil {
			return nil, fmt.Errorf("failed to apply record %s: %w", rec.Get(catalog.FieldID), err)
		}
		if err := gs.CheckShares(); err != nil {
			logger.Warn("share count violated", "id", rec.Get(catalog.FieldID), "type", rec.Type(), "error", err)
		}
		traj.Snapshots = append(traj.Snapshots, gs.Clone())
	}

	if err := traj.settle(); err != nil {
		return nil, err
	}
	return traj, nil
}

// settle records how the game ended, from the final record.
func (t *Trajectory) settle() error {
	if len(t.Records) == 0 {
		return nil
	}
	last := t.Records[len(t.Records)-1]
	if !catalog.Terminal(last.Type()) {
		return nil
	}
	t.Ending = last.Type()

	if !last.Has(catalog.FieldResult) {
		return nil
	}
	standings, err := parseResult(last.Get(catalog.FieldResult))
	if err != nil {
		return fmt.Errorf("failed to read final result: %w", err)
	}
	t.Result = make(map[string]int, len(standings))
	best := -1
	for i, s := range standings {
		t.Result[s.Name] = s.Value
		if best < 0 || s.Value > standings[best].Value {
			best = i
		}
	}
	t.Winner = standings[best].Name
	return nil
}
