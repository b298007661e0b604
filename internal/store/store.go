package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"railreplay/internal/catalog"
	"railreplay/internal/log"
	"railreplay/internal/replay"
	"railreplay/internal/state"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Run is the stored summary of one replay.
type Run struct {
	ID          string    `json:"id"`
	GameID      string    `json:"game_id"`
	GameType    string    `json:"game_type"`
	Ending      string    `json:"ending"`
	Winner      string    `json:"winner"`
	Unprocessed int       `json:"unprocessed"`
	Records     int       `json:"records"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists replay runs in SQLite.
type Store struct {
	db  *sql.DB
	sql squirrel.StatementBuilderType
}

// Open opens or creates the database at filename.
func Open(filename string) (*Store, error) {
	db, err := sql.Open("sqlite", filename+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, sql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)}
	if err = s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err = s.validateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid database schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SaveRun stores a replay in one transaction and returns its new ID.
func (s *Store) SaveRun(res *replay.Result) (string, error) {
	final, err := state.Encode(res.Trajectory.Final())
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta := res.Metadata
	insert := s.sql.Insert("runs").
		Columns("id", "game_id", "game_type", "ending", "winner", "unprocessed", "record_count", "final_state", "created_at").
		Values(id, meta.GameID, meta.GameType, meta.Ending, meta.Winner, meta.Unprocessed, len(res.Trajectory.Records), string(final), time.Now().UnixNano())
	if err := exec(tx, insert); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	for pos, rec := range res.Trajectory.Records {
		q := s.sql.Insert("record_fields").Columns("run_id", "position", "field", "value")
		for _, k := range rec.Keys() {
			q = q.Values(id, pos, k, rec[k])
		}
		if err := exec(tx, q); err != nil {
			return "", fmt.Errorf("failed to save record %d: %w", pos, err)
		}
	}

	if len(res.Trajectory.Snapshots) > 0 {
		columns := res.Trajectory.Initial.Columns()
		for pos, snap := range res.Trajectory.Snapshots {
			q := s.sql.Insert("snapshot_values").Columns("run_id", "position", "column_name", "value")
			for i, v := range snap.Row() {
				q = q.Values(id, pos, columns[i], v)
			}
			if err := exec(tx, q); err != nil {
				return "", fmt.Errorf("failed to save snapshot %d: %w", pos, err)
			}
		}
	}

	if len(res.Unprocessed) > 0 {
		q := s.sql.Insert("unprocessed_lines").Columns("run_id", "line_index", "text")
		for _, l := range res.Unprocessed {
			q = q.Values(id, l.Index, l.Text)
		}
		if err := exec(tx, q); err != nil {
			return "", fmt.Errorf("failed to save unprocessed lines: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	log.Info("saved run", "id", id, "game", meta.GameID, "records", len(res.Trajectory.Records))
	return id, nil
}

func exec(tx *sql.Tx, q squirrel.InsertBuilder) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	_, err = tx.Exec(query, args...)
	return err
}

var runColumns = []string{"id", "game_id", "game_type", "ending", "winner", "unprocessed", "record_count", "created_at"}

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var created int64
	err := row.Scan(&r.ID, &r.GameID, &r.GameType, &r.Ending, &r.Winner, &r.Unprocessed, &r.Records, &created)
	r.CreatedAt = time.Unix(0, created)
	return r, err
}

// LoadRun returns a run's summary.
func (s *Store) LoadRun(id string) (*Run, error) {
	query, args, err := s.sql.Select(runColumns...).From("runs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	r, err := scanRun(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns every run, oldest first, optionally limited to one game.
func (s *Store) ListRuns(gameID string) ([]Run, error) {
	q := s.sql.Select(runColumns...).From("runs").OrderBy("created_at", "id")
	if gameID != "" {
		q = q.Where(squirrel.Eq{"game_id": gameID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRecords returns a run's classified records in replay order.
func (s *Store) LoadRecords(id string) ([]catalog.Record, error) {
	run, err := s.LoadRun(id)
	if err != nil {
		return nil, err
	}

	query, args, err := s.sql.Select("position", "field", "value").From("record_fields").
		Where(squirrel.Eq{"run_id": id}).OrderBy("position").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	records := make([]catalog.Record, run.Records)
	for rows.Next() {
		var pos int
		var field, value string
		if err := rows.Scan(&pos, &field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record field: %w", err)
		}
		if pos < 0 || pos >= len(records) {
			return nil, fmt.Errorf("record position %d out of range", pos)
		}
		if records[pos] == nil {
			records[pos] = catalog.Record{}
		}
		records[pos][field] = value
	}
	return records, rows.Err()
}

// LoadSnapshot returns the flattened state after the record at position.
func (s *Store) LoadSnapshot(id string, position int) (map[string]string, error) {
	query, args, err := s.sql.Select("column_name", "value").From("snapshot_values").
		Where(squirrel.Eq{"run_id": id, "position": position}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var col, v string
		if err := rows.Scan(&col, &v); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot value: %w", err)
		}
		values[col] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s has no snapshot at position %d", ErrNotFound, id, position)
	}
	return values, nil
}

// LoadFinalState decodes the state stored at the end of a run.
func (s *Store) LoadFinalState(id string) (*state.GameState, error) {
	query, args, err := s.sql.Select("final_state").From("runs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	var data string
	err = s.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load final state: %w", err)
	}
	return state.Decode([]byte(data))
}

// DeleteRun removes a run and everything stored with it.
func (s *Store) DeleteRun(id string) error {
	query, args, err := s.sql.Delete("runs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
