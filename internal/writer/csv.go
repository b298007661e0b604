package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"railreplay/internal/replay"
	"railreplay/internal/state"
)

// Output file names inside a run directory.
const (
	ClassifiedFile = "classified.csv"
	TrajectoryFile = "trajectory.csv"
	MetadataFile   = "metadata.yaml"
	FinalStateFile = "final_state.yaml"
)

// CSVWriter writes replay tables in CSV format.
type CSVWriter struct {
	// Comment, when set, is written as a leading "# ..." row.
	Comment string
}

// WriteToFile writes a table to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, table replay.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, table); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file %q: %w", path, err)
	}
	return nil
}

// Write writes the header and every row of table.
func (w *CSVWriter) Write(out io.Writer, table replay.Table) error {
	writer := csv.NewWriter(out)

	if w.Comment != "" {
		if err := writer.Write([]string{"# " + w.Comment}); err != nil {
			return fmt.Errorf("failed to write CSV comment: %w", err)
		}
	}
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteRun writes the classified table, the state trajectory, the run
// metadata and the encoded final state into dir.
func WriteRun(dir string, res *replay.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}

	w := &CSVWriter{Comment: strings.TrimSpace(res.Metadata.GameType + " " + res.Metadata.GameID)}
	if err := w.WriteToFile(filepath.Join(dir, ClassifiedFile), res.Trajectory.ClassifiedTable()); err != nil {
		return err
	}
	if err := w.WriteToFile(filepath.Join(dir, TrajectoryFile), res.Trajectory.StateTable()); err != nil {
		return err
	}

	meta, err := yaml.Marshal(res.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	final, err := state.Encode(res.Trajectory.Final())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FinalStateFile), final, 0o644); err != nil {
		return fmt.Errorf("failed to write final state: %w", err)
	}
	return nil
}
