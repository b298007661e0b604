package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"railreplay/internal/config"
	"railreplay/internal/replay"
	"railreplay/internal/state"
)

func TestCSVWriter_Write(t *testing.T) {
	table := replay.Table{
		Header: []string{"id", "type", "company", "location"},
		Rows: [][]string{
			{"0", "PlaceToken", "NYC", "E19"},
			{"1", "Withhold", "B&O", ""},
			{"2", "Pass", "", "a, b"},
		},
	}

	var buf bytes.Buffer
	w := &CSVWriter{Comment: "1830 short"}
	if err := w.Write(&buf, table); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.HasPrefix(output, "# 1830 short\n") {
		t.Errorf("expected comment row first, got %q", output)
	}
	if !strings.Contains(output, "id,type,company,location\n") {
		t.Error("expected column headers")
	}
	if !strings.Contains(output, "1,Withhold,B&O,\n") {
		t.Error("expected empty trailing cell for missing field")
	}
	if !strings.Contains(output, `2,Pass,,"a, b"`) {
		t.Error("expected quoted cell containing a comma")
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Errorf("expected 5 lines, got %d", len(lines))
	}
}

func TestCSVWriter_WriteNoComment(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.Write(&buf, replay.Table{Header: []string{"id"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "id\n" {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	w := &CSVWriter{}
	table := replay.Table{Header: []string{"id", "type"}, Rows: [][]string{{"0", "Pass"}}}
	if err := w.WriteToFile(path, table); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(data) != "id,type\n0,Pass\n" {
		t.Errorf("expected flushed and closed file, got %q", data)
	}

	missing := filepath.Join(t.TempDir(), "no-such-dir", "table.csv")
	if err := w.WriteToFile(missing, table); err == nil {
		t.Error("expected error for a file that cannot be created")
	}
}

func TestWriteRun(t *testing.T) {
	lines := []string{
		"Alice has priority deal",
		"Alice buys Schuylkill Valley for $20",
		"Bob passes",
		"-- Game ended manually by Bob. Game over: Alice ($1200), Bob ($1180) --",
	}
	res, err := replay.New(config.MustLoad("1830"), replay.WithGameID("g1")).Run(lines)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := WriteRun(dir, res); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	classified, err := os.ReadFile(filepath.Join(dir, ClassifiedFile))
	if err != nil {
		t.Fatalf("missing classified table: %v", err)
	}
	if !strings.HasPrefix(string(classified), "# 1830 g1\nid,type,parent,phase,sequence") {
		t.Errorf("unexpected classified table start: %q", string(classified)[:40])
	}

	trajectory, err := os.ReadFile(filepath.Join(dir, TrajectoryFile))
	if err != nil {
		t.Fatalf("missing trajectory: %v", err)
	}
	if !strings.Contains(string(trajectory), "player1_cash") {
		t.Error("expected player columns in trajectory")
	}

	meta, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		t.Fatalf("missing metadata: %v", err)
	}
	if !strings.Contains(string(meta), "ending: GameEndedManually") {
		t.Errorf("expected ending in metadata, got:\n%s", meta)
	}
	if !strings.Contains(string(meta), "winner: player1") {
		t.Errorf("expected winner in metadata, got:\n%s", meta)
	}

	data, err := os.ReadFile(filepath.Join(dir, FinalStateFile))
	if err != nil {
		t.Fatalf("missing final state: %v", err)
	}
	final, err := state.Decode(data)
	if err != nil {
		t.Fatalf("final state does not decode: %v", err)
	}
	if final.Player("player1").Cash != 1180 {
		t.Errorf("Expected player1 cash 1180, got %d", final.Player("player1").Cash)
	}
}
