package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"railreplay/internal/catalog"
	"railreplay/internal/classify"
	"railreplay/internal/transcript"
)

// Fixture is a slice of a transcript with the records it classifies to.
type Fixture struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Lines       []string         `yaml:"lines"`
	Records     []catalog.Record `yaml:"records"`
	Unprocessed []FixtureLine    `yaml:"unprocessed,omitempty"`
}

// FixtureLine is an unclassified line with its index in the whole transcript.
type FixtureLine struct {
	Index int    `yaml:"index"`
	Text  string `yaml:"text"`
}

func main() {
	var (
		transcriptFile = flag.String("transcript", "transcript.txt", "Path to the transcript")
		startLine      = flag.Int("start-line", 1, "Starting line number (1-based)")
		endLine        = flag.Int("end-line", -1, "Ending line number (1-based, -1 for end of file)")
		outputFile     = flag.String("output", "", "Output YAML file path (prints to stdout if not specified)")
		name           = flag.String("name", "Generated Fixture", "Fixture name")
		description    = flag.String("desc", "Auto-generated fixture from a transcript", "Fixture description")
	)
	flag.Parse()

	lines, err := transcript.ReadFile(*transcriptFile)
	if err != nil {
		fmt.Printf("Error reading transcript: %v\n", err)
		os.Exit(1)
	}

	fixture, err := buildFixture(lines, *startLine, *endLine)
	if err != nil {
		fmt.Printf("Error classifying transcript: %v\n", err)
		os.Exit(1)
	}
	fixture.Name = *name
	fixture.Description = *description

	data, err := yaml.Marshal(fixture)
	if err != nil {
		fmt.Printf("Error encoding fixture: %v\n", err)
		os.Exit(1)
	}

	if *outputFile == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
		fmt.Printf("Error writing fixture file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated fixture: %s (%d records)\n", *outputFile, len(fixture.Records))
}

// buildFixture classifies lines startLine..endLine, keeping the record ids
// and unprocessed indexes relative to the whole transcript.
func buildFixture(lines []string, startLine, endLine int) (*Fixture, error) {
	start := max(startLine-1, 0)
	end := len(lines)
	if endLine != -1 && endLine < end {
		end = endLine
	}
	if start > end {
		start = end
	}
	window := lines[start:end]

	res, err := classify.New(catalog.Default()).ClassifyAll(window)
	if err != nil {
		return nil, err
	}

	fixture := &Fixture{Lines: window, Records: res.Records}
	for _, rec := range fixture.Records {
		i, _ := strconv.Atoi(rec.Get(catalog.FieldID))
		rec[catalog.FieldID] = strconv.Itoa(start + i)
	}
	for _, l := range res.Unprocessed {
		fixture.Unprocessed = append(fixture.Unprocessed, FixtureLine{Index: start + l.Index, Text: l.Text})
	}
	return fixture, nil
}
