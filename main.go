package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"railreplay/internal/api"
	"railreplay/internal/config"
	"railreplay/internal/log"
	"railreplay/internal/replay"
	"railreplay/internal/state"
	"railreplay/internal/store"
	"railreplay/internal/transcript"
	"railreplay/internal/verify"
	"railreplay/internal/writer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errVerifyFailed makes the process exit non-zero without a second message.
var errVerifyFailed = errors.New("final state differs from truth")

type options struct {
	variant string
	gameID  string
	out     string
	db      string
	truth   string
	serve   string
	noAnon  bool
	players string
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "railreplay crashed: %v\n", r)
			log.Close()
			os.Exit(1)
		}
	}()

	var opts options
	flag.StringVar(&opts.variant, "variant", "1830", "Built-in variant name or path to a variant YAML file")
	flag.StringVar(&opts.gameID, "game-id", "", "Game ID recorded in the run metadata")
	flag.StringVar(&opts.out, "out", "", "Output directory (defaults to <transcript>_replay)")
	flag.StringVar(&opts.db, "db", "", "SQLite database to save runs in")
	flag.StringVar(&opts.truth, "truth", "", "JSON file with the true final state to verify against")
	flag.StringVar(&opts.serve, "serve", "", "Serve the HTTP API on this address instead of replaying a file")
	flag.BoolVar(&opts.noAnon, "no-anon", false, "Keep player names instead of player1, player2, ...")
	flag.StringVar(&opts.players, "players", "", "Comma separated seating order")
	logFile := flag.String("log", "", "Write debug logging to this file")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `railreplay replays 18xx game transcripts into per-action state.

Usage:
  railreplay [flags] <transcript.txt>
  railreplay -serve :8080 [-db runs.db]

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("railreplay %s (%s, %s)\n", version, commit, date)
		return
	}

	if *logFile != "" {
		if err := log.SetFileOutput(*logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not log to %s: %v\n", *logFile, err)
		}
	}
	defer log.Close()

	var err error
	switch {
	case opts.serve != "":
		err = serve(opts, *logFile != "")
	case flag.NArg() == 1:
		err = run(flag.Arg(0), opts)
	default:
		flag.Usage()
		log.Close()
		os.Exit(2)
	}

	if err != nil {
		if !errors.Is(err, errVerifyFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		log.Close()
		os.Exit(1)
	}
}

func serve(opts options, logToFile bool) error {
	if !logToFile {
		log.SetOutput(os.Stderr, slog.LevelInfo)
	}

	var st *store.Store
	if opts.db != "" {
		var err error
		if st, err = store.Open(opts.db); err != nil {
			return err
		}
		defer st.Close()
	}

	app := api.NewApp(api.NewHandler(st))

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signalChan
		log.Info("shutting down", "signal", sig.String())
		if err := app.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("serving", "address", opts.serve, "db", opts.db)
	return app.Listen(opts.serve)
}

func run(path string, opts options) error {
	v, err := config.Load(opts.variant)
	if err != nil {
		return err
	}

	lines, err := transcript.ReadFile(path)
	if err != nil {
		return err
	}

	var replayOpts []replay.Option
	if opts.gameID != "" {
		replayOpts = append(replayOpts, replay.WithGameID(opts.gameID))
	}
	if opts.noAnon {
		replayOpts = append(replayOpts, replay.WithoutAnonymization())
	}
	if opts.players != "" {
		replayOpts = append(replayOpts, replay.WithPlayers(strings.Split(opts.players, ",")...))
	}

	res, err := replay.New(v, replayOpts...).Run(lines)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + "_replay"
	}
	if err := writer.WriteRun(out, res); err != nil {
		return err
	}

	var runID string
	if opts.db != "" {
		st, err := store.Open(opts.db)
		if err != nil {
			return err
		}
		defer st.Close()
		if runID, err = st.SaveRun(res); err != nil {
			return err
		}
	}

	var report *verify.Report
	if opts.truth != "" {
		r, err := verifyTruth(opts.truth, res.Trajectory.Final())
		if err != nil {
			return err
		}
		report = &r
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		printSummary(res, out, runID, report)
	} else if err := printJSON(res, out, runID, report); err != nil {
		return err
	}

	if report != nil && !report.Passed() {
		return errVerifyFailed
	}
	return nil
}

func verifyTruth(path string, final *state.GameState) (verify.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return verify.Report{}, fmt.Errorf("failed to read truth file: %w", err)
	}
	var truth map[string]any
	if err := json.Unmarshal(data, &truth); err != nil {
		return verify.Report{}, fmt.Errorf("failed to decode truth file: %w", err)
	}
	return verify.Compare(state.Nested(final), truth), nil
}

func printSummary(res *replay.Result, out, runID string, report *verify.Report) {
	meta := res.Metadata
	fmt.Printf("Replayed %d record(s) of %s", len(res.Trajectory.Records), meta.GameType)
	if meta.GameID != "" {
		fmt.Printf(" game %s", meta.GameID)
	}
	fmt.Println()
	fmt.Printf("  Ending: %s\n", meta.Ending)
	if meta.Winner != "" {
		fmt.Printf("  Winner: %s\n", meta.Winner)
	}
	if meta.Unprocessed > 0 {
		fmt.Printf("  Unprocessed lines: %d\n", meta.Unprocessed)
	}

	names := make([]string, 0, len(meta.Players))
	for name := range meta.Players {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if pseudonym := meta.Players[name]; pseudonym != name {
			fmt.Printf("  %s is %s\n", name, pseudonym)
		}
	}

	fmt.Printf("  Output: %s\n", out)
	if runID != "" {
		fmt.Printf("  Saved run: %s\n", runID)
	}
	if report != nil {
		if report.Passed() {
			fmt.Printf("  Verification passed (%d value(s) missing from the replay)\n", len(report.Differences))
		} else {
			fmt.Printf("  Verification FAILED:\n%s", report.String())
		}
	}
}

func printJSON(res *replay.Result, out, runID string, report *verify.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Metadata replay.Metadata `json:"metadata"`
		Output   string          `json:"output"`
		RunID    string          `json:"run_id,omitempty"`
		Verify   *verify.Report  `json:"verify,omitempty"`
	}{res.Metadata, out, runID, report})
}
