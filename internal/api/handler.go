package api

import (
	"bytes"
	"errors"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"railreplay/internal/catalog"
	"railreplay/internal/classify"
	"railreplay/internal/config"
	"railreplay/internal/log"
	"railreplay/internal/replay"
	"railreplay/internal/state"
	"railreplay/internal/store"
	"railreplay/internal/transcript"
)

// DefaultVariant is used when a request names none.
const DefaultVariant = "1830"

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Matches []catalog.Record `json:"matches,omitempty"`
}

// UnprocessedLine is a transcript line no rule matched.
type UnprocessedLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ReplayResponse is the JSON body of POST /api/replay.
type ReplayResponse struct {
	RunID       string            `json:"run_id,omitempty"`
	Metadata    replay.Metadata   `json:"metadata"`
	FinalState  map[string]any    `json:"final_state"`
	Unprocessed []UnprocessedLine `json:"unprocessed"`
}

// ClassifyResponse is the JSON body of POST /api/classify.
type ClassifyResponse struct {
	Record catalog.Record `json:"record"`
}

// Handler serves replays over HTTP. Runs are persisted when Store is set.
type Handler struct {
	Store      *store.Store
	classifier *classify.Classifier
}

// NewHandler creates a handler over the default catalog. st may be nil.
func NewHandler(st *store.Store) *Handler {
	return &Handler{Store: st, classifier: classify.New(catalog.Default())}
}

// NewApp creates a fiber app with every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "railreplay",
		ErrorHandler:          handleError,
		DisableStartupMessage: true,
	})
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", HandleHealth)
	app.Get("/api/variants", HandleVariants)
	app.Post("/api/replay", h.HandleReplay)
	app.Post("/api/classify", h.HandleClassify)

	if h.Store != nil {
		app.Get("/api/runs", h.HandleListRuns)
		app.Get("/api/runs/:id", h.HandleGetRun)
		app.Get("/api/runs/:id/snapshots/:position", h.HandleGetSnapshot)
		app.Delete("/api/runs/:id", h.HandleDeleteRun)
	}
}

// HandleHealth reports that the service is up.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"engine": "fiber",
	})
}

// HandleVariants lists the built-in variants.
func HandleVariants(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"variants": config.Builtins()})
}

// HandleReplay replays the transcript in the request body.
//
// Query parameters: variant (built-in name), game_id, anonymize (default
// true) and players (comma separated seating order).
func (h *Handler) HandleReplay(c *fiber.Ctx) error {
	name := c.Query("variant", DefaultVariant)
	if !slices.Contains(config.Builtins(), name) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown variant "+name)
	}
	v, err := config.Load(name)
	if err != nil {
		return err
	}

	lines, err := transcript.Read(bytes.NewReader(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(lines) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty transcript")
	}

	opts := []replay.Option{replay.WithGameID(c.Query("game_id"))}
	if !c.QueryBool("anonymize", true) {
		opts = append(opts, replay.WithoutAnonymization())
	}
	if players := c.Query("players"); players != "" {
		opts = append(opts, replay.WithPlayers(strings.Split(players, ",")...))
	}

	res, err := replay.New(v, opts...).Run(lines)
	if err != nil {
		return unprocessable(err)
	}

	resp := ReplayResponse{
		Metadata:    res.Metadata,
		FinalState:  state.Nested(res.Trajectory.Final()),
		Unprocessed: make([]UnprocessedLine, 0, len(res.Unprocessed)),
	}
	for _, l := range res.Unprocessed {
		resp.Unprocessed = append(resp.Unprocessed, UnprocessedLine{Index: l.Index, Text: l.Text})
	}

	if h.Store != nil {
		if resp.RunID, err = h.Store.SaveRun(res); err != nil {
			return err
		}
	}

	log.Info("served replay", "variant", v.Name, "game", resp.Metadata.GameID, "records", len(res.Trajectory.Records))
	return c.JSON(resp)
}

// HandleClassify classifies the single line in the request body.
func (h *Handler) HandleClassify(c *fiber.Ctx) error {
	line := transcript.NormalizeLine(strings.TrimRight(string(c.Body()), "\r\n"))
	if line == "" {
		return fiber.NewError(fiber.StatusBadRequest, "empty line")
	}

	rec, ok, err := h.classifier.Classify(line)
	if err != nil {
		return unprocessable(err)
	}
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no rule matches line")
	}
	return c.JSON(ClassifyResponse{Record: rec})
}

// HandleListRuns lists stored runs, optionally filtered by game_id.
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	runs, err := h.Store.ListRuns(c.Query("game_id"))
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []store.Run{}
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// HandleGetRun returns a stored run with its final state.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	id := c.Params("id")
	run, err := h.Store.LoadRun(id)
	if err != nil {
		return err
	}
	final, err := h.Store.LoadFinalState(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"run": run, "final_state": state.Nested(final)})
}

// HandleGetSnapshot returns the flattened state after one record of a run.
func (h *Handler) HandleGetSnapshot(c *fiber.Ctx) error {
	pos, err := c.ParamsInt("position")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid position")
	}
	snap, err := h.Store.LoadSnapshot(c.Params("id"), pos)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"position": pos, "state": snap})
}

// HandleDeleteRun removes a stored run.
func (h *Handler) HandleDeleteRun(c *fiber.Ctx) error {
	if err := h.Store.DeleteRun(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// unprocessable reports a transcript the replayer rejected.
func unprocessable(err error) error {
	var amb *classify.AmbiguityError
	if errors.As(err, &amb) {
		return &ambiguityError{err: err, matches: amb.Matches}
	}
	return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
}

type ambiguityError struct {
	err     error
	matches []catalog.Record
}

func (e *ambiguityError) Error() string { return e.err.Error() }

func handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	resp := ErrorResponse{Error: err.Error()}

	var fe *fiber.Error
	var amb *ambiguityError
	switch {
	case errors.As(err, &amb):
		code = fiber.StatusUnprocessableEntity
		resp.Matches = amb.matches
	case errors.As(err, &fe):
		code = fe.Code
		resp.Error = fe.Message
	case errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	}

	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(resp)
}
