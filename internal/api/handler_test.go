package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railreplay/internal/catalog"
	"railreplay/internal/classify"
	"railreplay/internal/store"
)

func setupTestApp(t *testing.T, st *store.Store) (*fiber.App, *Handler) {
	t.Helper()
	h := NewHandler(st)
	return NewApp(h), h
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	resp, err := app.Test(httptest.NewRequest(method, target, r), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "replay", "testdata", "1830_short.txt"))
	require.NoError(t, err)
	return string(data)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodGet, "/api/health", "")
	require.Equal(t, fiber.StatusOK, code)

	var result map[string]string
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "fiber", result["engine"])
}

func TestVariantsEndpoint(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodGet, "/api/variants", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"variants":["1830"]}`, string(body))
}

func TestReplayEndpoint(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodPost, "/api/replay?variant=1830&game_id=g42", fixture(t))
	require.Equal(t, fiber.StatusOK, code, string(body))

	var resp ReplayResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Empty(t, resp.RunID)
	assert.Equal(t, "1830", resp.Metadata.GameType)
	assert.Equal(t, "g42", resp.Metadata.GameID)
	assert.Equal(t, "BankBroken", resp.Metadata.Ending)
	assert.Equal(t, "player1", resp.Metadata.Winner)
	assert.Equal(t, 2, resp.Metadata.Unprocessed)
	assert.Equal(t, []UnprocessedLine{{Index: 3, Text: "player3: gl hf"}, {Index: 50, Text: "player3: brb"}}, resp.Unprocessed)

	players := resp.FinalState["players"].(map[string]any)
	p1 := players["player1"].(map[string]any)
	assert.Equal(t, 456.0, p1["cash"])
	assert.Equal(t, 798.0, p1["value"])

	companies := resp.FinalState["companies"].(map[string]any)
	prr := companies["PRR"].(map[string]any)
	assert.Equal(t, "player1", prr["president"])
	assert.Equal(t, 19.0, prr["cash"])
}

func TestReplayWithoutAnonymization(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodPost, "/api/replay?anonymize=false", fixture(t))
	require.Equal(t, fiber.StatusOK, code, string(body))

	var resp ReplayResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Alice", resp.Metadata.Winner)
	assert.Contains(t, resp.FinalState["players"], "Alice")
}

func TestReplayRejectsBadRequests(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodPost, "/api/replay?variant=../../etc/passwd", "Alice passes")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Contains(t, string(body), "unknown variant")

	code, body = do(t, app, http.MethodPost, "/api/replay", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.JSONEq(t, `{"error":"empty transcript"}`, string(body))
}

func TestReplayRejectsUnreplayableTranscript(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodPost, "/api/replay", "Alice contributes $50\n")
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Contains(t, resp.Error, "failed to apply record 0")
}

func TestClassifyEndpoint(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, body := do(t, app, http.MethodPost, "/api/classify", "[12:01] B&O withholds $80\n")
	require.Equal(t, fiber.StatusOK, code, string(body))

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, catalog.TypeWithhold, resp.Record.Type())
	assert.Equal(t, "B&O", resp.Record.Get(catalog.FieldCompany))
	assert.Equal(t, "80", resp.Record.Get(catalog.FieldAmount))

	code, _ = do(t, app, http.MethodPost, "/api/classify", "Carol: gl hf")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, http.MethodPost, "/api/classify", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestClassifyAmbiguity(t *testing.T) {
	app, h := setupTestApp(t, nil)
	cat, err := catalog.New(
		catalog.NewRule("Withhold", catalog.TypeWithhold, catalog.ParentAction, `^(?P<company>.+?) withholds \$(?P<amount>\d+)$`),
		catalog.NewRule("AnyDollar", catalog.TypeReceiveFunds, catalog.ParentEvent, `^(?P<company>\S+) .*\$(?P<amount>\d+)$`),
	)
	require.NoError(t, err)
	h.classifier = classify.New(cat)

	code, body := do(t, app, http.MethodPost, "/api/classify", "B&O withholds $80")
	require.Equal(t, fiber.StatusUnprocessableEntity, code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Contains(t, resp.Error, "ambiguous line")
	assert.Len(t, resp.Matches, 2)
}

func TestRunRoutesNeedStore(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	code, _ := do(t, app, http.MethodGet, "/api/runs", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestStoredRuns(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()
	app, _ := setupTestApp(t, st)

	code, body := do(t, app, http.MethodPost, "/api/replay?game_id=g7", fixture(t))
	require.Equal(t, fiber.StatusOK, code, string(body))
	var replayed ReplayResponse
	require.NoError(t, json.Unmarshal(body, &replayed))
	require.NotEmpty(t, replayed.RunID)
	id := replayed.RunID

	code, body = do(t, app, http.MethodGet, "/api/runs?game_id=g7", "")
	require.Equal(t, fiber.StatusOK, code)
	var list struct {
		Runs []store.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, id, list.Runs[0].ID)
	assert.Equal(t, "player1", list.Runs[0].Winner)

	code, body = do(t, app, http.MethodGet, "/api/runs/"+id, "")
	require.Equal(t, fiber.StatusOK, code)
	var got struct {
		Run        store.Run      `json:"run"`
		FinalState map[string]any `json:"final_state"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, replayed.FinalState, got.FinalState)

	code, body = do(t, app, http.MethodGet, "/api/runs/"+id+"/snapshots/0", "")
	require.Equal(t, fiber.StatusOK, code)
	var snap struct {
		Position int               `json:"position"`
		State    map[string]string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 0, snap.Position)
	assert.NotEmpty(t, snap.State)

	code, _ = do(t, app, http.MethodGet, "/api/runs/"+id+"/snapshots/x", "")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = do(t, app, http.MethodDelete, "/api/runs/"+id, "")
	assert.Equal(t, fiber.StatusNoContent, code)

	code, body = do(t, app, http.MethodGet, "/api/runs/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Contains(t, string(body), "run not found")
}
