package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clusterboard/pkg/cluster"
	"github.com/elonfeng/clusterboard/pkg/rank"
	"github.com/elonfeng/clusterboard/pkg/scoring"
)

func samplePayload(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/sample_payload.json")
	require.NoError(t, err)
	return string(data)
}

type scorerFunc func(ctx context.Context, g scoring.GradeSheet) (*cluster.Payload, error)

func (f scorerFunc) Score(ctx context.Context, g scoring.GradeSheet) (*cluster.Payload, error) {
	return f(ctx, g)
}

func newTestServer(scorer Scorer) *Server {
	return New(scorer, Options{Highlights: rank.TopOptions{N: 3}}, log.New(io.Discard))
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func ids(t *testing.T, data any) []int {
	t.Helper()
	rows, ok := data.([]any)
	require.True(t, ok)
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = int(r.(map[string]any)["id"].(float64))
	}
	return out
}

func TestHealth(t *testing.T) {
	rec, out := do(t, newTestServer(nil).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestNoResultsYet(t *testing.T) {
	h := newTestServer(nil).Handler()
	for _, path := range []string{"/api/v1/clusters", "/api/v1/clusters/1", "/api/v1/highlights", "/api/v1/aggregate"} {
		rec, out := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "no results delivered", out["error"], path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(nil).Handler()
	rec, _ := do(t, h, http.MethodGet, "/api/v1/results", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/api/v1/clusters", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeliverAndQuery(t *testing.T) {
	s := newTestServer(nil)
	h := s.Handler()

	rec, out := do(t, h, http.MethodPost, "/api/v1/results", samplePayload(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2f9c1d3e-5b7a-4c11-9e0f-6a2b8d4c7e10", out["result_id"])
	assert.EqualValues(t, 8, out["clusters"])
	assert.Empty(t, out["errors"])
	require.NotNil(t, s.Board())

	t.Run("default sort is points", func(t *testing.T) {
		_, out := do(t, h, http.MethodGet, "/api/v1/clusters", "")
		assert.Equal(t, "points", out["mode"])
		assert.Equal(t, "sort-points", out["control"])
		assert.Equal(t, []int{5, 7, 2, 1, 3, 9, 13, 18}, ids(t, out["data"]))
	})

	t.Run("number", func(t *testing.T) {
		_, out := do(t, h, http.MethodGet, "/api/v1/clusters?sort=number", "")
		assert.Equal(t, []int{1, 2, 3, 5, 7, 9, 13, 18}, ids(t, out["data"]))
	})

	t.Run("non-zero by control", func(t *testing.T) {
		_, out := do(t, h, http.MethodGet, "/api/v1/clusters?control=sort-nonzero", "")
		assert.EqualValues(t, 8, out["count"])
		assert.EqualValues(t, 7, out["visible"])
		rows := out["data"].([]any)
		last := rows[len(rows)-1].(map[string]any)
		assert.EqualValues(t, 18, last["id"])
		assert.Equal(t, false, last["visible"])
		assert.Equal(t, "zero", last["tier"])
		assert.Equal(t, "0.000", last["display"])
	})

	t.Run("bad sort", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/v1/clusters?sort=alpha", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec, _ = do(t, h, http.MethodGet, "/api/v1/clusters?control=sort-alpha", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("highlights", func(t *testing.T) {
		_, out := do(t, h, http.MethodGet, "/api/v1/highlights", "")
		assert.Equal(t, []int{5, 7, 2}, ids(t, out["data"]))
		first := out["data"].([]any)[0].(map[string]any)
		assert.EqualValues(t, 1, first["rank"])
		assert.Equal(t, "high", first["tier"])
	})

	t.Run("cluster detail", func(t *testing.T) {
		rec, out := do(t, h, http.MethodGet, "/api/v1/clusters/1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		detail := out["detail"].(map[string]any)
		assert.EqualValues(t, 42, detail["total"])
		assert.EqualValues(t, 48, detail["denominator"])
		assert.Len(t, detail["items"], 4)
	})

	t.Run("hidden cluster still selectable", func(t *testing.T) {
		rec, out := do(t, h, http.MethodGet, "/api/v1/clusters/18", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "zero", out["format"].(map[string]any)["tier"])
		c := out["cluster"].(map[string]any)
		assert.Equal(t, []any{"Requirement 1: Could not satisfy ['music']"}, c["failures"])
	})

	t.Run("unknown cluster", func(t *testing.T) {
		rec, _ := do(t, h, http.MethodGet, "/api/v1/clusters/4", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec, _ = do(t, h, http.MethodGet, "/api/v1/clusters/four", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("aggregate", func(t *testing.T) {
		_, out := do(t, h, http.MethodGet, "/api/v1/aggregate", "")
		assert.EqualValues(t, 71, out["aggregate_points"])
		detail := out["detail"].(map[string]any)
		assert.EqualValues(t, 71, detail["total"])
		assert.EqualValues(t, 84, detail["denominator"])
		method := out["method"].(map[string]any)
		assert.EqualValues(t, 8, method["subjects_count"])
		assert.Contains(t, method["formula"], "× 48 - 3")
	})
}

func TestDeliverEmpty(t *testing.T) {
	s := newTestServer(nil)
	rec, out := do(t, s.Handler(), http.MethodPost, "/api/v1/results",
		`{"success":true,"results":{"Cluster 1":"abc","Cluster 2":"99.000"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, out["error"], "no clusters in result")
	assert.Len(t, out["errors"], 2)
	assert.Nil(t, s.Board())
}

func TestDeliverKeepsPreviousBoardOnFailure(t *testing.T) {
	s := newTestServer(nil)
	h := s.Handler()
	rec, _ := do(t, h, http.MethodPost, "/api/v1/results", samplePayload(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/results", `{"success":false,"error":"Payment required"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "2f9c1d3e-5b7a-4c11-9e0f-6a2b8d4c7e10", s.Board().ID())

	rec, _ = do(t, h, http.MethodPost, "/api/v1/results", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScore(t *testing.T) {
	payload := samplePayload(t)
	var got scoring.GradeSheet
	s := newTestServer(scorerFunc(func(ctx context.Context, g scoring.GradeSheet) (*cluster.Payload, error) {
		got = g
		return cluster.DecodePayload(strings.NewReader(payload))
	}))

	rec, out := do(t, s.Handler(), http.MethodPost, "/api/v1/score", `{"Mathematics":"a","english":"B+"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, scoring.GradeSheet{"mathematics": "A", "english": "B+"}, got)
	assert.EqualValues(t, 8, out["clusters"])
}

func TestScoreErrors(t *testing.T) {
	rec, _ := do(t, newTestServer(nil).Handler(), http.MethodPost, "/api/v1/score", `{"mathematics":"A"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	failing := newTestServer(scorerFunc(func(context.Context, scoring.GradeSheet) (*cluster.Payload, error) {
		return nil, &scoring.StatusError{StatusCode: http.StatusPaymentRequired, Message: "Payment required"}
	}))
	rec, out := do(t, failing.Handler(), http.MethodPost, "/api/v1/score", `{"mathematics":"A"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, out["error"], "Payment required")

	rec, _ = do(t, failing.Handler(), http.MethodPost, "/api/v1/score", `{"mathematics":"Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, failing.Handler(), http.MethodPost, "/api/v1/score", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreCollapsesIdenticalRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	payload := samplePayload(t)
	s := newTestServer(scorerFunc(func(context.Context, scoring.GradeSheet) (*cluster.Payload, error) {
		calls.Add(1)
		<-release
		p, err := cluster.DecodePayload(strings.NewReader(payload))
		if err != nil {
			return nil, err
		}
		// Without a service id every delivery mints its own.
		p.ResultID = ""
		return p, nil
	}))
	h := s.Handler()

	const n = 4
	var wg sync.WaitGroup
	codes := make([]int, n)
	resultIDs := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/score", strings.NewReader(`{"english":"A","mathematics":"B"}`))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			codes[i] = rec.Code

			var out struct {
				ResultID string `json:"result_id"`
			}
			if json.Unmarshal(rec.Body.Bytes(), &out) == nil {
				resultIDs[i] = out.ResultID
			}
		}()
	}

	// Give every request time to join the in-flight call.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i, c := range codes {
		assert.Equal(t, http.StatusOK, c)
		assert.Equal(t, s.Board().ID(), resultIDs[i], "one board per collapsed call")
	}
}

func TestReport(t *testing.T) {
	s := newTestServer(nil)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/results", samplePayload(t))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clusters-2f9c1d3e-5b7a-4c11-9e0f-6a2b8d4c7e10.txt")

	body := rec.Body.String()
	assert.Contains(t, body, "KCSE Cluster Points Results")
	assert.Contains(t, body, "#1  Cluster 5  41.436")
	assert.Contains(t, body, "Total: 71/84")
	assert.Contains(t, body, "A -3 deviation has been applied")
}

func TestGradeKey(t *testing.T) {
	a := gradeKey(scoring.GradeSheet{"english": "A", "mathematics": "B"})
	b := gradeKey(scoring.GradeSheet{"mathematics": "B", "english": "A"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, gradeKey(scoring.GradeSheet{"english": "B", "mathematics": "A"}))
}
