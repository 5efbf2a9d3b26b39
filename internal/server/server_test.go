package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/stats"
	"github.com/minds-lab/minds-cli/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	ts := httptest.NewServer(New(st).Handler())
	t.Cleanup(func() {
		ts.Close()
		st.Close()
	})
	return ts, st
}

func seedRun(t *testing.T, st store.Store, name string, outcomes []model.SampleOutcome) *model.Run {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, name, "gsm8k", "minds-3")
	require.NoError(t, err)

	passed := 0
	for _, o := range outcomes {
		o.RunID = run.ID
		require.NoError(t, st.SaveOutcome(ctx, o))
		if o.Passed {
			passed++
		}
	}
	summary := &model.RunSummary{
		Samples:     len(outcomes),
		PassedCount: passed,
		PassRate:    float64(passed) / float64(len(outcomes)),
	}
	require.NoError(t, st.FinalizeRun(ctx, run.ID, summary))
	return run
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]string
	code := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestListRunsEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	seedRun(t, st, "run-a", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
	})

	var runs []model.Run
	code := getJSON(t, ts.URL+"/runs", &runs)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-a", runs[0].Name)

	// Empty result is an empty array, not null.
	code = getJSON(t, ts.URL+"/runs?status=failed", &runs)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, runs)

	code = getJSON(t, ts.URL+"/runs?limit=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetRunEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	run := seedRun(t, st, "run-a", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
	})

	var got model.Run
	code := getJSON(t, ts.URL+"/runs/"+run.ID, &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, run.ID, got.ID)

	code = getJSON(t, ts.URL+"/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetOutcomesEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	run := seedRun(t, st, "run-a", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
		{SampleID: "q-2", Passed: false, FailureMode: model.FailureTimeout},
	})

	var set model.RunOutcomeSet
	code := getJSON(t, ts.URL+"/runs/"+run.ID+"/outcomes", &set)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, set.Outcomes, 2)

	code = getJSON(t, ts.URL+"/runs/nope/outcomes", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCompareEndpoint(t *testing.T) {
	ts, st := newTestServer(t)
	runA := seedRun(t, st, "run-a", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
		{SampleID: "q-2", Passed: false, FailureMode: model.FailureWrongAnswer},
		{SampleID: "q-3", Passed: true, FailureMode: model.FailureNone},
	})
	runB := seedRun(t, st, "run-b", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
		{SampleID: "q-2", Passed: true, FailureMode: model.FailureNone},
		{SampleID: "q-3", Passed: true, FailureMode: model.FailureNone},
	})

	var single stats.ComparisonResult
	code := getJSON(t, ts.URL+"/compare?a="+runA.ID, &single)
	assert.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 2.0/3.0, single.PointEstimateA, 1e-9)

	var paired stats.ComparisonResult
	code = getJSON(t, ts.URL+"/compare?a="+runA.ID+"&b="+runB.ID, &paired)
	assert.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 1.0/3.0, paired.Delta, 1e-9)
	assert.Equal(t, [2]int{0, 1}, paired.Discordant)

	code = getJSON(t, ts.URL+"/compare", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCompareEndpointMismatchedSamples(t *testing.T) {
	ts, st := newTestServer(t)
	runA := seedRun(t, st, "run-a", []model.SampleOutcome{
		{SampleID: "q-1", Passed: true, FailureMode: model.FailureNone},
	})
	runB := seedRun(t, st, "run-b", []model.SampleOutcome{
		{SampleID: "q-9", Passed: true, FailureMode: model.FailureNone},
	})

	code := getJSON(t, ts.URL+"/compare?a="+runA.ID+"&b="+runB.ID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}
