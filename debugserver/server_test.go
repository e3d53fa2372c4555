package debugserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaelbyte/rotation-kernel/rotation"
)

func newTestCharacter() *rotation.Character {
	c := rotation.NewCharacter("debug-dummy", rotation.NewTimer())
	energy := rotation.NewResource("energy", 10, 10)
	c.AddResource(energy)
	strike := &rotation.Operation{
		ID:           "strike",
		BaseTime:     1,
		Requirements: []*rotation.Resource{energy},
		ConsumeBase:  []float64{2},
	}
	c.AddOperation(strike)
	return c
}

func TestHandleResourcesReturnsSnapshots(t *testing.T) {
	c := newTestCharacter()
	srv := New(c)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/resources", nil)

	srv.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var snapshots []resourceSnapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snapshots))
	require.Len(t, snapshots, 1)
	require.Equal(t, "energy", snapshots[0].ID)
	require.Equal(t, 10.0, snapshots[0].Current)
}

func TestHandleStepGreedyAdvancesTheCharacter(t *testing.T) {
	c := newTestCharacter()
	srv := New(c)

	body, err := json.Marshal(stepRequest{MaxSteps: 1})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/debug/step/greedy", bytes.NewReader(body))
	srv.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp stepResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Records, 1)
	require.Equal(t, "strike", resp.Records[0].OperationID)

	energy, ok := c.Resource("energy")
	require.True(t, ok)
	require.Equal(t, 8.0, energy.Current())
}

func TestHandleStepGreedyRejectsNonPositiveMaxSteps(t *testing.T) {
	srv := New(newTestCharacter())

	body, err := json.Marshal(stepRequest{MaxSteps: 0})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/debug/step/greedy", bytes.NewReader(body))
	srv.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleTimerReportsCurrentTime(t *testing.T) {
	c := newTestCharacter()
	srv := New(c)

	_ = c.BuildRotationGreedyOps(1, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/timer", nil)
	srv.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp timerResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, 1.0, resp.Now)
}
