package logstore

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kaelbyte/rotation-kernel/rotation"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStartRunAndAppendRecordsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.StartRun("brawler", uuid.New(), 0)
	require.NoError(t, err)
	require.NotZero(t, runID)

	records := []*rotation.OperationRecord{
		{OperationID: "strike", Counter: 1, Time: 2, Consumed: map[string]float64{"energy": 2}},
		{OperationID: "strike", Counter: 2, Time: 4, Consumed: map[string]float64{"energy": 2}},
	}
	require.NoError(t, s.AppendRecords(runID, records))

	got, err := s.RunRecords(runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "strike", got[0].OperationID)
	require.Equal(t, 1, got[0].Counter)
	require.Equal(t, 2.0, got[1].Consumed["energy"])
}

func TestAppendFullRecordsRoundTripsResourceSnapshots(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.StartRun("brawler", uuid.New(), 0)
	require.NoError(t, err)

	full := []*rotation.FullRecord{
		{
			OperationRecord: &rotation.OperationRecord{OperationID: "strike", Counter: 1, Time: 2, Consumed: map[string]float64{"energy": 2}},
			Resources:       map[string]float64{"energy": 8},
		},
	}
	require.NoError(t, s.AppendFullRecords(runID, full))

	got, err := s.RunFullRecords(runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "strike", got[0].OperationID)
	require.Equal(t, 8.0, got[0].Resources["energy"])
}

func TestRunFullRecordsOnPlainRecordsDecodesNilResources(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.StartRun("brawler", uuid.New(), 0)
	require.NoError(t, err)
	require.NoError(t, s.AppendRecords(runID, []*rotation.OperationRecord{
		{OperationID: "strike", Counter: 1, Time: 2, Consumed: map[string]float64{"energy": 2}},
	}))

	got, err := s.RunFullRecords(runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Nil(t, got[0].Resources)
}

func TestListRunsReturnsMostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	firstUUID := uuid.New()
	first, err := s.StartRun("brawler", firstUUID, 0)
	require.NoError(t, err)
	second, err := s.StartRun("mage", uuid.New(), 10)
	require.NoError(t, err)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].ID)
	require.Equal(t, "mage", runs[0].CharacterName)
	require.Equal(t, first, runs[1].ID)
	require.Equal(t, firstUUID, runs[1].RunID)
}

func TestRunRecordsOnEmptyRunReturnsEmpty(t *testing.T) {
	s := openTestStore(t)

	runID, err := s.StartRun("ghost", uuid.New(), 0)
	require.NoError(t, err)

	got, err := s.RunRecords(runID)
	require.NoError(t, err)
	require.Empty(t, got)
}
