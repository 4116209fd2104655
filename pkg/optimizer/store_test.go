package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

func storeAssignment(dispatchID, techID string) *models.Assignment {
	start := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	return &models.Assignment{
		DispatchID:   dispatchID,
		TechnicianID: techID,
		Start:        start,
		End:          start.Add(time.Hour),
	}
}

func TestStoreCommitAndUnassign(t *testing.T) {
	store := NewAssignmentStore([]models.Technician{
		{TechnicianID: "T1", WorkloadCapacity: 8, CurrentAssignments: 3},
	})
	assert.Equal(t, 3, store.Count("T1"))

	require.NoError(t, store.Commit(storeAssignment("D1", "T1")))
	require.NoError(t, store.Commit(storeAssignment("D2", "T1")))
	assert.Equal(t, 5, store.Count("T1"))
	assert.Len(t, store.TechAssignments("T1"), 2)
	require.NoError(t, store.CheckConsistency())

	removed, ok := store.Unassign("D1")
	require.True(t, ok)
	assert.Equal(t, "D1", removed.DispatchID)
	assert.Equal(t, 4, store.Count("T1"))
	assert.Len(t, store.TechAssignments("T1"), 1)
	require.NoError(t, store.CheckConsistency())

	_, ok = store.Unassign("D1")
	assert.False(t, ok)
}

func TestStoreRejectsDoubleCommit(t *testing.T) {
	store := NewAssignmentStore(nil)
	require.NoError(t, store.Commit(storeAssignment("D1", "T1")))
	assert.Error(t, store.Commit(storeAssignment("D1", "T2")))
}

func TestStoreSnapshotIsImmutable(t *testing.T) {
	store := NewAssignmentStore([]models.Technician{
		{TechnicianID: "T1", WorkloadCapacity: 8},
	})
	snapshot := store.Snapshot()
	require.NoError(t, store.Commit(storeAssignment("D1", "T1")))

	assert.Equal(t, 0, snapshot("T1"))
	assert.Equal(t, 1, store.Count("T1"))
}

func TestStoreAssignmentsSorted(t *testing.T) {
	store := NewAssignmentStore(nil)
	require.NoError(t, store.Commit(storeAssignment("D3", "T1")))
	require.NoError(t, store.Commit(storeAssignment("D1", "T2")))
	require.NoError(t, store.Commit(storeAssignment("D2", "T1")))

	all := store.Assignments()
	require.Len(t, all, 3)
	assert.Equal(t, "D1", all[0].DispatchID)
	assert.Equal(t, "D2", all[1].DispatchID)
	assert.Equal(t, "D3", all[2].DispatchID)
}
