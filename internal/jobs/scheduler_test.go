package jobs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legacyvault/internal/models"
)

func TestParseStatsSnapshot(t *testing.T) {
	written := map[models.ApprovalStatus]int{
		models.ApprovalStatusPending:  3,
		models.ApprovalStatusApproved: 40,
		models.ApprovalStatusRejected: 2,
	}
	payload, err := json.Marshal(written)
	require.NoError(t, err)

	counts, err := ParseStatsSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, written, counts)
}

func TestParseStatsSnapshotRejectsGarbage(t *testing.T) {
	_, err := ParseStatsSnapshot([]byte("not json"))
	assert.Error(t, err)
}
