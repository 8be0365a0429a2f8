package batchworker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileStatus_Constants(t *testing.T) {
	t.Run("FileStatusStarted equals started", func(t *testing.T) {
		assert.Equal(t, FileStatus("started"), FileStatusStarted)
	})

	t.Run("FileStatusInProgress equals in_progress", func(t *testing.T) {
		assert.Equal(t, FileStatus("in_progress"), FileStatusInProgress)
	})

	t.Run("FileStatusCompleted equals completed", func(t *testing.T) {
		assert.Equal(t, FileStatus("completed"), FileStatusCompleted)
	})
}

func TestLeaseInfo_ZeroValues(t *testing.T) {
	var info LeaseInfo

	assert.Equal(t, "", info.WorkerID)
	assert.Equal(t, "", info.InstanceID)
	assert.True(t, info.AcquiredAt.IsZero())
	assert.True(t, info.ExpiresAt.IsZero())
}

func TestFileProgress_ZeroValues(t *testing.T) {
	t.Run("zero value progress", func(t *testing.T) {
		var p FileProgress

		assert.Equal(t, "", p.FileID)
		assert.Equal(t, FileStatus(""), p.Status)
		assert.Equal(t, 0, p.LastPage)
		assert.Equal(t, int64(0), p.CumulativeRows)
		assert.True(t, p.StartedAt.IsZero())
		assert.Nil(t, p.CompletedAt)
	})

	t.Run("completed progress carries a completion time", func(t *testing.T) {
		now := time.Now()
		p := FileProgress{
			FileID:         "A",
			WorkerID:       "LoanWorker",
			Status:         FileStatusCompleted,
			LastPage:       4,
			CumulativeRows: 500,
			StartedAt:      now.Add(-time.Hour),
			CompletedAt:    &now,
		}

		assert.Equal(t, FileStatusCompleted, p.Status)
		assert.Equal(t, 4, p.LastPage)
		assert.NotNil(t, p.CompletedAt)
		assert.Equal(t, now, *p.CompletedAt)
	})
}

func TestFileConfig_Initialization(t *testing.T) {
	fc := FileConfig{
		FileID:          "A",
		FileNamePattern: "loans-{date}-a.txt",
		TranslatorID:    "pipe-delimited",
	}

	assert.Equal(t, "A", fc.FileID)
	assert.Equal(t, "loans-{date}-a.txt", fc.FileNamePattern)
	assert.Equal(t, "pipe-delimited", fc.TranslatorID)
}

func TestRow_IsAMapOfColumnToValue(t *testing.T) {
	row := Row{"id": int64(1), "name": "Ada", "deleted_at": nil}

	assert.Equal(t, int64(1), row["id"])
	assert.Equal(t, "Ada", row["name"])
	assert.Nil(t, row["deleted_at"])
}
