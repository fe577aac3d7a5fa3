package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEvents(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events"+FileExt)
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func TestReaderFilter(t *testing.T) {
	base := time.Date(2025, 7, 17, 12, 0, 0, 0, time.UTC)
	checkIn := testEvent("a", wire.OpCheckIn)
	checkIn.Timestamp = base

	checkOut := testEvent("b", wire.OpCheckOut)
	checkOut.Timestamp = base.Add(time.Minute)

	op := wire.OpCheckIn
	failed := Event{
		Timestamp: base.Add(2 * time.Minute),
		IssueID:   "c",
		Direction: DirectionOpened,
		Category:  CategoryError,
		Error:     &ErrorEventData{Operation: &op, Kind: ErrorKindAuthentication, Message: "x"},
	}

	path := writeEvents(t, checkIn, checkOut, failed)

	opened := DirectionOpened
	errCat := CategoryError
	start := base.Add(30 * time.Second)
	end := base.Add(2 * time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a", "b", "c"}},
		{"by issue id", Filter{IssueID: "b"}, []string{"b"}},
		{"by direction", Filter{Direction: &opened}, []string{"c"}},
		{"by category", Filter{Category: &errCat}, []string{"c"}},
		{"by operation spans errors", Filter{Operation: &op}, []string{"a", "c"}},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer r.Close()

			var got []string
			for {
				e, err := r.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				got = append(got, e.IssueID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "none"+FileExt))
	assert.Error(t, err)
}
