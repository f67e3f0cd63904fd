package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hdb-resale/resale-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	finished := created.Add(90 * time.Second)
	runs := []model.Run{
		{
			ID: "0123456789abcdef", Kind: model.RunKindNearest, Status: model.RunStatusComplete,
			Input: "data/houses_geocoded.xlsx", Total: 10, Processed: 10,
			CreatedAt: created, UpdatedAt: finished, FinishedAt: &finished,
		},
		{
			ID: "short", Kind: model.RunKindGeocode, Status: model.RunStatusRunning,
			Input: "/very/long/path/to/the/resale/transactions/file.csv", Total: 50, Processed: 3,
			CreatedAt: created, UpdatedAt: created.Add(time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "01234567 ")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "10/10")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "3/50")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "2024-03-01 09:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abcdefgh", truncateID("abcdefghijkl"))
	assert.Equal(t, "abc", truncateID("abc"))
}
