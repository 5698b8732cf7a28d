package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindowSpansLocalDayInUTC(t *testing.T) {
	bangkok, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// 01:30 on 2025-03-10 in Bangkok is still 2025-03-09 in UTC; the window
	// must follow the local calendar day.
	at := time.Date(2025, 3, 10, 1, 30, 0, 0, bangkok)
	start, end := DayWindow(at, bangkok)

	require.Equal(t, time.UTC, start.Location())
	assert.Equal(t, time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestBeginningOfDayKeepsLocation(t *testing.T) {
	at := time.Date(2025, 7, 4, 15, 45, 30, 999, time.UTC)
	midnight := BeginningOfDay(at)

	assert.Equal(t, time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), midnight)
	assert.Equal(t, time.UTC, midnight.Location())
}
