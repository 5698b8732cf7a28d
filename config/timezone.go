package config

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	displayOnce sync.Once
	displayLoc  *time.Location
)

// DisplayLocation is the single zone timestamps are rendered in. Storage is
// always UTC; conversion happens only at the presentation boundary.
func DisplayLocation() *time.Location {
	displayOnce.Do(func() {
		name := os.Getenv("DISPLAY_TZ")
		if name == "" {
			name = "Asia/Bangkok"
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			slog.Warn("invalid DISPLAY_TZ, falling back to UTC", "tz", name, "err", err)
			loc = time.UTC
		}
		displayLoc = loc
	})
	return displayLoc
}
