package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nn1ks/lsfbot/pkg/timetable"
)

// cacheMaxAge determines how old a cached schedule may be and still serve as
// a startup fallback when the portal is unreachable.
const cacheMaxAge = 7 * 24 * time.Hour

// CacheEntry represents the disk data format.
type CacheEntry struct {
	Timestamp time.Time           `json:"timestamp"`
	Schedule  *timetable.Schedule `json:"schedule"`
}

func getCachePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find user home directory: %w", err)
	}

	cacheDir := filepath.Join(homeDir, ".lsfbot_cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("could not create cache directory: %w", err)
	}

	return filepath.Join(cacheDir, "schedule.json"), nil
}

// ReadCache returns the last successfully extracted schedule, if a
// sufficiently fresh one exists on disk.
func ReadCache() (*timetable.Schedule, bool) {
	path, err := getCachePath()
	if err != nil {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false // File doesn't exist or can't be read
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Schedule == nil || time.Since(entry.Timestamp) > cacheMaxAge {
		return nil, false
	}

	return entry.Schedule, true
}

// WriteCache saves the schedule to disk.
func WriteCache(schedule *timetable.Schedule) {
	path, err := getCachePath()
	if err != nil {
		return
	}

	entry := CacheEntry{
		Timestamp: time.Now(),
		Schedule:  schedule,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return
	}

	_ = os.WriteFile(path, data, 0644)
}
