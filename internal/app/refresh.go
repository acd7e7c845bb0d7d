package app

import (
	"log"
	"time"
)

// Refresh fetches and parses the CSV source and swaps in the resulting
// snapshot. On any failure the previous snapshot stays in place so
// consumers keep showing the last good data. A refresh already in
// progress makes concurrent calls a no-op.
func Refresh() error {
	if !refreshMu.TryLock() {
		log.Printf("Refresh already in progress, skipping")
		return nil
	}
	defer refreshMu.Unlock()

	content, err := FetchCSV()
	if err != nil {
		recordRefresh(err)
		log.Printf("Refresh failed (keeping previous snapshot): %v", err)
		return err
	}

	now := time.Now().In(Location)
	snap, err := ParseSchedule(content, now)
	if err != nil {
		recordRefresh(err)
		log.Printf("Refresh failed (keeping previous snapshot): %v", err)
		return err
	}

	for _, w := range snap.Warnings {
		log.Printf("Skipped CSV row %d: %s", w.Line, w.Message)
	}
	if snap.Total() == 0 {
		log.Printf("Parsed schedule has no upcoming pickups")
	}

	setSnapshot(snap)
	recordRefresh(nil)
	log.Printf("Refreshed schedule: %d upcoming pickups (%d rows skipped)",
		snap.Total(), len(snap.Warnings))

	if CacheFile != "" {
		if err := SaveSnapshot(snap); err != nil {
			log.Printf("Warning: failed to persist snapshot cache: %v", err)
		}
	}
	return nil
}
