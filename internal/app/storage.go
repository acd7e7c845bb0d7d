package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/afero"
)

// The snapshot cache keeps the last good schedule across restarts so the
// service can serve data before (or despite) the first refresh.

// SaveSnapshot persists a snapshot to the cache file. The previous cache
// file becomes a backup, and the new content is written to a temp file
// first so a crash mid-write never leaves a truncated cache.
func SaveSnapshot(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if exists, _ := afero.Exists(AppFs, CacheFile); exists {
		if err := AppFs.Rename(CacheFile, CacheFile+BackupSuffix); err != nil {
			log.Printf("Warning: failed to back up snapshot cache: %v", err)
		}
	}

	tmpFile := CacheFile + TmpSuffix
	if err := afero.WriteFile(AppFs, tmpFile, data, FilePermissions); err != nil {
		return fmt.Errorf("write snapshot cache: %w", err)
	}

	return AppFs.Rename(tmpFile, CacheFile)
}

// LoadCachedSnapshot restores the last persisted snapshot, re-applying the
// future-only filter so pickups that passed while the service was down do
// not reappear. A missing cache file is not an error; the first refresh
// will populate the state.
func LoadCachedSnapshot() error {
	data, err := afero.ReadFile(AppFs, CacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot cache: %w", err)
	}

	var cached Snapshot
	if err := json.Unmarshal(data, &cached); err != nil {
		return fmt.Errorf("parse snapshot cache: %w", err)
	}

	now := time.Now().In(Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var pickups []Pickup
	for _, wt := range AllWasteTypes {
		pickups = append(pickups, cached.ByType[wt]...)
	}

	snap := assembleSnapshot(pickups, cached.FetchedAt, today)
	setSnapshot(snap)
	log.Printf("Loaded cached snapshot from %s: %d upcoming pickups (fetched %s)",
		CacheFile, snap.Total(), cached.FetchedAt.Format(time.RFC3339))
	return nil
}
