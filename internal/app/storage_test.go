package app

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

func setupMemStorage(t *testing.T) {
	t.Helper()
	prevFs := AppFs
	prevCache := CacheFile
	AppFs = afero.NewMemMapFs()
	CacheFile = "/data/snapshot.json"
	t.Cleanup(func() {
		AppFs = prevFs
		CacheFile = prevCache
	})
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	setupMemStorage(t)
	resetState(t)
	CacheFile = "/data/snapshot.json"

	content := "Datum;Ophaling;Verwijderd;Reden\n" +
		"2099-06-15;PMD;;\n" +
		"2099-06-20;Huisvuil;;\n"
	snap, err := ParseSchedule(content, testNow)
	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}

	if err := SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	if err := LoadCachedSnapshot(); err != nil {
		t.Fatalf("LoadCachedSnapshot() error: %v", err)
	}

	loaded := CurrentSnapshot()
	if loaded == nil {
		t.Fatal("Expected a snapshot after loading the cache")
	}
	if loaded.Total() != 2 {
		t.Errorf("Loaded snapshot has %d pickups, want 2", loaded.Total())
	}
	if loaded.Next == nil || loaded.Next.Date != "2099-06-15" || loaded.Next.Type != PMD {
		t.Errorf("Loaded next = %+v, want PMD on 2099-06-15", loaded.Next)
	}
}

func TestLoadCachedSnapshotRefilters(t *testing.T) {
	setupMemStorage(t)
	resetState(t)
	CacheFile = "/data/snapshot.json"

	// A cache written in the past may contain dates that have meanwhile
	// passed; loading must drop them.
	stale := &Snapshot{
		FetchedAt: time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC),
		Today:     "2020-01-01",
		ByType: map[WasteType][]Pickup{
			Huisvuil: {{Date: "2020-02-01", Type: Huisvuil}},
			PMD:      {{Date: "2099-06-15", Type: PMD}},
		},
	}
	if err := SaveSnapshot(stale); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}

	if err := LoadCachedSnapshot(); err != nil {
		t.Fatalf("LoadCachedSnapshot() error: %v", err)
	}

	loaded := CurrentSnapshot()
	if loaded == nil {
		t.Fatal("Expected a snapshot after loading the cache")
	}
	if len(loaded.ByType[Huisvuil]) != 0 {
		t.Error("Stale pickup should have been filtered out on load")
	}
	if len(loaded.ByType[PMD]) != 1 {
		t.Error("Future pickup should have survived the reload")
	}
}

func TestLoadCachedSnapshotMissingFile(t *testing.T) {
	setupMemStorage(t)
	resetState(t)
	CacheFile = "/data/missing.json"

	if err := LoadCachedSnapshot(); err != nil {
		t.Errorf("Missing cache file should not be an error, got: %v", err)
	}
	if CurrentSnapshot() != nil {
		t.Error("Missing cache file must not produce a snapshot")
	}
}

func TestSaveSnapshotCreatesBackup(t *testing.T) {
	setupMemStorage(t)
	CacheFile = "/data/snapshot.json"

	snap := &Snapshot{
		FetchedAt: testNow,
		Today:     "2025-06-01",
		ByType:    map[WasteType][]Pickup{PMD: {{Date: "2099-06-15", Type: PMD}}},
	}

	if err := SaveSnapshot(snap); err != nil {
		t.Fatalf("First SaveSnapshot() error: %v", err)
	}
	if err := SaveSnapshot(snap); err != nil {
		t.Fatalf("Second SaveSnapshot() error: %v", err)
	}

	exists, err := afero.Exists(AppFs, CacheFile+BackupSuffix)
	if err != nil || !exists {
		t.Errorf("Expected backup file after second save (exists=%v, err=%v)", exists, err)
	}
}
