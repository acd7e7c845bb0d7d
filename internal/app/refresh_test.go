package app

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

// resetState clears the snapshot and refresh bookkeeping for a test and
// restores everything afterwards.
func resetState(t *testing.T) {
	t.Helper()
	snapshotMu.Lock()
	prevSnap, prevAt, prevOK, prevErr := snapshot, lastRefreshAt, lastRefreshOK, lastError
	snapshot = nil
	lastRefreshOK = false
	lastError = ""
	snapshotMu.Unlock()

	prevCache := CacheFile
	CacheFile = ""

	t.Cleanup(func() {
		snapshotMu.Lock()
		snapshot, lastRefreshAt, lastRefreshOK, lastError = prevSnap, prevAt, prevOK, prevErr
		snapshotMu.Unlock()
		CacheFile = prevCache
	})
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	resetState(t)
	setSource(t, SourceTypeUpload, "")
	prev := UploadedCSV()
	t.Cleanup(func() { SetUploadedCSV(prev) })
	SetUploadedCSV(validCSV)

	if err := Refresh(); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}

	snap := CurrentSnapshot()
	if snap == nil {
		t.Fatal("Expected a snapshot after successful refresh")
	}
	if snap.Next == nil || snap.Next.Type != PMD {
		t.Errorf("Unexpected next pickup: %+v", snap.Next)
	}

	_, ok, errMsg := LastRefresh()
	if !ok || errMsg != "" {
		t.Errorf("LastRefresh() = ok:%v err:%q, want success", ok, errMsg)
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	resetState(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(validCSV))
	}))
	setSource(t, SourceTypeURL, server.URL)

	if err := Refresh(); err != nil {
		t.Fatalf("Initial refresh failed: %v", err)
	}
	before := CurrentSnapshot()

	// Source goes away; the next refresh must fail but keep serving data
	server.Close()
	if err := Refresh(); err == nil {
		t.Fatal("Expected refresh against closed server to fail")
	}

	if CurrentSnapshot() != before {
		t.Error("Failed refresh must leave the previous snapshot in place")
	}

	_, ok, errMsg := LastRefresh()
	if ok || errMsg == "" {
		t.Errorf("LastRefresh() = ok:%v err:%q, want recorded failure", ok, errMsg)
	}
}

func TestRefreshConcurrentIsNoOp(t *testing.T) {
	resetState(t)
	setSource(t, SourceTypeUpload, "")
	prev := UploadedCSV()
	t.Cleanup(func() { SetUploadedCSV(prev) })
	SetUploadedCSV(validCSV)

	// Hold the refresh lock to simulate a refresh in progress
	refreshMu.Lock()
	done := make(chan error, 1)
	go func() { done <- Refresh() }()
	if err := <-done; err != nil {
		t.Errorf("Concurrent Refresh() should be a no-op, got error: %v", err)
	}
	if CurrentSnapshot() != nil {
		t.Error("Skipped refresh must not produce a snapshot")
	}
	refreshMu.Unlock()

	// With the lock released the refresh proceeds normally
	if err := Refresh(); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	if CurrentSnapshot() == nil {
		t.Error("Expected a snapshot after the lock was released")
	}
}

func TestRefreshPersistsSnapshotCache(t *testing.T) {
	resetState(t)
	prevFs := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { AppFs = prevFs })
	CacheFile = "/cache/snapshot.json"

	setSource(t, SourceTypeUpload, "")
	prev := UploadedCSV()
	t.Cleanup(func() { SetUploadedCSV(prev) })
	SetUploadedCSV(validCSV)

	if err := Refresh(); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}

	exists, err := afero.Exists(AppFs, CacheFile)
	if err != nil || !exists {
		t.Errorf("Expected snapshot cache at %s (exists=%v, err=%v)", CacheFile, exists, err)
	}
}

func TestRefreshParallelCallsDoNotRace(t *testing.T) {
	resetState(t)
	setSource(t, SourceTypeUpload, "")
	prev := UploadedCSV()
	t.Cleanup(func() { SetUploadedCSV(prev) })
	SetUploadedCSV(validCSV)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Refresh()
			CurrentSnapshot()
			NextPickup()
		}()
	}
	wg.Wait()

	if CurrentSnapshot() == nil {
		t.Error("Expected at least one refresh to succeed")
	}
}
