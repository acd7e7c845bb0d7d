package app

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// Source types
const (
	SourceTypeURL    = "url"
	SourceTypePath   = "path"
	SourceTypeUpload = "upload"
)

// Constants
const (
	DefaultUpdateInterval = 12 * time.Hour
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultTimezone       = "Europe/Brussels"
	DefaultCacheFile      = "ophaalkalender_cache.json"

	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp.json"
	FilePermissions = 0644

	// Date layout used throughout: ISO, so string order equals date order
	DateLayout = "2006-01-02"

	// Error messages
	ErrInvalidFormat    = "Invalid format"
	ErrUnknownWasteType = "Unknown waste type"
	ErrInternalServer   = "Internal server error"
	ErrNoSnapshot       = "No schedule available yet"
	ErrRefreshFailed    = "Refresh failed"
	ErrEmptyUpload      = "Empty CSV content"
	ErrUploadDisabled   = "Upload source not configured"
	ErrFailedToGenerate = "Failed to generate output"

	// ICS constants
	ICSProductID = "-//Limburg.net//Ophaalkalender//NL"
	ICSTimezone  = "Europe/Brussels"
)

// Configuration, loaded once at startup and read-only afterwards except
// for the uploaded CSV content, which the upload endpoint may replace.
var (
	SourceType     = SourceTypeURL
	SourceValue    string // URL or filesystem path, depending on SourceType
	UpdateInterval = DefaultUpdateInterval
	Location       = time.UTC
	CacheFile      string

	uploadedCSV string
	uploadMu    sync.RWMutex

	httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
)

// Current snapshot state. The pointer is only ever replaced under the
// mutex, never mutated in place, so readers always see a complete
// snapshot or none at all.
var (
	snapshot      *Snapshot
	lastRefreshAt time.Time
	lastRefreshOK bool
	lastError     string
	snapshotMu    sync.RWMutex

	// Guards against overlapping refreshes
	refreshMu sync.Mutex
)

// LoadConfig reads the source and scheduling configuration from the
// environment. Call once before the first refresh.
func LoadConfig() error {
	if st := os.Getenv("SOURCE_TYPE"); st != "" {
		switch st {
		case SourceTypeURL, SourceTypePath, SourceTypeUpload:
			SourceType = st
		default:
			return fmt.Errorf("invalid SOURCE_TYPE %q (want url, path or upload)", st)
		}
	}

	switch SourceType {
	case SourceTypeURL:
		SourceValue = os.Getenv("SOURCE_URL")
		if SourceValue == "" {
			return fmt.Errorf("SOURCE_URL is required when SOURCE_TYPE=url")
		}
	case SourceTypePath:
		SourceValue = os.Getenv("CSV_PATH")
		if SourceValue == "" {
			return fmt.Errorf("CSV_PATH is required when SOURCE_TYPE=path")
		}
	case SourceTypeUpload:
		// Inline content may come from the environment or later via the
		// upload endpoint.
		SetUploadedCSV(os.Getenv("CSV_CONTENT"))
	}

	if iv := os.Getenv("UPDATE_INTERVAL"); iv != "" {
		d, err := time.ParseDuration(iv)
		if err != nil {
			return fmt.Errorf("invalid UPDATE_INTERVAL: %w", err)
		}
		if d < time.Minute {
			return fmt.Errorf("UPDATE_INTERVAL %s is below the 1m minimum", d)
		}
		UpdateInterval = d
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = DefaultTimezone
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	Location = tz

	if ht := os.Getenv("HTTP_TIMEOUT"); ht != "" {
		d, err := time.ParseDuration(ht)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		httpClient = &http.Client{Timeout: d}
	}

	CacheFile = os.Getenv("CACHE_FILE")
	if CacheFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			CacheFile = cwd + string(os.PathSeparator) + DefaultCacheFile
		} else {
			CacheFile = DefaultCacheFile
		}
	}

	return nil
}

// SetUploadedCSV replaces the inline CSV content used by the upload source.
func SetUploadedCSV(content string) {
	uploadMu.Lock()
	uploadedCSV = content
	uploadMu.Unlock()
}

// UploadedCSV returns the current inline CSV content.
func UploadedCSV() string {
	uploadMu.RLock()
	defer uploadMu.RUnlock()
	return uploadedCSV
}

// CurrentSnapshot returns the latest successfully parsed snapshot, or nil
// if no refresh has ever succeeded.
func CurrentSnapshot() *Snapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

// setSnapshot atomically replaces the current snapshot.
func setSnapshot(s *Snapshot) {
	snapshotMu.Lock()
	snapshot = s
	snapshotMu.Unlock()
}

// recordRefresh stores the outcome of the latest refresh attempt.
func recordRefresh(err error) {
	snapshotMu.Lock()
	lastRefreshAt = time.Now().In(Location)
	lastRefreshOK = err == nil
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
	snapshotMu.Unlock()
}

// LastRefresh reports when the last refresh attempt ran, whether it
// succeeded and, if not, its error message.
func LastRefresh() (at time.Time, ok bool, errMsg string) {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return lastRefreshAt, lastRefreshOK, lastError
}
