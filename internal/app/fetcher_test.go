package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
)

const validCSV = "Datum;Ophaling;Verwijderd;Reden\n2099-06-15;PMD;;\n"

// setSource configures the fetch source for a test and restores the
// previous configuration afterwards.
func setSource(t *testing.T, sourceType, sourceValue string) {
	t.Helper()
	prevType, prevValue := SourceType, SourceValue
	SourceType = sourceType
	SourceValue = sourceValue
	t.Cleanup(func() {
		SourceType = prevType
		SourceValue = prevValue
	})
}

func TestFetchCSVFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(validCSV))
	}))
	defer server.Close()

	setSource(t, SourceTypeURL, server.URL)

	content, err := FetchCSV()
	if err != nil {
		t.Fatalf("FetchCSV() unexpected error: %v", err)
	}
	if content != validCSV {
		t.Errorf("FetchCSV() = %q, want %q", content, validCSV)
	}
}

func TestFetchCSVURLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"non-200 status", server.URL},
		{"connection refused", "http://127.0.0.1:1/export.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSource(t, SourceTypeURL, tt.url)
			if _, err := FetchCSV(); !errors.Is(err, ErrSourceUnreachable) {
				t.Errorf("FetchCSV() error = %v, want ErrSourceUnreachable", err)
			}
		})
	}
}

func TestFetchCSVFromPath(t *testing.T) {
	prevFs := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() { AppFs = prevFs })

	if err := afero.WriteFile(AppFs, "/data/export.csv", []byte(validCSV), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	setSource(t, SourceTypePath, "/data/export.csv")

	content, err := FetchCSV()
	if err != nil {
		t.Fatalf("FetchCSV() unexpected error: %v", err)
	}
	if content != validCSV {
		t.Errorf("FetchCSV() = %q, want %q", content, validCSV)
	}

	setSource(t, SourceTypePath, "/data/missing.csv")
	if _, err := FetchCSV(); !errors.Is(err, ErrSourceUnreachable) {
		t.Errorf("FetchCSV() on missing file = %v, want ErrSourceUnreachable", err)
	}
}

func TestFetchCSVFromUpload(t *testing.T) {
	setSource(t, SourceTypeUpload, "")
	prev := UploadedCSV()
	t.Cleanup(func() { SetUploadedCSV(prev) })

	SetUploadedCSV(validCSV)
	content, err := FetchCSV()
	if err != nil {
		t.Fatalf("FetchCSV() unexpected error: %v", err)
	}
	if content != validCSV {
		t.Errorf("FetchCSV() = %q, want %q", content, validCSV)
	}

	SetUploadedCSV("")
	if _, err := FetchCSV(); !errors.Is(err, ErrSourceUnreachable) {
		t.Errorf("FetchCSV() without content = %v, want ErrSourceUnreachable", err)
	}
}

func TestFetchCSVEmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"header only", "Datum;Ophaling;Verwijderd;Reden\n"},
		{"header and blank lines", "Datum;Ophaling;Verwijderd;Reden\n\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSource(t, SourceTypeUpload, "")
			prev := UploadedCSV()
			t.Cleanup(func() { SetUploadedCSV(prev) })

			SetUploadedCSV(tt.content)
			if _, err := FetchCSV(); !errors.Is(err, ErrEmptyContent) {
				t.Errorf("FetchCSV() error = %v, want ErrEmptyContent", err)
			}
		})
	}
}
